package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// refreshWindow is how far back trips and faults are pulled on a refresh.
const refreshWindow = 7 * 24 * time.Hour

// Refresh pulls the core datasets from the telematics service into the
// cache so the assistant can answer over them with plain SQL. Datasets that
// come back empty keep their previous cached version.
func Refresh(ctx context.Context, client *Client, cache *Cache) (map[string]int, error) {
	to := time.Now().UTC()
	from := to.Add(-refreshWindow)

	counts := make(map[string]int)

	vehicles, err := client.Vehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh vehicles: %w", err)
	}
	if err := cacheAs(ctx, cache, counts, "vehicles", vehicles, "fleet roster"); err != nil {
		return nil, err
	}

	locations, err := client.Locations(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh locations: %w", err)
	}
	if err := cacheAs(ctx, cache, counts, "locations", locations, "latest GPS fixes"); err != nil {
		return nil, err
	}

	trips, err := client.Trips(ctx, "", from, to)
	if err != nil {
		return nil, fmt.Errorf("refresh trips: %w", err)
	}
	if err := cacheAs(ctx, cache, counts, "trips", trips, "trips, trailing week"); err != nil {
		return nil, err
	}

	faults, err := client.Faults(ctx, "", from, to)
	if err != nil {
		return nil, fmt.Errorf("refresh faults: %w", err)
	}
	if err := cacheAs(ctx, cache, counts, "faults", faults, "diagnostic faults, trailing week"); err != nil {
		return nil, err
	}

	zones, err := client.Zones(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh zones: %w", err)
	}
	if err := cacheAs(ctx, cache, counts, "zones", zones, "geofence zones"); err != nil {
		return nil, err
	}

	return counts, nil
}

func cacheAs(ctx context.Context, cache *Cache, counts map[string]int, name string, v any, description string) error {
	rows, err := RowsFromStructs(v)
	if err != nil {
		return fmt.Errorf("prepare dataset %s: %w", name, err)
	}

	info, err := cache.CacheDataset(ctx, name, rows, "telematics", description)
	if errors.Is(err, ErrEmptyDataset) {
		counts[name] = 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache dataset %s: %w", name, err)
	}
	counts[name] = info.Rows
	return nil
}

package fleet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientVehicles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vehicles", r.URL.Path)
		json.NewEncoder(w).Encode([]Vehicle{
			{ID: "v1", Name: "Van 104"},
			{ID: "v2", Name: "Truck 7"},
		})
	}))
	defer server.Close()

	vehicles, err := NewClient(server.URL).Vehicles(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	require.Equal(t, "Van 104", vehicles[0].Name)
}

func TestClientVehicleByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vehicles/van-104", r.URL.Path)
		json.NewEncoder(w).Encode(Vehicle{ID: "van-104", Name: "Van 104"})
	}))
	defer server.Close()

	vehicle, err := NewClient(server.URL).Vehicle(context.Background(), "van-104")
	require.NoError(t, err)
	require.Equal(t, "van-104", vehicle.ID)

	_, err = NewClient(server.URL).Vehicle(context.Background(), " ")
	require.Error(t, err)
}

func TestClientFaultsQueryParams(t *testing.T) {
	var query map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		json.NewEncoder(w).Encode([]Fault{{ID: "f1", VehicleID: "v1"}})
	}))
	defer server.Close()

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	faults, err := NewClient(server.URL).Faults(context.Background(), "v1", from, to)
	require.NoError(t, err)
	require.Len(t, faults, 1)
	require.Equal(t, []string{"v1"}, query["vehicle"])
	require.Equal(t, []string{"2026-08-01T00:00:00Z"}, query["from"])
	require.Equal(t, []string{"2026-08-02T00:00:00Z"}, query["to"])
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "credentials expired", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Zones(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "credentials expired")
}

func TestClientEmptyBaseURL(t *testing.T) {
	_, err := NewClient("").Locations(context.Background())
	require.Error(t, err)
}

package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultClientTimeout = 15 * time.Second

// Client handles telematics service HTTP API calls.
type Client struct {
	BaseURL string
	Client  *http.Client
}

// NewClient constructs a client with defaults applied.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Client:  &http.Client{Timeout: defaultClientTimeout},
	}
}

// Vehicles lists the fleet.
func (c *Client) Vehicles(ctx context.Context) ([]Vehicle, error) {
	var out []Vehicle
	if err := c.getJSON(ctx, "/vehicles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Vehicle fetches one vehicle by id.
func (c *Client) Vehicle(ctx context.Context, id string) (*Vehicle, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("vehicle id is required")
	}
	var out Vehicle
	if err := c.getJSON(ctx, "/vehicles/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Locations fetches latest positions for the whole fleet in one call.
func (c *Client) Locations(ctx context.Context) ([]Position, error) {
	var out []Position
	if err := c.getJSON(ctx, "/locations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Trips lists trips, optionally filtered by vehicle and time window.
func (c *Client) Trips(ctx context.Context, vehicleID string, from, to time.Time) ([]Trip, error) {
	query := url.Values{}
	if vehicleID != "" {
		query.Set("vehicle", vehicleID)
	}
	if !from.IsZero() {
		query.Set("from", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		query.Set("to", to.UTC().Format(time.RFC3339))
	}

	var out []Trip
	if err := c.getJSON(ctx, "/trips", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Faults lists diagnostic faults, optionally filtered by vehicle. A zero
// time window defaults to the service's trailing week.
func (c *Client) Faults(ctx context.Context, vehicleID string, from, to time.Time) ([]Fault, error) {
	query := url.Values{}
	if vehicleID != "" {
		query.Set("vehicle", vehicleID)
	}
	if !from.IsZero() {
		query.Set("from", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		query.Set("to", to.UTC().Format(time.RFC3339))
	}

	var out []Fault
	if err := c.getJSON(ctx, "/faults", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Zones lists the geofence zones.
func (c *Client) Zones(ctx context.Context) ([]Zone, error) {
	var out []Zone
	if err := c.getJSON(ctx, "/zones", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) baseURL() (string, error) {
	if c == nil {
		return "", errors.New("fleet client is nil")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		return "", errors.New("fleet base URL is empty")
	}
	return baseURL, nil
}

func (c *Client) httpClient() *http.Client {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: defaultClientTimeout}
	}
	if c.Client.Timeout <= 0 {
		c.Client.Timeout = defaultClientTimeout
	}
	return c.Client
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	baseURL, err := c.baseURL()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target := baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build fleet request: %w", err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("call fleet service: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode fleet response: %w", err)
	}
	return nil
}

func readResponseBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read fleet response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet := strings.TrimSpace(string(body))
		if snippet == "" {
			snippet = resp.Status
		}
		return nil, fmt.Errorf("fleet request failed (%s): %s", resp.Status, snippet)
	}

	return body, nil
}

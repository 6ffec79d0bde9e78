// Package streetview resolves street-level imagery for a property address
// through the Google Street View Static API.
package streetview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/streetview"
	DefaultWidth   = 600
	DefaultHeight  = 400
	// MaxDimension is the largest image edge the static API serves.
	MaxDimension = 640

	fieldOfView = 90
	statusOK    = "OK"
)

var ErrAddressRequired = errors.New("streetview: address is required")

// Location is the panorama's coordinates.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Image is the lookup result. Fallback tells the client to render a
// placeholder instead of an image.
type Image struct {
	URL       string    `json:"url,omitempty"`
	Available bool      `json:"available"`
	Status    string    `json:"status,omitempty"`
	PanoID    string    `json:"pano_id,omitempty"`
	Location  *Location `json:"location,omitempty"`
	Fallback  bool      `json:"fallback,omitempty"`
}

type metadata struct {
	Status   string    `json:"status"`
	PanoID   string    `json:"pano_id"`
	Location *Location `json:"location"`
}

// Client looks up imagery metadata and builds image URLs.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a client. An empty baseURL uses DefaultBaseURL; an
// empty apiKey makes every lookup return a fallback.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Lookup checks imagery availability for address. Non-positive width or
// height use the defaults; larger values are clamped to MaxDimension.
func (c *Client) Lookup(ctx context.Context, address string, width, height int) (*Image, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrAddressRequired
	}
	if c.apiKey == "" {
		return &Image{Fallback: true}, nil
	}

	meta, err := c.fetchMetadata(ctx, address)
	if err != nil {
		return nil, err
	}
	if meta.Status != statusOK {
		return &Image{Available: false, Status: meta.Status, Fallback: true}, nil
	}

	return &Image{
		URL:       c.imageURL(address, dimension(width, DefaultWidth), dimension(height, DefaultHeight)),
		Available: true,
		Status:    meta.Status,
		PanoID:    meta.PanoID,
		Location:  meta.Location,
	}, nil
}

func (c *Client) fetchMetadata(ctx context.Context, address string) (*metadata, error) {
	q := url.Values{}
	q.Set("location", address)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/metadata?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata request: unexpected status code %d", resp.StatusCode)
	}

	var meta metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

func (c *Client) imageURL(address string, width, height int) string {
	q := url.Values{}
	q.Set("size", fmt.Sprintf("%dx%d", width, height))
	q.Set("location", address)
	q.Set("fov", fmt.Sprint(fieldOfView))
	q.Set("heading", "0")
	q.Set("pitch", "0")
	q.Set("key", c.apiKey)
	return c.baseURL + "?" + q.Encode()
}

func dimension(v, def int) int {
	if v <= 0 {
		return def
	}
	return min(v, MaxDimension)
}

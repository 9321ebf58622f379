// Package client talks to a running TubeTrove server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/tubetrove-go/internal/app"
	"github.com/yourusername/tubetrove-go/internal/domain"
)

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client is a typed wrapper around the HTTP API
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Healthy reports whether the server answers its health check
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return c.do(ctx, http.MethodGet, "/health", nil, nil) == nil
}

// AddDownload submits a download request
func (c *Client) AddDownload(ctx context.Context, rawURL string, kind domain.MediaKind, format string) (*domain.Download, error) {
	body := map[string]string{"url": rawURL, "kind": string(kind), "format": format}
	var d domain.Download
	if err := c.do(ctx, http.MethodPost, "/api/v1/downloads", body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDownloads lists the download history, optionally filtered
func (c *Client) ListDownloads(ctx context.Context, stage, kind string) ([]domain.Download, error) {
	q := url.Values{}
	if stage != "" {
		q.Set("stage", stage)
	}
	if kind != "" {
		q.Set("kind", kind)
	}
	path := "/api/v1/downloads"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var downloads []domain.Download
	if err := c.do(ctx, http.MethodGet, path, nil, &downloads); err != nil {
		return nil, err
	}
	return downloads, nil
}

// GetDownload fetches a single download
func (c *Client) GetDownload(ctx context.Context, id string) (*domain.Download, error) {
	var d domain.Download
	if err := c.do(ctx, http.MethodGet, "/api/v1/downloads/"+url.PathEscape(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Stats fetches the download statistics
func (c *Client) Stats(ctx context.Context) (*domain.DownloadStats, error) {
	var stats domain.DownloadStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/downloads/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Library fetches the current gallery
func (c *Client) Library(ctx context.Context) (*app.GallerySnapshot, error) {
	var snap app.GallerySnapshot
	if err := c.do(ctx, http.MethodGet, "/api/v1/library", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// RefreshLibrary asks the server to re-scan the library
func (c *Client) RefreshLibrary(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/library/refresh", nil, nil)
}

// Open asks the server to launch the tile at index of a category
func (c *Client) Open(ctx context.Context, category domain.Category, index int) (*app.Tile, error) {
	var tile app.Tile
	path := "/api/v1/library/" + string(category) + "/" + strconv.Itoa(index) + "/open"
	if err := c.do(ctx, http.MethodPost, path, nil, &tile); err != nil {
		return nil, err
	}
	return &tile, nil
}

// Settings fetches the settings document
func (c *Client) Settings(ctx context.Context) (*domain.Settings, error) {
	var s domain.Settings
	if err := c.do(ctx, http.MethodGet, "/api/v1/settings", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetTheme changes the theme
func (c *Client) SetTheme(ctx context.Context, theme string) (*domain.Settings, error) {
	var s domain.Settings
	if err := c.do(ctx, http.MethodPut, "/api/v1/settings", map[string]string{"theme": theme}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Watch streams server events to fn until ctx is done or the connection drops
func (c *Client) Watch(ctx context.Context, fn func(app.Event)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var e app.Event
		if err := conn.ReadJSON(&e); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(e)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

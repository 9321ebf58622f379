package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tubetrove-go/internal/app"
	"github.com/yourusername/tubetrove-go/internal/domain"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return New(server.URL + "/")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAddDownload(t *testing.T) {
	mux := http.NewServeMux()
	var got map[string]string
	mux.HandleFunc("/api/v1/downloads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		writeJSON(w, http.StatusAccepted, domain.Download{ID: "abc", URL: got["url"], Stage: domain.StageIdle})
	})
	c := newTestClient(t, mux)

	d, err := c.AddDownload(context.Background(), "https://example.com/v", domain.KindAudio, "ogg")
	require.NoError(t, err)
	assert.Equal(t, "abc", d.ID)
	assert.Equal(t, map[string]string{"url": "https://example.com/v", "kind": "audio", "format": "ogg"}, got)
}

func TestAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/downloads", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "download queue is full"})
	})
	mux.HandleFunc("/api/v1/downloads/stats", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c := newTestClient(t, mux)

	_, err := c.AddDownload(context.Background(), "https://example.com/v", domain.KindVideo, "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "download queue is full", apiErr.Message)

	_, err = c.Stats(context.Background())
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "boom", apiErr.Message)
}

func TestListDownloadsQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/downloads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "failed", r.URL.Query().Get("stage"))
		assert.Equal(t, "video", r.URL.Query().Get("kind"))
		writeJSON(w, http.StatusOK, []domain.Download{{ID: "1"}, {ID: "2"}})
	})
	c := newTestClient(t, mux)

	downloads, err := c.ListDownloads(context.Background(), "failed", "video")
	require.NoError(t, err)
	assert.Len(t, downloads, 2)
}

func TestLibraryOpenAndTheme(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/library", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, app.GallerySnapshot{Version: 4, Theme: domain.ThemeLight})
	})
	mux.HandleFunc("/api/v1/library/audio/2/open", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		writeJSON(w, http.StatusOK, app.Tile{LibraryEntry: domain.LibraryEntry{Title: "Song"}, Row: 0, Col: 2})
	})
	mux.HandleFunc("/api/v1/settings", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var s domain.Settings
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&s))
		writeJSON(w, http.StatusOK, s)
	})
	c := newTestClient(t, mux)

	snap, err := c.Library(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), snap.Version)

	tile, err := c.Open(context.Background(), domain.CategoryAudio, 2)
	require.NoError(t, err)
	assert.Equal(t, "Song", tile.Title)
	assert.Equal(t, 2, tile.Col)

	settings, err := c.SetTheme(context.Background(), domain.ThemeLight)
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeLight, settings.Theme)
}

func TestHealthy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	assert.True(t, newTestClient(t, mux).Healthy(context.Background()))
	assert.False(t, New("http://127.0.0.1:1").Healthy(context.Background()))
}

func TestWatch(t *testing.T) {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(app.Event{Type: app.EventStatus, Message: "one"})
		_ = conn.WriteJSON(app.Event{Type: app.EventStatus, Message: "two"})
		// hold the connection until the client goes away
		_, _, _ = conn.ReadMessage()
	})
	c := newTestClient(t, mux)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var messages []string
	err := c.Watch(ctx, func(e app.Event) {
		messages = append(messages, e.Message)
		if len(messages) == 2 {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, messages)
}

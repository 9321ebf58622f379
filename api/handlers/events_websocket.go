package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/internal/app"
)

const (
	eventBuffer  = 64
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// EventSource is the hub events are streamed from
type EventSource interface {
	Subscribe(buffer int) (<-chan app.Event, func())
}

// EventsWebSocketHandler streams status, library and settings events
type EventsWebSocketHandler struct {
	events   EventSource
	library  LibraryService
	settings SettingsService
	logger   *zap.Logger
}

// NewEventsWebSocketHandler creates a new WebSocket handler
func NewEventsWebSocketHandler(events EventSource, library LibraryService, settings SettingsService, log *zap.Logger) *EventsWebSocketHandler {
	return &EventsWebSocketHandler{
		events:   events,
		library:  library,
		settings: settings,
		logger:   log,
	}
}

// HandleWebSocket handles GET /api/v1/events. A new client first receives the
// current settings and library, then every event as it is published.
func (h *EventsWebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.events.Subscribe(eventBuffer)
	defer unsubscribe()

	h.logger.Info("WebSocket client connected", zap.String("remote_addr", c.Request.RemoteAddr))

	for _, e := range h.initialEvents(c.Request.Context()) {
		if err := h.write(conn, e); err != nil {
			h.logger.Error("Failed to send initial state", zap.Error(err))
			return
		}
	}

	// Read messages from client (for ping/pong and close)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := h.write(conn, e); err != nil {
				h.logger.Debug("WebSocket client went away", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}

		case <-done:
			h.logger.Info("WebSocket client disconnected", zap.String("remote_addr", c.Request.RemoteAddr))
			return
		}
	}
}

func (h *EventsWebSocketHandler) initialEvents(ctx context.Context) []app.Event {
	settings := h.settings.Current()
	initial := []app.Event{{Type: app.EventSettings, Time: time.Now(), Settings: &settings}}
	if snap, err := h.library.Snapshot(ctx); err == nil {
		initial = append(initial, app.Event{Type: app.EventLibrary, Time: time.Now(), Library: &snap})
	}
	return initial
}

func (h *EventsWebSocketHandler) write(conn *websocket.Conn, e app.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(e)
}

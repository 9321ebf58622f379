package app

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

// EventType identifies what an Event carries
type EventType string

const (
	EventStatus   EventType = "status"
	EventLibrary  EventType = "library"
	EventSettings EventType = "settings"
)

// Event is a presentation update pushed to subscribers
type Event struct {
	Type     EventType        `json:"type"`
	Time     time.Time        `json:"time"`
	Message  string           `json:"message,omitempty"`
	Download *domain.Download `json:"download,omitempty"`
	Library  *GallerySnapshot `json:"library,omitempty"`
	Settings *domain.Settings `json:"settings,omitempty"`
}

// EventHub fans events out to subscribers. Slow subscribers lose events
// instead of stalling publishers.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// function unsubscribes and closes the channel.
func (h *EventHub) Subscribe(buffer int) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, buffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber with room in its buffer
func (h *EventHub) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// SubscriberCount returns the number of live subscribers
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// DownloadUpdated publishes the status line of a download
func (h *EventHub) DownloadUpdated(d domain.Download) {
	h.Publish(Event{Type: EventStatus, Message: d.StatusMessage(), Download: &d})
}

// ForwardGallery republishes gallery snapshots until ctx is done or the
// snapshot channel closes.
func (h *EventHub) ForwardGallery(ctx context.Context, snapshots <-chan GallerySnapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			h.Publish(Event{Type: EventLibrary, Library: &snap})
		}
	}
}

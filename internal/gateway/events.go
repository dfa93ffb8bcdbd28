package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Event types published on the dispatch event stream.
const (
	EventDispatched = "dispatched"
	EventDuplicate  = "duplicate"
	EventDropped    = "dropped"
	EventError      = "error"
)

// Event describes the outcome of one update's trip through the pipeline.
type Event struct {
	Type     string    `json:"type"`
	UpdateID int64     `json:"update_id,omitempty"`
	ChatID   int64     `json:"chat_id,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Time     time.Time `json:"time"`
}

// EventStream broadcasts dispatch events to WebSocket subscribers. Slow
// subscribers lose events rather than back-pressuring the pipeline.
type EventStream struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	logger *slog.Logger
}

// NewEventStream creates an EventStream with no subscribers.
func NewEventStream(logger *slog.Logger) *EventStream {
	return &EventStream{
		subs:   make(map[chan Event]struct{}),
		logger: logger,
	}
}

// Publish fans the event out to all subscribers without blocking.
// A nil EventStream is valid and drops everything.
func (s *EventStream) Publish(ev Event) {
	if s == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *EventStream) subscribe() chan Event {
	ch := make(chan Event, 16)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *EventStream) unsubscribe(ch chan Event) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

// ServeHTTP implements http.Handler. Each connection receives events as JSON
// text messages until the client disconnects.
func (s *EventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("event stream accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := s.write(ctx, conn, data); err != nil {
				return
			}
		}
	}
}

func (s *EventStream) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, data)
}

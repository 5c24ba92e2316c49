package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

const (
	EventSnapshot = "snapshot"
	EventError    = "error"
	EventProgress = "progress"
	EventResult   = "result"
)

type SSEMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	// Final ends the stream once the message is written.
	Final bool `json:"-"`
}

// Outbox buffers messages for one stream. When full, the oldest pending
// message is dropped; snapshots replace each other so nothing is lost.
type Outbox struct {
	mu     sync.Mutex
	ch     chan SSEMessage
	closed bool
	log    *logger.Logger
}

func NewOutbox(log *logger.Logger, size int) *Outbox {
	if size <= 0 {
		size = 16
	}
	return &Outbox{ch: make(chan SSEMessage, size), log: log}
}

func (o *Outbox) C() <-chan SSEMessage { return o.ch }

func (o *Outbox) Offer(msg SSEMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	for {
		select {
		case o.ch <- msg:
			return
		default:
		}
		select {
		case dropped := <-o.ch:
			o.log.Warn("dropping queued SSE message; outbox full", "event", dropped.Event)
		default:
		}
	}
}

func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}

var ErrStreamingUnsupported = errors.New("streaming unsupported")

type Stream struct {
	w         http.ResponseWriter
	flusher   http.Flusher
	log       *logger.Logger
	heartbeat time.Duration
}

// NewStream writes the event-stream headers and flushes them.
func NewStream(w http.ResponseWriter, log *logger.Logger) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Stream{w: w, flusher: flusher, log: log, heartbeat: 15 * time.Second}, nil
}

func (s *Stream) Send(msg SSEMessage) error {
	raw, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", msg.Event, err)
	}
	event := strings.TrimSpace(msg.Event)
	if event == "" {
		event = "message"
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, raw); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *Stream) ping() error {
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Run writes outbox messages until ctx ends, the outbox closes, or a Final
// message has been written.
func (s *Stream) Run(ctx context.Context, outbox *Outbox) {
	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("SSE client gone", "err", ctx.Err())
			return
		case <-heartbeat.C:
			if err := s.ping(); err != nil {
				return
			}
		case msg, ok := <-outbox.C():
			if !ok {
				return
			}
			if err := s.Send(msg); err != nil {
				s.log.Warn("SSE write failed", "event", msg.Event, "error", err)
				return
			}
			if msg.Final {
				return
			}
		}
	}
}

package hotwire

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pthm/hxview/internal/observability"
	"github.com/rs/zerolog"
)

// Broker fans published payloads out to connected SSE streams.
//
// Sends to subscribers never block: a stream whose buffer is full misses
// the entry (it is still in the Log, so a reconnect replays it).
type Broker struct {
	// Logger receives connection and drop events.
	Logger zerolog.Logger
	// Channel is used by Publish when no channel is given. Defaults to
	// DefaultChannel.
	Channel string

	mu     sync.Mutex
	log    Log
	next   uint64
	subs   map[string]*subscriber
	buffer int
	closed bool
}

type subscriber struct {
	id      string
	channel string // "" receives every channel
	ch      chan Entry
}

// NewBroker creates a broker backed by log. A nil log uses a MemoryLog.
func NewBroker(log Log) (*Broker, error) {
	if log == nil {
		log = NewMemoryLog(0)
	}
	last, err := log.Last()
	if err != nil {
		return nil, fmt.Errorf("hotwire: read log: %w", err)
	}
	return &Broker{
		Logger:  zerolog.Nop(),
		Channel: DefaultChannel,
		log:     log,
		next:    last,
		subs:    make(map[string]*subscriber),
		buffer:  16,
	}, nil
}

// Publish assigns the next event ID to p, stores it and delivers it to
// every subscriber of channel. An empty channel means b.Channel.
func (b *Broker) Publish(channel string, p Payload) (uint64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if channel == "" {
		channel = b.Channel
	}
	if channel == "" {
		channel = DefaultChannel
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, fmt.Errorf("hotwire: broker closed")
	}

	e := Entry{ID: b.next + 1, Channel: channel, Payload: p, Time: time.Now()}
	if err := b.log.Append(e); err != nil {
		return 0, fmt.Errorf("hotwire: append %d: %w", e.ID, err)
	}
	b.next = e.ID
	observability.RecordPublished(channel)

	for _, s := range b.subs {
		if s.channel != "" && s.channel != channel {
			continue
		}
		select {
		case s.ch <- e:
		default:
			observability.RecordDropped()
			b.Logger.Warn().Str("subscriber", s.id).Uint64("id", e.ID).Msg("hot stream full, entry dropped")
		}
	}
	return e.ID, nil
}

// Subscribers returns the number of connected streams.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close disconnects every stream. It does not close the Log.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}

func (b *Broker) subscribe(channel string) (*subscriber, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, false
	}
	s := &subscriber{
		id:      uuid.NewString(),
		channel: channel,
		ch:      make(chan Entry, b.buffer),
	}
	b.subs[s.id] = s
	observability.SubscriberConnected()
	return s, true
}

func (b *Broker) unsubscribe(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s.id]; ok {
		delete(b.subs, s.id)
		close(s.ch)
	}
	observability.SubscriberDisconnected()
}

// ServeHTTP streams entries as Server-Sent Events. The optional "channel"
// query parameter restricts the stream to one channel. Entries newer than
// the Last-Event-ID request header are replayed from the Log first.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	channel := r.URL.Query().Get("channel")
	s, ok := b.subscribe(channel)
	if !ok {
		http.Error(w, "broker closed", http.StatusServiceUnavailable)
		return
	}
	defer b.unsubscribe(s)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	log := b.Logger.With().Str("subscriber", s.id).Str("remote", r.RemoteAddr).Logger()
	log.Debug().Msg("hot stream connected")
	defer log.Debug().Msg("hot stream closed")

	var sent uint64
	if raw := r.Header.Get("Last-Event-ID"); raw != "" {
		if last, err := strconv.ParseUint(raw, 10, 64); err == nil {
			backlog, err := b.log.Since(last)
			if err != nil {
				log.Error().Err(err).Msg("hot replay failed")
			}
			for _, e := range backlog {
				if channel != "" && e.Channel != channel {
					continue
				}
				if err := writeEvent(w, e); err != nil {
					return
				}
				sent = e.ID
			}
			flusher.Flush()
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-s.ch:
			if !ok {
				return
			}
			if e.ID <= sent {
				continue
			}
			if err := writeEvent(w, e); err != nil {
				log.Debug().Err(err).Msg("hot stream write failed")
				return
			}
			sent = e.ID
			flusher.Flush()
		}
	}
}

// publishRequest is the body accepted by PublishHandler.
type publishRequest struct {
	Channel string `json:"channel,omitempty"`
	Payload
}

type publishResponse struct {
	ID      uint64 `json:"id"`
	Channel string `json:"channel"`
}

// PublishHandler accepts POSTed JSON payloads and publishes them. Build
// tooling and file watchers call it after a rebuild.
func (b *Broker) PublishHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req publishRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		channel := req.Channel
		if channel == "" {
			channel = b.Channel
		}
		if channel == "" {
			channel = DefaultChannel
		}
		id, err := b.Publish(channel, req.Payload)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(publishResponse{ID: id, Channel: channel})
	})
}

func writeEvent(w io.Writer, e Entry) error {
	data, err := EncodeJSON(e.Payload)
	if err != nil {
		return err
	}
	var sb strings.Builder
	sb.WriteString("id: ")
	sb.WriteString(strconv.FormatUint(e.ID, 10))
	sb.WriteString("\nevent: ")
	sb.WriteString(e.Channel)
	sb.WriteString("\ndata: ")
	sb.Write(data)
	sb.WriteString("\n\n")
	_, err = io.WriteString(w, sb.String())
	return err
}

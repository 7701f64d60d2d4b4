package hotwire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog"
)

// Source reads a Server-Sent Events stream and dispatches each event's
// data to the handlers subscribed to its event name. Frames are split by
// sse.EventStreamReader. Handlers run on the reading goroutine, one event
// at a time, in stream order.
type Source struct {
	url      string
	client   *http.Client
	logger   zerolog.Logger
	done     chan struct{}
	doneOnce sync.Once

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	running bool
	closed  bool
	handlers  map[string]map[uint64]func([]byte)
	nextID    uint64
	lastID    string
	err       error
}

var (
	// ErrConnected is returned by Connect on a source that is already
	// connected or connecting.
	ErrConnected = errors.New("hotwire: source already connected")
	// ErrSourceClosed is returned by Connect after Close.
	ErrSourceClosed = errors.New("hotwire: source closed")
)

// SourceOption configures NewSource and Dial.
type SourceOption func(*sourceOptions)

type sourceOptions struct {
	client      *http.Client
	logger      zerolog.Logger
	lastEventID string
}

// WithHTTPClient sets the client used for the stream request.
func WithHTTPClient(c *http.Client) SourceOption {
	return func(o *sourceOptions) { o.client = c }
}

// WithSourceLogger sets the logger for stream errors.
func WithSourceLogger(l zerolog.Logger) SourceOption {
	return func(o *sourceOptions) { o.logger = l }
}

// WithLastEventID resumes the stream after the given event ID.
func WithLastEventID(id string) SourceOption {
	return func(o *sourceOptions) { o.lastEventID = id }
}

// NewSource prepares a stream reader for url. Subscribe handlers before
// calling Connect so no early event is missed.
func NewSource(url string, opts ...SourceOption) *Source {
	o := &sourceOptions{client: http.DefaultClient, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return &Source{
		url:      url,
		client:   o.client,
		logger:   o.logger,
		cancel:   func() {},
		done:     make(chan struct{}),
		handlers: make(map[string]map[uint64]func([]byte)),
		lastID:   o.lastEventID,
	}
}

// Dial creates a Source for url and connects it.
func Dial(ctx context.Context, url string, opts ...SourceOption) (*Source, error) {
	s := NewSource(url, opts...)
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect opens the stream and starts reading it in the background until
// ctx is cancelled, Close is called or the server ends the stream. A
// source connects once; a failed dial may be retried.
func (s *Source) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		cancel()
		return ErrSourceClosed
	case s.started:
		s.mu.Unlock()
		cancel()
		return ErrConnected
	}
	s.started = true
	s.cancel = cancel
	s.mu.Unlock()

	resp, err := s.dial(ctx)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		resp.Body.Close()
		cancel()
		return ErrSourceClosed
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer s.finish()
		defer resp.Body.Close()
		err := s.read(resp.Body)
		if err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Str("url", s.url).Msg("hot stream ended")
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}()
	return nil
}

func (s *Source) dial(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if last := s.LastEventID(); last != "" {
		req.Header.Set("Last-Event-ID", last)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hotwire: dial %s: %w", s.url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("hotwire: dial %s: unexpected status %d", s.url, resp.StatusCode)
	}
	return resp, nil
}

func (s *Source) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Subscribe registers fn for events named channel and returns a function
// that removes it.
func (s *Source) Subscribe(channel string, fn func([]byte)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	if s.handlers[channel] == nil {
		s.handlers[channel] = make(map[uint64]func([]byte))
	}
	s.handlers[channel][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers[channel], id)
	}
}

// Close stops reading and waits for the reader to exit. Done is closed
// afterwards even if the source never connected.
func (s *Source) Close() error {
	s.mu.Lock()
	s.closed = true
	cancel, running := s.cancel, s.running
	s.mu.Unlock()
	cancel()
	if running {
		<-s.done
	} else {
		s.finish()
	}
	return nil
}

// Done is closed when the stream has ended.
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the stream, if any.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// LastEventID returns the ID of the last event received.
func (s *Source) LastEventID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

// maxEventSize bounds a single event frame.
const maxEventSize = 1 << 20

// read dispatches every event frame of the stream. A clean end of stream
// returns nil.
func (s *Source) read(r io.Reader) error {
	frames := sse.NewEventStreamReader(r, maxEventSize)
	for {
		frame, err := frames.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if event, id, data, ok := parseFrame(frame); ok {
			s.dispatch(event, id, data)
		}
	}
}

// parseFrame reads the fields of one event. Frames without data, such
// as keep-alive comments, are not dispatched.
func parseFrame(frame []byte) (event, id string, data []byte, ok bool) {
	var lines []string
	for _, line := range strings.FieldsFunc(string(frame), func(r rune) bool { return r == '\n' || r == '\r' }) {
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
		case "data":
			lines = append(lines, value)
		case "id":
			id = value
		}
	}
	if len(lines) == 0 {
		return "", "", nil, false
	}
	return event, id, []byte(strings.Join(lines, "\n")), true
}

func (s *Source) dispatch(event, id string, data []byte) {
	if event == "" {
		event = "message"
	}

	s.mu.Lock()
	if id != "" {
		s.lastID = id
	}
	fns := make([]func([]byte), 0, len(s.handlers[event]))
	ids := make([]uint64, 0, len(s.handlers[event]))
	for hid := range s.handlers[event] {
		ids = append(ids, hid)
	}
	slices.Sort(ids)
	for _, hid := range ids {
		fns = append(fns, s.handlers[event][hid])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(data)
	}
}


package hxview

import (
	"sync"

	"github.com/pthm/hxview/internal/observability"
	"github.com/pthm/hxview/lib/hotwire"
	"github.com/rs/zerolog"
)

// HotPayload is the message pushed on the hot channel.
type HotPayload = hotwire.Payload

// EventSource is a push-event connection with named channels.
// hotwire.Source implements it.
type EventSource interface {
	Subscribe(channel string, fn func(data []byte)) (unsubscribe func())
	Close() error
}

// HotClient feeds hot payloads from an EventSource into a ReloadQueue.
type HotClient struct {
	// Channel defaults to hotwire.DefaultChannel.
	Channel string
	Logger  zerolog.Logger
	// Reload performs a full reload. It is called directly from the event
	// source, bypassing the queue.
	Reload func()

	source EventSource
	queue  *ReloadQueue

	mu     sync.Mutex
	unsub  func()
	closed bool
}

// NewHotClient creates a client that enqueues script updates on queue and
// calls reload for reload payloads.
func NewHotClient(source EventSource, queue *ReloadQueue, reload func()) *HotClient {
	return &HotClient{
		Channel: hotwire.DefaultChannel,
		Logger:  zerolog.Nop(),
		Reload:  reload,
		source:  source,
		queue:   queue,
	}
}

// Start subscribes to the hot channel. Calling Start twice has no effect.
func (c *HotClient) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsub != nil || c.closed {
		return
	}
	ch := c.Channel
	if ch == "" {
		ch = hotwire.DefaultChannel
	}
	c.unsub = c.source.Subscribe(ch, c.handle)
}

// Close removes the subscription and closes the event source. Queue
// listeners are left in place.
func (c *HotClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	return c.source.Close()
}

func (c *HotClient) handle(data []byte) {
	p, err := hotwire.DecodeJSON(data)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("bad hot payload")
		return
	}

	if p.Reload {
		observability.RecordFullReload()
		c.Logger.Info().Msg("full reload")
		if c.Reload != nil {
			c.Reload()
		}
		return
	}

	if len(p.Scripts) == 0 {
		return
	}
	c.Logger.Debug().Strs("scripts", p.Scripts).Msg("hot update queued")
	c.queue.Enqueue(p.Scripts...)
}

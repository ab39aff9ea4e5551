// Package hub routes events from logical channels to live connections.
//
// Delivery is best-effort and at-most-once. Publish only hands a frame to the
// delivery worker; a full queue or a slow subscriber drops the frame and never
// blocks or fails the caller. Nothing is replayed to clients that were absent.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"matchsocial/backend/internal/events"
)

const (
	defaultQueueSize       = 1024
	defaultClientQueueSize = 256
	relayPublishTimeout    = 2 * time.Second
)

// Frame is one event addressed to one channel.
type Frame struct {
	Channel string          `cbor:"1,keyasint" json:"channel"`
	Event   string          `cbor:"2,keyasint" json:"event"`
	Payload json.RawMessage `cbor:"3,keyasint" json:"payload"`
}

// NewFrame encodes ev for channel.
func NewFrame(channel string, ev events.Event) (Frame, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Frame{}, errors.Wrapf(err, "hub: encode %s", ev.EventName())
	}
	return Frame{Channel: channel, Event: ev.EventName(), Payload: payload}, nil
}

type delivery struct {
	frame Frame
	// remote frames came back from the relay and are delivered locally only.
	remote bool
}

type Option func(*Hub)

// WithQueueSize bounds the number of frames waiting for the delivery worker.
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// WithClientQueueSize bounds every client's outbound queue.
func WithClientQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.clientQueueSize = n
		}
	}
}

// Hub manages channel subscriptions and their connected clients.
type Hub struct {
	log             *slog.Logger
	queueSize       int
	clientQueueSize int

	mu       sync.RWMutex
	channels map[string]map[*Client]struct{}
	clients  map[*Client]map[string]struct{}

	qmu    sync.RWMutex
	queue  chan delivery
	closed bool

	relay     Relay
	relayDone chan struct{}

	dropped atomic.Uint64
	wg      sync.WaitGroup
}

// New creates a Hub and starts its delivery worker.
func New(log *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		log:             log,
		queueSize:       defaultQueueSize,
		clientQueueSize: defaultClientQueueSize,
		channels:        make(map[string]map[*Client]struct{}),
		clients:         make(map[*Client]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.queue = make(chan delivery, h.queueSize)

	h.wg.Add(1)
	go h.run()
	return h
}

// AttachRelay makes Publish go through r so that every instance sharing the
// relay delivers the frame. It must be called before the first Publish.
func (h *Hub) AttachRelay(ctx context.Context, r Relay) error {
	frames, err := r.Subscribe(ctx)
	if err != nil {
		return errors.Wrap(err, "hub: relay subscribe")
	}
	h.relay = r
	h.relayDone = make(chan struct{})
	go func() {
		defer close(h.relayDone)
		for f := range frames {
			h.enqueue(delivery{frame: f, remote: true})
		}
	}()
	return nil
}

// NewClient registers a connection for userID. It holds no subscriptions yet.
func (h *Hub) NewClient(userID uint) *Client {
	c := newClient(userID, h.clientQueueSize)
	h.mu.Lock()
	h.clients[c] = make(map[string]struct{})
	h.mu.Unlock()
	return c
}

// Subscribe attaches client to channel. Subscribing twice is a no-op and a
// disconnected client is ignored.
func (h *Hub) Subscribe(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.clients[c]
	if !ok {
		return
	}
	subs[channel] = struct{}{}
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]struct{})
	}
	h.channels[channel][c] = struct{}{}
}

// Unsubscribe detaches client from channel.
func (h *Hub) Unsubscribe(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.clients[c]; ok {
		delete(subs, channel)
	}
	h.detach(c, channel)
}

func (h *Hub) detach(c *Client, channel string) {
	if clients, ok := h.channels[channel]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}
}

// Disconnect removes client from every channel and closes its queue.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.clients[c]
	if !ok {
		return
	}
	for channel := range subs {
		h.detach(c, channel)
	}
	delete(h.clients, c)
	close(c.send)
}

// Subscribers returns the number of clients on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Dropped returns how many deliveries were discarded so far.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Publish hands ev to the delivery worker and returns. A channel without
// subscribers is not an error.
func (h *Hub) Publish(channel string, ev events.Event) {
	f, err := NewFrame(channel, ev)
	if err != nil {
		h.log.Error("hub: dropping unencodable event", "channel", channel, "error", err)
		return
	}
	h.enqueue(delivery{frame: f})
}

func (h *Hub) enqueue(d delivery) {
	h.qmu.RLock()
	defer h.qmu.RUnlock()
	if h.closed {
		return
	}
	select {
	case h.queue <- d:
	default:
		h.dropped.Add(1)
		h.log.Warn("hub: delivery queue full, dropping event",
			"channel", d.frame.Channel, "event", d.frame.Event)
	}
}

// run is the only consumer of the queue, which keeps per-channel order.
func (h *Hub) run() {
	defer h.wg.Done()
	for d := range h.queue {
		if h.relay != nil && !d.remote {
			h.forward(d.frame)
			continue
		}
		h.fanout(d.frame)
	}
}

func (h *Hub) forward(f Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
	defer cancel()
	if err := h.relay.Publish(ctx, f); err != nil {
		h.log.Warn("hub: relay publish failed, delivering locally",
			"channel", f.Channel, "event", f.Event, "error", err)
		h.fanout(f)
	}
}

func (h *Hub) fanout(f Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.channels[f.Channel]
	if len(clients) == 0 {
		return
	}
	msg, err := json.Marshal(f)
	if err != nil {
		h.log.Error("hub: encode frame", "channel", f.Channel, "error", err)
		return
	}
	for c := range clients {
		if !c.offer(msg) {
			h.dropped.Add(1)
			h.log.Warn("hub: client queue full, dropping event",
				"client", c.ID, "user_id", c.UserID, "channel", f.Channel, "event", f.Event)
		}
	}
}

// Close stops accepting events, drains the queue and detaches the relay.
func (h *Hub) Close() error {
	h.qmu.Lock()
	if h.closed {
		h.qmu.Unlock()
		return nil
	}
	h.closed = true
	close(h.queue)
	h.qmu.Unlock()

	h.wg.Wait()
	if h.relay == nil {
		return nil
	}
	err := h.relay.Close()
	<-h.relayDone
	return err
}

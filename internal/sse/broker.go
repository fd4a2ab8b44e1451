// Package sse implements a Server-Sent Events broker that pushes chart
// changes to connected editors.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// ChartUpdated is broadcast, throttled, after any chart change notified
// through Notify. A change inside the throttle window is not lost: one
// trailing chart.updated goes out when the window closes.
const ChartUpdated = "chart.updated"

const (
	clientBuffer     = 64
	defaultHeartbeat = 25 * time.Second
	reconnectHint    = 3 * time.Second
)

// Event is one chart notification.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets how often idle streams receive a comment line so
// proxies keep the connection open. Zero or negative disables it.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// Broker fans chart events out to SSE subscribers.
//
// A single goroutine owns the subscriber set, the event sequence and the
// chart.updated throttle state; the exported methods talk to it over
// channels.
type Broker struct {
	throttle  time.Duration
	heartbeat time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	eventCh       chan delivery
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

type delivery struct {
	event Event
	// change marks events from Notify, which also drive chart.updated.
	change bool
}

// NewBroker creates a broker sending at most one chart.updated per throttle
// interval. A non-positive throttle defaults to 500ms.
func NewBroker(throttle time.Duration, opts ...Option) *Broker {
	if throttle <= 0 {
		throttle = 500 * time.Millisecond
	}

	b := &Broker{
		throttle:      throttle,
		heartbeat:     defaultHeartbeat,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		eventCh:       make(chan delivery, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq        uint64
		lastUpdate time.Time
		pending    bool
		trailing   *time.Timer
		trailingCh <-chan time.Time
	)

	broadcast := func(event Event) {
		seq++
		msg, err := encode(seq, event)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	sendUpdate := func(now time.Time) {
		lastUpdate = now
		pending = false
		broadcast(Event{Type: ChartUpdated, Data: map[string]string{}})
	}

	for {
		select {
		case <-b.stopCh:
			if trailing != nil {
				trailing.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case d := <-b.eventCh:
			broadcast(d.event)
			if !d.change {
				continue
			}
			now := time.Now()
			if wait := b.throttle - now.Sub(lastUpdate); wait <= 0 {
				sendUpdate(now)
			} else if !pending {
				pending = true
				if trailing == nil {
					trailing = time.NewTimer(wait)
					trailingCh = trailing.C
				} else {
					trailing.Reset(wait)
				}
			}

		case now := <-trailingCh:
			if pending {
				sendUpdate(now)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// encode renders one SSE frame with an id, event name and JSON data line.
func encode(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(id, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(event.Type)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// Close stops the loop and closes every subscriber channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its channel. The channel is closed
// on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts event as is, without scheduling chart.updated.
func (b *Broker) Publish(event Event) {
	b.send(delivery{event: event})
}

// Notify broadcasts a chart change of the given kind and schedules a
// throttled chart.updated. A nil payload is sent as {}.
func (b *Broker) Notify(kind string, payload any) {
	if payload == nil {
		payload = map[string]string{}
	}
	b.send(delivery{event: Event{Type: kind, Data: payload}, change: true})
}

func (b *Broker) send(d delivery) {
	if b.closed.Load() {
		return
	}
	select {
	case b.eventCh <- d:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client until it disconnects or the broker
// closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", reconnectHint.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}

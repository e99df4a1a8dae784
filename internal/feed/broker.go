// Package feed implements the in-process fan-out broker behind the live
// placement feed. The placement pipeline publishes every committed placement;
// any number of transports (WebSocket today, anything else tomorrow) can
// subscribe per canvas and receive the same records the polling Activity
// endpoint serves.
//
// Delivery is best effort: each subscriber has a small buffer and a slow
// consumer silently drops messages rather than blocking the pipeline. Clients
// recover by re-reading the snapshot, exactly as a polling client would.
package feed

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
)

// defaultBufferSize is the per-subscriber channel depth.
const defaultBufferSize = 64

// subscriberGauge tracks currently connected live-feed subscribers.
var subscriberGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "pixelwar_feed_subscribers",
	Help: "Current number of live feed subscribers across all canvases.",
})

func init() {
	prometheus.MustRegister(subscriberGauge)
}

// Broker fans committed placements out to per-canvas subscribers.
// The zero value is not usable; construct with NewBroker.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*subscriber
	nextID      int64
	bufferSize  int
}

type subscriber struct {
	id     int64
	stream chan domain.Placement
}

// NewBroker returns an empty broker ready for use.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string]map[int64]*subscriber),
		bufferSize:  defaultBufferSize,
	}
}

// Subscribe registers a listener for one canvas and returns its stream plus a
// cleanup function. The stream is closed-over by ctx: cancellation
// unregisters automatically, and calling cleanup twice is safe.
func (b *Broker) Subscribe(ctx context.Context, canvasID string) (<-chan domain.Placement, func()) {
	if canvasID == "" {
		ch := make(chan domain.Placement)
		close(ch)
		return ch, func() {}
	}
	sub := &subscriber{
		id:     b.nextSequence(),
		stream: make(chan domain.Placement, b.bufferSize),
	}
	b.register(canvasID, sub)

	var once sync.Once
	cleanup := func() {
		once.Do(func() { b.unregister(canvasID, sub.id) })
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return sub.stream, cleanup
}

// Publish delivers a placement to every subscriber of its canvas. A full
// subscriber buffer drops the message instead of blocking.
func (b *Broker) Publish(p domain.Placement) {
	if p.CanvasID == "" {
		return
	}
	b.mu.RLock()
	subs := b.subscribers[p.CanvasID]
	if len(subs) == 0 {
		b.mu.RUnlock()
		return
	}
	copies := make([]*subscriber, 0, len(subs))
	for _, sub := range subs {
		copies = append(copies, sub)
	}
	b.mu.RUnlock()

	for _, sub := range copies {
		select {
		case sub.stream <- p:
		default:
		}
	}
}

// SubscriberCount reports the number of listeners on one canvas.
func (b *Broker) SubscriberCount(canvasID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[canvasID])
}

func (b *Broker) nextSequence() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return b.nextID
}

func (b *Broker) register(canvasID string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[canvasID]; !ok {
		b.subscribers[canvasID] = make(map[int64]*subscriber)
	}
	b.subscribers[canvasID][sub.id] = sub
	subscriberGauge.Inc()
}

func (b *Broker) unregister(canvasID string, subID int64) {
	b.mu.Lock()
	subs := b.subscribers[canvasID]
	if subs != nil {
		if _, ok := subs[subID]; ok {
			delete(subs, subID)
			subscriberGauge.Dec()
		}
		if len(subs) == 0 {
			delete(b.subscribers, canvasID)
		}
	}
	b.mu.Unlock()
}

package realtime

import (
	"sync"

	"github.com/tabia/api/data/events"
	"github.com/tabia/api/internal/instance"
	"go.uber.org/zap"
)

// Subscriber receives encoded frames for topics it subscribed to.
// Deliver must not block; it reports false when the frame was dropped.
type Subscriber interface {
	ID() string
	Deliver(b []byte) bool
}

// Hub is the broadcast dispatcher: it fans published updates out to
// every subscriber of the update's topic, fire-and-forget. There is no
// delivery confirmation and no replay; late subscribers only get the
// presence snapshot sent at subscribe time.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[Subscriber]struct{}
	subs   map[Subscriber]map[string]struct{}

	// pubMu serializes fan-out so every subscriber of a topic observes
	// published updates in the same order.
	pubMu sync.Mutex

	bridge       instance.Events
	bridgePrefix string
	prom         instance.Prometheus
}

type HubOptions struct {
	// Bridge, when set, receives a mirror of every published update.
	Bridge       instance.Events
	BridgePrefix string

	Prometheus instance.Prometheus
}

func NewHub(opt HubOptions) *Hub {
	return &Hub{
		topics:       map[string]map[Subscriber]struct{}{},
		subs:         map[Subscriber]map[string]struct{}{},
		bridge:       opt.Bridge,
		bridgePrefix: opt.BridgePrefix,
		prom:         opt.Prometheus,
	}
}

func (h *Hub) Subscribe(sub Subscriber, topics ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	owned := h.subs[sub]
	if owned == nil {
		owned = map[string]struct{}{}
		h.subs[sub] = owned
	}

	for _, topic := range topics {
		set := h.topics[topic]
		if set == nil {
			set = map[Subscriber]struct{}{}
			h.topics[topic] = set
		}

		set[sub] = struct{}{}
		owned[topic] = struct{}{}
	}
}

func (h *Hub) Unsubscribe(sub Subscriber, topics ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range topics {
		h.dropLocked(sub, topic)
	}
}

// UnsubscribeAll removes the subscriber from every topic it was in.
// Called during disconnect cleanup, before presence is removed.
func (h *Hub) UnsubscribeAll(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic := range h.subs[sub] {
		h.dropLocked(sub, topic)
	}

	delete(h.subs, sub)
}

func (h *Hub) dropLocked(sub Subscriber, topic string) {
	if set := h.topics[topic]; set != nil {
		delete(set, sub)

		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}

	if owned := h.subs[sub]; owned != nil {
		delete(owned, topic)
	}
}

// SubscriberCount returns how many subscribers a topic currently has.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.topics[topic])
}

// Publish encodes the update once and delivers it to every subscriber
// of its topic. Slow subscribers are skipped rather than awaited.
func (h *Hub) Publish(u events.Update) error {
	frame, err := encodeBroadcast(u)
	if err != nil {
		return err
	}

	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	h.mu.RLock()
	set := h.topics[u.Topic()]
	targets := make([]Subscriber, 0, len(set))

	for sub := range set {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if !sub.Deliver(frame) {
			zap.S().Warnw("dropped broadcast for slow subscriber",
				"topic", u.Topic(),
				"subscriber", sub.ID(),
			)
		}
	}

	if h.prom != nil {
		h.prom.BroadcastsPublished().Inc()
	}

	h.mirror(u)

	return nil
}

func (h *Hub) mirror(u events.Update) {
	if h.bridge == nil {
		return
	}

	payload, err := events.Marshal(u)
	if err != nil {
		return
	}

	subject := events.BridgeSubject(h.bridgePrefix, u.Session(), u.Category())

	if err = h.bridge.Publish(subject, payload); err != nil {
		zap.S().Errorw("event bridge publish failed",
			"subject", subject,
			"error", err,
		)
	}
}

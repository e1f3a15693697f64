package tascam

import (
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Synthesized lifecycle payloads delivered to subscribers at socket
// open/close boundaries, exactly as if they were wire traffic.
const (
	syntheticPowerOn  = "!7SSTON"
	syntheticPowerOff = "!7SSTOFF"
)

type subscriber struct {
	id       uuid.UUID
	match    string
	matchAll bool
	fn       func(string)
}

// subscriberRegistry fans raw wire events out to registered listeners.
// Listeners are keyed by generated handles rather than callback
// identity so registration order and closure equality never matter.
type subscriberRegistry struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]*subscriber
	logger *log.Logger
}

func newSubscriberRegistry(logger *log.Logger) *subscriberRegistry {
	return &subscriberRegistry{
		subs:   make(map[uuid.UUID]*subscriber),
		logger: logger,
	}
}

// register adds a listener and returns its unregister function.
// An empty match delivers every event.
func (r *subscriberRegistry) register(fn func(string), match string) func() {
	sub := &subscriber{
		id:       uuid.New(),
		match:    match,
		matchAll: match == "",
		fn:       fn,
	}

	r.mu.Lock()
	r.subs[sub.id] = sub
	r.mu.Unlock()

	r.logger.Printf("TASCAM: registered subscriber %s (match %q)", sub.id, match)
	return func() { r.unregister(sub.id) }
}

func (r *subscriberRegistry) unregister(id uuid.UUID) {
	r.mu.Lock()
	sub, ok := r.subs[id]
	if ok {
		delete(r.subs, id)
	}
	r.mu.Unlock()

	if ok {
		r.logger.Printf("TASCAM: unregistered subscriber %s (match %q)", sub.id, sub.match)
	}
}

// notify delivers a raw payload to every listener whose match string
// is contained in it. Callbacks run outside the registry lock.
func (r *subscriberRegistry) notify(payload string) {
	r.mu.Lock()
	var targets []func(string)
	for _, sub := range r.subs {
		if sub.matchAll || strings.Contains(payload, sub.match) {
			targets = append(targets, sub.fn)
		}
	}
	r.mu.Unlock()

	for _, fn := range targets {
		fn(payload)
	}
}

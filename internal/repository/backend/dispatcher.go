package backend

import (
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// change is a pending notification.
type change struct {
	key   string
	value *structpb.Value
}

// dispatcher owns the handler table and delivers changes one at a time.
// A change emitted while another one is being delivered, including from
// inside a handler, is queued and delivered by the goroutine already
// dispatching, so handlers never run concurrently or re-entrantly.
type dispatcher struct {
	// handlersMu protects handlers.
	handlersMu sync.RWMutex
	// handlers maps a key to its handlers in registration order.
	handlers map[string][]Handler

	// queueMu protects queue and running.
	queueMu sync.Mutex
	queue   []change
	running bool
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		handlers: make(map[string][]Handler),
	}
}

// connect appends handler to the list for key.
func (d *dispatcher) connect(key string, handler Handler) {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()

	d.handlers[key] = append(d.handlers[key], handler)
}

// enqueue appends a change without delivering it. Callers enqueue while
// holding the state lock so the queue order matches the order of writes.
func (d *dispatcher) enqueue(key string, value *structpb.Value) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()

	d.queue = append(d.queue, change{key: key, value: value})
}

// drain delivers queued changes unless a drain is already in progress, in
// which case that drain picks them up.
func (d *dispatcher) drain() {
	d.queueMu.Lock()

	if d.running {
		d.queueMu.Unlock()

		return
	}

	d.running = true

	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		d.queueMu.Unlock()

		d.deliver(next)

		d.queueMu.Lock()
	}

	d.running = false
	d.queueMu.Unlock()
}

// deliver calls every handler registered for the change key.
func (d *dispatcher) deliver(c change) {
	d.handlersMu.RLock()
	handlers := d.handlers[c.key]
	d.handlersMu.RUnlock()

	for _, h := range handlers {
		// Each handler gets its own copy so it cannot alter what others see.
		value, _ := proto.Clone(c.value).(*structpb.Value)
		h(c.key, value)
	}
}

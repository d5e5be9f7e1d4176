package ipc

import (
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/veloxhq/velox/internal/event"
	"github.com/veloxhq/velox/internal/logging"
)

// DeferredTable tracks pending asynchronous results keyed by generated
// id. Allocation, lookup and settlement may all happen from different
// goroutines. A slot whose responder never settles it stays pending
// forever; the table does not garbage-collect stale slots.
type DeferredTable struct {
	mu    sync.Mutex
	slots map[string]*Deferred

	log zerolog.Logger
	bus *event.Bus
}

// NewDeferredTable creates an empty deferred slot table.
func NewDeferredTable() *DeferredTable {
	return &DeferredTable{
		slots: make(map[string]*Deferred),
		log:   logging.Component("ipc.deferred"),
	}
}

// Allocate creates a pending slot. The deliver callback receives the
// settled response exactly once; it may be nil when no one consumes the
// result.
func (t *DeferredTable) Allocate(deliver func(Response)) *Deferred {
	d := &Deferred{
		id:      ulid.Make().String(),
		table:   t,
		deliver: deliver,
	}
	t.mu.Lock()
	t.slots[d.id] = d
	t.mu.Unlock()
	return d
}

// Get returns the pending slot with the given id, if any. Settled slots
// are removed from the table and no longer found.
func (t *DeferredTable) Get(id string) (*Deferred, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.slots[id]
	return d, ok
}

// Len returns the number of slots still pending.
func (t *DeferredTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}

// remove drops a settled slot from the table.
func (t *DeferredTable) remove(id string) {
	t.mu.Lock()
	delete(t.slots, id)
	t.mu.Unlock()
}

// Deferred is a placeholder for a command result that arrives after the
// invocation call returns. It settles exactly once: the first Resolve,
// ResolveBinary or Reject wins and every later call is a silent no-op.
type Deferred struct {
	id      string
	table   *DeferredTable
	deliver func(Response)

	mu      sync.Mutex
	settled bool
}

// ID returns the generated slot id.
func (d *Deferred) ID() string { return d.id }

// Resolve settles the slot with a success value.
func (d *Deferred) Resolve(value any) {
	d.settle(Ok(value), event.DeferredResolved)
}

// ResolveBinary settles the slot with a raw byte payload.
func (d *Deferred) ResolveBinary(body []byte) {
	d.settle(Binary(body), event.DeferredResolved)
}

// Reject settles the slot with a structured error. Code and message are
// preserved verbatim.
func (d *Deferred) Reject(code, message string) {
	d.settle(Fail(code, message), event.DeferredRejected)
}

// settle records the response once and delivers it outside the slot lock.
func (d *Deferred) settle(resp Response, t event.Type) {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return
	}
	d.settled = true
	d.mu.Unlock()

	d.table.remove(d.id)
	d.table.log.Debug().
		Str("deferred", d.id).
		Str("code", resp.ErrorCode()).
		Msg("deferred slot settled")
	if d.table.bus != nil {
		d.table.bus.Publish(event.Event{
			Type: t,
			Data: event.DeferredSettledData{
				DeferredID: d.id,
				Code:       resp.ErrorCode(),
				Message:    resp.ErrorMessage(),
			},
		})
	}
	if d.deliver != nil {
		d.deliver(resp)
	}
}

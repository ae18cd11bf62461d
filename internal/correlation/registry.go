// Package correlation maintains the table of in-flight requests and delivers
// each broker reply to its waiter exactly once.
package correlation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linkedout/api-gateway/internal/domain"
)

// Terminal states of a pending slot. A slot moves from statePending to
// exactly one terminal state; the transition is claimed with a CAS so the
// reply listener and the waiter's timeout can race safely.
const (
	statePending int32 = iota
	stateCompleted
	stateTimedOut
	stateCancelled
)

var (
	// ErrDuplicateCorrelation means a correlation id was registered twice.
	// Ids are UUIDs, so this indicates a broken client or an internal bug and
	// is surfaced as a fatal internal error for the losing request.
	ErrDuplicateCorrelation = errors.New("correlation id already registered")

	// ErrRegistryFull means the configured in-flight ceiling was reached.
	ErrRegistryFull = errors.New("correlation registry full")

	// ErrTimedOut means no reply arrived before the slot deadline.
	ErrTimedOut = errors.New("timed out awaiting reply")

	// ErrCancelled means the request context was cancelled while awaiting.
	ErrCancelled = errors.New("await cancelled")
)

// Outcome reports what Complete did with a reply.
type Outcome int

const (
	// Delivered means the reply reached its waiter.
	Delivered Outcome = iota
	// Orphan means no slot exists for the correlation id.
	Orphan
	// LateCompletion means the slot had already timed out or been cancelled.
	LateCompletion
)

// Slot is one pending request awaiting its reply. The reply channel has
// capacity one and is written at most once, by whichever party wins the
// terminal-state claim.
type Slot struct {
	id        string
	createdAt time.Time
	deadline  time.Time
	state     atomic.Int32
	reply     chan domain.ResponseEnvelope
}

// ID returns the slot's correlation id.
func (s *Slot) ID() string { return s.id }

// Registry is the shared table of pending slots. All methods are safe for
// concurrent use.
type Registry struct {
	mu          sync.Mutex
	slots       map[string]*Slot
	maxInFlight int
}

// NewRegistry creates a registry. maxInFlight of zero means unlimited.
func NewRegistry(maxInFlight int) *Registry {
	return &Registry{
		slots:       make(map[string]*Slot),
		maxInFlight: maxInFlight,
	}
}

// Register inserts a new pending slot for id. The caller must eventually
// call Await (which deregisters on every exit path) or Remove.
func (r *Registry) Register(id string, deadline time.Time) (*Slot, error) {
	slot := &Slot{
		id:        id,
		createdAt: time.Now(),
		deadline:  deadline,
		reply:     make(chan domain.ResponseEnvelope, 1),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.slots[id]; exists {
		return nil, ErrDuplicateCorrelation
	}
	if r.maxInFlight > 0 && len(r.slots) >= r.maxInFlight {
		return nil, ErrRegistryFull
	}
	r.slots[id] = slot
	return slot, nil
}

// Await blocks until the slot completes, its deadline elapses, or ctx is
// cancelled, whichever claims the terminal state first. The slot is always
// deregistered before Await returns.
func (r *Registry) Await(ctx context.Context, slot *Slot) (domain.ResponseEnvelope, error) {
	defer r.Remove(slot.id)

	timer := time.NewTimer(time.Until(slot.deadline))
	defer timer.Stop()

	select {
	case env := <-slot.reply:
		return env, nil
	case <-timer.C:
		if slot.state.CompareAndSwap(statePending, stateTimedOut) {
			return domain.ResponseEnvelope{}, ErrTimedOut
		}
		// A completion claimed the slot first; its reply is in flight on the
		// buffered channel.
		return <-slot.reply, nil
	case <-ctx.Done():
		if slot.state.CompareAndSwap(statePending, stateCancelled) {
			return domain.ResponseEnvelope{}, ErrCancelled
		}
		return <-slot.reply, nil
	}
}

// Complete resolves the slot for id with env. Called by the reply listener.
func (r *Registry) Complete(id string, env domain.ResponseEnvelope) Outcome {
	r.mu.Lock()
	slot, ok := r.slots[id]
	r.mu.Unlock()
	if !ok {
		return Orphan
	}
	if !slot.state.CompareAndSwap(statePending, stateCompleted) {
		return LateCompletion
	}
	slot.reply <- env
	return Delivered
}

// Remove deletes the slot for id, if present.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.slots, id)
	r.mu.Unlock()
}

// Len returns the number of in-flight slots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

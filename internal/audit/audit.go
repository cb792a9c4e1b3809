// Package audit records the pipeline's key actions append-only. Regulated
// onboarding needs a trail of what was checked and what the system decided;
// events flow through a channel worker so emitting never blocks a check.
package audit

import (
	"context"
	"sync"
	"time"
)

// Actions recorded by the pipeline.
const (
	ActionIngest = "identity.ingest"
	ActionCheck  = "identity.check"
	ActionTrain  = "model.train"
)

// Event captures one audited action. Keep it transport-agnostic so stores
// and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Action    string
	EntityID  string // subject entity where applicable
	ModelID   string // model involved in the action
	Outcome   string // e.g. "duplicate", "unique", "published"
	Detail    string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context) ([]Event, error)
}

// MemoryStore keeps events in memory; enough for tests and single-node runs.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...), nil
}

// Publisher hands events to the worker without blocking the caller. Events
// are dropped when the inbox is full; an audit backlog must not stall checks.
type Publisher struct {
	inbox chan<- Event
}

func NewPublisher(inbox chan<- Event) *Publisher {
	return &Publisher{inbox: inbox}
}

// Emit queues an event, stamping the time when unset. Returns false when the
// inbox is full and the event was dropped.
func (p *Publisher) Emit(event Event) bool {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
		return true
	default:
		return false
	}
}

// Worker consumes audit events from a channel and persists them. It keeps
// background processing testable without wiring queue implementations.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}

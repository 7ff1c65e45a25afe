// Package audit records one event per processed identity so downstream
// systems can reconcile what the migration did. Publishing is best effort
// and optional; a run without brokers configured uses NopPublisher.
package audit

import (
	"context"
	"sync"
	"time"
)

// Outcome classifies what happened to one identity.
type Outcome string

const (
	OutcomeMigrated Outcome = "migrated"
	OutcomeFailed   Outcome = "failed"
	OutcomeDryRun   Outcome = "dry_run"
)

// Event is the append-only record of one per-identity outcome.
type Event struct {
	RunID     string    `json:"run_id"`
	LoginID   string    `json:"login_id"`
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher captures structured audit events.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// NopPublisher drops every event; used when auditing is not configured.
type NopPublisher struct{}

func (NopPublisher) Emit(context.Context, Event) error { return nil }

// MemoryPublisher buffers events in memory so tests can assert on them.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Emit(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything emitted so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

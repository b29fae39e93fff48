package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventLockAcquired  EventType = "lock_acquired"
	EventLockDenied    EventType = "lock_denied"
	EventLockBroken    EventType = "lock_broken"
	EventLockReleased  EventType = "lock_released"
	EventDocumentLoad  EventType = "document_load"
	EventDocumentSave  EventType = "document_save"
	EventIterationRun  EventType = "iteration_run"
	EventIterationSkip EventType = "iteration_skip"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// LockEvent reports a lock transition on a document path.
type LockEvent struct {
	EventBase
	Path   string    `json:"path"`
	State  LockState `json:"state"`
	Holder LockInfo  `json:"holder"`
}

// DocumentEvent reports a load or save.
type DocumentEvent struct {
	EventBase
	Path  string `json:"path"`
	Nodes int    `json:"nodes"`
	Err   error  `json:"-"`
}

// IterationEvent reports the verdict for one loop iteration.
type IterationEvent struct {
	EventBase
	LoopNode  string `json:"loop_node"`
	Iterator  string `json:"iterator"`
	IterValue string `json:"iter_value"`
}

// LifecycleHooks defines callbacks for observability. Nil hooks are skipped.
type LifecycleHooks struct {
	OnLock      func(context.Context, *LockEvent)
	OnDocument  func(context.Context, *DocumentEvent)
	OnIteration func(context.Context, *IterationEvent)
}

// NewEventBase stamps an event of type t with the current time.
func NewEventBase(t EventType) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t}
}

// EmitLock calls OnLock if set.
func (h LifecycleHooks) EmitLock(ctx context.Context, e *LockEvent) {
	if h.OnLock != nil {
		h.OnLock(ctx, e)
	}
}

// EmitDocument calls OnDocument if set.
func (h LifecycleHooks) EmitDocument(ctx context.Context, e *DocumentEvent) {
	if h.OnDocument != nil {
		h.OnDocument(ctx, e)
	}
}

// EmitIteration calls OnIteration if set.
func (h LifecycleHooks) EmitIteration(ctx context.Context, e *IterationEvent) {
	if h.OnIteration != nil {
		h.OnIteration(ctx, e)
	}
}

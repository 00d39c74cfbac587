package tasks

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNoHandler   = errors.New("no handler registered for task kind")
	ErrMissingKind = errors.New("task kind is required")
)

// Task is a unit of deferred work.
type Task struct {
	ID        string          `json:"id,omitempty"`
	Kind      string          `json:"kind"`
	RequestID string          `json:"request_id,omitempty"`
	Attempt   int             `json:"attempt"`
	Payload   json.RawMessage `json:"payload"`
}

// NewTask encodes payload as JSON into a task of the given kind.
func NewTask(kind string, payload interface{}) (Task, error) {
	if kind == "" {
		return Task{}, ErrMissingKind
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Task{}, err
	}
	return Task{Kind: kind, Payload: raw}, nil
}

// Decode unmarshals the task payload into out.
func (t Task) Decode(out interface{}) error {
	return json.Unmarshal(t.Payload, out)
}

// Handler processes a task.
type Handler func(ctx context.Context, task Task) error

// Submitter enqueues tasks for asynchronous processing.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// Publisher sends a message to an arbitrary topic for consumers outside this process.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, metadata map[string]string) error
}

// Queue is a task queue with an in-process consumer.
type Queue interface {
	Submitter
	Publisher
	// Handle registers the handler for a task kind. Call before Start.
	Handle(kind string, h Handler)
	// Start begins consuming in the background and returns once subscribed.
	Start(ctx context.Context) error
	Close() error
}

// Listener provides hooks into task processing for logging and metrics.
type Listener struct {
	OnTaskStart  func(ctx context.Context, task Task)
	OnTaskFinish func(ctx context.Context, task Task, err error)
	OnError      func(ctx context.Context, task Task, err error)
}

type handlerSet struct {
	handlers  map[string]Handler
	listeners []Listener
}

func newHandlerSet(listeners []Listener) handlerSet {
	return handlerSet{handlers: make(map[string]Handler), listeners: listeners}
}

func (s handlerSet) register(kind string, h Handler) {
	if kind == "" || h == nil {
		return
	}
	s.handlers[kind] = h
}

func (s handlerSet) dispatch(ctx context.Context, task Task) error {
	handler, ok := s.handlers[task.Kind]
	if !ok {
		return ErrNoHandler
	}
	for _, l := range s.listeners {
		if l.OnTaskStart != nil {
			l.OnTaskStart(ctx, task)
		}
	}
	err := handler(ctx, task)
	for _, l := range s.listeners {
		if l.OnTaskFinish != nil {
			l.OnTaskFinish(ctx, task, err)
		}
	}
	if err != nil {
		s.notifyError(ctx, task, err)
	}
	return err
}

func (s handlerSet) notifyError(ctx context.Context, task Task, err error) {
	for _, l := range s.listeners {
		if l.OnError != nil {
			l.OnError(ctx, task, err)
		}
	}
}

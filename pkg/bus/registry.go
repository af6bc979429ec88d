package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/carebridge/carebridge/pkg/fault"
)

// Handler processes one typed request and returns the matching response.
// Handlers are stateless between calls.
type Handler func(ctx context.Context, payload any) (any, error)

// registration binds an agent name to the single message type it accepts.
type registration struct {
	accepts MessageType
	handle  Handler
}

// Registry is the process-wide agent address book. Agents are registered
// at engine construction; there is no global mutable state.
type Registry struct {
	mu          sync.RWMutex
	agents      map[string]registration
	subscribers []func(WorkflowUpdate)

	conversations *ConversationLog
	logger        *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		agents:        make(map[string]registration),
		conversations: NewConversationLog(256),
		logger:        slog.With("component", "bus"),
	}
}

// Register binds an agent name to its message type and handler.
// Re-registering a name is a wiring bug and returns an error.
func (r *Registry) Register(name string, accepts MessageType, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("agent %q already registered", name)
	}
	r.agents[name] = registration{accepts: accepts, handle: h}
	return nil
}

// Subscribe adds a one-way consumer for every WorkflowUpdate the bus sees.
func (r *Registry) Subscribe(fn func(WorkflowUpdate)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Conversations returns the bounded in-memory conversation log.
func (r *Registry) Conversations() *ConversationLog {
	return r.conversations
}

// Call dispatches a typed request to the named agent and waits for its
// response. Handler failures convert to fault.RemoteError at this
// boundary; only RemoteError and TimeoutError cross it. The context
// carries cancellation from the coordinator; a handler may ignore it for
// at-least-once semantics, but the caller stops waiting.
func (r *Registry) Call(ctx context.Context, from, to string, msgType MessageType, payload any, timeout time.Duration) (any, error) {
	r.mu.RLock()
	reg, ok := r.agents[to]
	r.mu.RUnlock()
	if !ok {
		return nil, &fault.RemoteError{Kind: "not_found", Message: fmt.Sprintf("no agent registered as %q", to)}
	}
	if reg.accepts != msgType {
		return nil, &fault.RemoteError{Kind: "validation",
			Message: fmt.Sprintf("agent %q accepts %s, got %s", to, reg.accepts, msgType)}
	}

	conv := r.conversations.Begin(from, to, msgType, payload)

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		resp any
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := reg.handle(callCtx, payload)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, fault.ErrCancelled) || errors.Is(out.err, context.Canceled) {
				r.conversations.Complete(conv, nil, "cancelled")
				return nil, fault.ErrCancelled
			}
			remote := &fault.RemoteError{Kind: fault.KindOf(out.err), Message: out.err.Error()}
			r.conversations.Complete(conv, nil, "error")
			return nil, remote
		}
		r.conversations.Complete(conv, out.resp, "completed")
		return out.resp, nil
	case <-callCtx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			r.conversations.Complete(conv, nil, "cancelled")
			return nil, fault.ErrCancelled
		}
		r.conversations.Complete(conv, nil, "timeout")
		return nil, fault.NewTimeout("agent:"+to, timeout)
	}
}

// Notify fans a workflow update out to every subscriber. Fire-and-forget:
// the caller never blocks on a consumer.
func (r *Registry) Notify(update WorkflowUpdate) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}
	r.mu.RLock()
	subs := make([]func(WorkflowUpdate), len(r.subscribers))
	copy(subs, r.subscribers)
	r.mu.RUnlock()

	for _, fn := range subs {
		go fn(update)
	}
}

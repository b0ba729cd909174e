package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Handler processes one envelope. Handlers must be fast or hand heavy work
// to their own goroutines: the bus imposes no timeout, so in synchronous
// mode a hung handler blocks the publisher.
type Handler interface {
	Handle(ctx context.Context, evt Envelope) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Envelope) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Envelope) error {
	return f(ctx, evt)
}

// SubscriptionID is the opaque key identifying one subscription. The same
// handler may hold several subscriptions with different scopes or filters.
type SubscriptionID string

// IdentityResolver is the bus's view of the identity registry, consulted on
// every publish when strict mode is enabled.
type IdentityResolver interface {
	// LookupAgent reports whether the agent is registered and, if so,
	// whether it is currently active.
	LookupAgent(agentID string) (known, active bool)
}

// ErrorHandler receives handler failures that cannot be carried in a
// dispatch report (asynchronous dispatch mode).
type ErrorHandler func(evt Envelope, subID SubscriptionID, err error)

// Bus is the dispatch core: a thread-safe in-process publish/subscribe bus
// with type-scoped and global subscription routing, a bounded history ring,
// and per-handler failure isolation.
//
// All methods are safe for concurrent use. A single lock covers subscription
// table mutation, history insertion, and the dispatch-list snapshot taken by
// Publish; handlers are invoked outside the lock so subscription churn is
// never blocked by slow handlers, and handlers may themselves call Subscribe,
// Unsubscribe, or Publish without deadlocking. A subscriber added mid-dispatch
// does not receive the in-flight event; one removed mid-dispatch is still
// invoked for it (snapshot semantics).
type Bus struct {
	mu      sync.Mutex
	byType  map[EventType][]*subscription
	global  []*subscription
	index   map[SubscriptionID]*subscription
	history *ring
	closed  bool

	nextID atomic.Int64

	maxHistory int
	resolver   IdentityResolver
	async      bool
	onError    ErrorHandler
	logger     *slog.Logger
}

type subscription struct {
	id      SubscriptionID
	scope   EventType // empty = all types
	all     bool
	handler Handler
	filter  Filter // nil = match everything in scope
}

// BusOption configures bus construction.
type BusOption func(*Bus)

// DefaultMaxHistory is the history ring capacity when WithMaxHistory is not
// supplied.
const DefaultMaxHistory = 1000

// WithMaxHistory sets the history ring capacity. Zero disables retention:
// nothing is stored, though dispatch still occurs.
func WithMaxHistory(n int) BusOption {
	return func(b *Bus) {
		if n < 0 {
			n = 0
		}
		b.maxHistory = n
	}
}

// WithStrictIdentity enables strict mode: every published envelope's agent
// ID must resolve to a registered, active identity in the resolver.
func WithStrictIdentity(resolver IdentityResolver) BusOption {
	return func(b *Bus) {
		b.resolver = resolver
	}
}

// WithAsyncDispatch makes Publish fire each matched handler in its own
// goroutine. Ordering between handlers is not guaranteed in this mode;
// per-handler failure isolation is preserved and failures are delivered to
// the OnError callback instead of the dispatch report.
func WithAsyncDispatch() BusOption {
	return func(b *Bus) {
		b.async = true
	}
}

// WithErrorHandler sets the callback receiving asynchronous handler failures.
func WithErrorHandler(fn ErrorHandler) BusOption {
	return func(b *Bus) {
		b.onError = fn
	}
}

// WithLogger attaches a structured logger for subscribe/dispatch diagnostics.
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates an event bus.
//
//	bus := event.NewBus(
//		event.WithMaxHistory(500),
//		event.WithStrictIdentity(registry),
//	)
//	defer bus.Close()
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		byType:     make(map[EventType][]*subscription),
		index:      make(map[SubscriptionID]*subscription),
		maxHistory: DefaultMaxHistory,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.history = newRing(b.maxHistory)
	return b
}

// SubscribeOption configures one subscription.
type SubscribeOption func(*subscription)

// WithFilter attaches a predicate evaluated before the handler is invoked.
func WithFilter(f Filter) SubscribeOption {
	return func(s *subscription) {
		s.filter = f
	}
}

// Subscribe registers handler for envelopes of exactly eventType.
// It returns a fresh subscription ID, or the zero ID if the bus is closed.
func (b *Bus) Subscribe(eventType EventType, handler Handler, opts ...SubscribeOption) SubscriptionID {
	return b.subscribe(eventType, false, handler, opts)
}

// SubscribeAll registers handler for every envelope regardless of type.
// Global handlers observe each event after all type-scoped handlers.
func (b *Bus) SubscribeAll(handler Handler, opts ...SubscribeOption) SubscriptionID {
	return b.subscribe("", true, handler, opts)
}

func (b *Bus) subscribe(scope EventType, all bool, handler Handler, opts []SubscribeOption) SubscriptionID {
	sub := &subscription{
		scope:   scope,
		all:     all,
		handler: handler,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ""
	}

	sub.id = SubscriptionID(fmt.Sprintf("sub-%d", b.nextID.Add(1)))
	b.index[sub.id] = sub
	if all {
		b.global = append(b.global, sub)
	} else {
		b.byType[scope] = append(b.byType[scope], sub)
	}

	b.log("subscription added", slog.String("subscription_id", string(sub.id)), slog.String("scope", scopeLabel(sub)))
	return sub.id
}

// Unsubscribe removes the subscription with the given ID. Unknown IDs are a
// no-op: unsubscription is idempotent so concurrent unsubscribe races never
// fail.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.index[id]
	if !ok {
		return
	}
	delete(b.index, id)

	if sub.all {
		b.global = removeSub(b.global, id)
	} else {
		b.byType[sub.scope] = removeSub(b.byType[sub.scope], id)
		if len(b.byType[sub.scope]) == 0 {
			delete(b.byType, sub.scope)
		}
	}

	b.log("subscription removed", slog.String("subscription_id", string(id)))
}

// removeSub deletes the entry with the given ID, preserving registration
// order of the remaining entries.
func removeSub(subs []*subscription, id SubscriptionID) []*subscription {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}

// Publish dispatches evt to all matching subscribers and records it in the
// history ring.
//
// Dispatch order is a contract: handlers subscribed to evt's exact type fire
// first, then global handlers, each group in registration order. A failing
// handler is recorded in the report and never interrupts delivery to the
// rest. Publish itself fails only when the bus is closed or a strict-mode
// identity check rejects the publisher; in that case nothing is recorded
// and nothing is dispatched.
func (b *Bus) Publish(ctx context.Context, evt Envelope) (DispatchReport, error) {
	if b.resolver != nil {
		known, active := b.resolver.LookupAgent(evt.AgentID)
		switch {
		case !known:
			return DispatchReport{}, &UnknownAgentError{AgentID: evt.AgentID}
		case !active:
			return DispatchReport{}, &InactiveAgentError{AgentID: evt.AgentID}
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return DispatchReport{}, ErrBusClosed
	}

	b.history.append(evt)

	// Snapshot under the lock: type-scoped subscribers first, then global,
	// each in registration order.
	typed := b.byType[evt.Type]
	matched := make([]*subscription, 0, len(typed)+len(b.global))
	matched = append(matched, typed...)
	matched = append(matched, b.global...)
	b.mu.Unlock()

	report := DispatchReport{Async: b.async}
	for _, sub := range matched {
		if sub.filter != nil && !sub.filter(evt) {
			continue
		}
		report.Matched++

		if b.async {
			go b.invokeAsync(ctx, sub, evt)
			continue
		}

		if err := safeInvoke(ctx, sub.handler, evt); err != nil {
			report.Failures = append(report.Failures, HandlerError{
				SubscriptionID: sub.id,
				EventID:        evt.EventID,
				Err:            err,
			})
			b.log("handler failed",
				slog.String("subscription_id", string(sub.id)),
				slog.String("event_type", string(evt.Type)),
				slog.String("event_id", evt.EventID),
				slog.String("error", err.Error()),
			)
			continue
		}
		report.Succeeded++
	}

	return report, nil
}

func (b *Bus) invokeAsync(ctx context.Context, sub *subscription, evt Envelope) {
	if err := safeInvoke(ctx, sub.handler, evt); err != nil {
		b.log("async handler failed",
			slog.String("subscription_id", string(sub.id)),
			slog.String("event_id", evt.EventID),
			slog.String("error", err.Error()),
		)
		if b.onError != nil {
			b.onError(evt, sub.id, err)
		}
	}
}

// safeInvoke calls the handler, converting panics into errors so one bad
// subscriber can never unwind the publish call stack.
func safeInvoke(ctx context.Context, h Handler, evt Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, evt)
}

// HistoryFilter narrows History results. Zero values act as wildcards.
type HistoryFilter struct {
	AgentID string    // match events from this agent only
	Type    EventType // match this event type only
	Limit   int       // keep only the most recent Limit entries (after matching)
}

// History returns a snapshot of retained envelopes, oldest first. The result
// is a copy; later publishes do not alter it.
func (b *Bus) History(filter HistoryFilter) []Envelope {
	b.mu.Lock()
	events := b.history.snapshot()
	b.mu.Unlock()

	if filter.AgentID != "" || filter.Type != "" {
		kept := events[:0]
		for _, e := range events {
			if filter.AgentID != "" && e.AgentID != filter.AgentID {
				continue
			}
			if filter.Type != "" && e.Type != filter.Type {
				continue
			}
			kept = append(kept, e)
		}
		events = kept
	}

	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events
}

// ClearHistory discards all retained envelopes.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history.clear()
}

// Status reports subscriber count, retained history size, and the configured
// history capacity. Introspection only; no side effects.
func (b *Bus) Status() BusStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BusStatus{
		SubscriberCount: len(b.index),
		HistorySize:     b.history.len(),
		MaxHistory:      b.history.capacity(),
	}
}

// Close tears down the bus: all subscriptions are removed and subsequent
// Publish calls return ErrBusClosed. Close is idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.byType = make(map[EventType][]*subscription)
	b.global = nil
	b.index = make(map[SubscriptionID]*subscription)
	return nil
}

// Closed reports whether Close has been called.
func (b *Bus) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func scopeLabel(s *subscription) string {
	if s.all {
		return "all"
	}
	return string(s.scope)
}

func (b *Bus) log(msg string, attrs ...slog.Attr) {
	if b.logger == nil {
		return
	}
	b.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}

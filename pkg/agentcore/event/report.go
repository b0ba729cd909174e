package event

// DispatchReport summarizes one Publish call: how many subscriptions matched
// the envelope, how many handlers returned successfully, and the individual
// handler failures. Publish never fails because a handler failed; failures
// surface only here.
type DispatchReport struct {
	// Matched counts subscriptions whose scope and filter accepted the event.
	Matched int

	// Succeeded counts handlers that returned without error. In asynchronous
	// dispatch mode handlers run after Publish returns, so Succeeded is zero
	// and failures are routed to the bus's OnError callback instead.
	Succeeded int

	// Failures holds one entry per handler that returned an error or panicked.
	Failures []HandlerError

	// Async reports whether handlers were dispatched as fire-and-forget
	// tasks rather than invoked inline.
	Async bool
}

// Failed counts handlers that were invoked and failed.
func (r DispatchReport) Failed() int {
	return len(r.Failures)
}

// BusStatus is the point-in-time introspection shape returned by Bus.Status.
type BusStatus struct {
	SubscriberCount int `json:"subscriber_count"`
	HistorySize     int `json:"history_size"`
	MaxHistory      int `json:"max_history"`
}

package event

// Filter is a pure predicate over envelopes, evaluated by the bus before a
// handler is invoked. Filters let a subscription express interest in a
// precise slice of the stream without branching inside the handler.
type Filter func(Envelope) bool

// TypeFilter accepts envelopes whose event type is in the given set.
func TypeFilter(types ...EventType) Filter {
	set := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(e Envelope) bool {
		_, ok := set[e.Type]
		return ok
	}
}

// AgentFilter accepts envelopes originating from the given agent IDs.
func AgentFilter(agentIDs ...string) Filter {
	set := make(map[string]struct{}, len(agentIDs))
	for _, id := range agentIDs {
		set[id] = struct{}{}
	}
	return func(e Envelope) bool {
		_, ok := set[e.AgentID]
		return ok
	}
}

// MetadataFilter accepts envelopes whose metadata carries key == value.
func MetadataFilter(key string, value any) Filter {
	return func(e Envelope) bool {
		return e.Metadata[key] == value
	}
}

// PayloadFilter accepts envelopes whose payload carries key == value.
func PayloadFilter(key string, value any) Filter {
	return func(e Envelope) bool {
		return e.Payload[key] == value
	}
}

// And accepts only envelopes that pass every filter.
func And(filters ...Filter) Filter {
	return func(e Envelope) bool {
		for _, f := range filters {
			if !f(e) {
				return false
			}
		}
		return true
	}
}

// Or accepts envelopes that pass at least one filter.
func Or(filters ...Filter) Filter {
	return func(e Envelope) bool {
		for _, f := range filters {
			if f(e) {
				return true
			}
		}
		return false
	}
}

// Not inverts a filter.
func Not(f Filter) Filter {
	return func(e Envelope) bool {
		return !f(e)
	}
}

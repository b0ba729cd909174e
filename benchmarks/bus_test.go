// Package benchmarks measures event bus throughput under varying subscriber
// counts and dispatch configurations.
package benchmarks

import (
	"context"
	"testing"

	"github.com/aumos-ai/agentcore-go/pkg/agentcore/event"
)

func noopHandler() event.Handler {
	return event.HandlerFunc(func(context.Context, event.Envelope) error { return nil })
}

func benchEvent(b *testing.B) event.Envelope {
	b.Helper()
	evt, err := event.NewToolInvoked("agent-1", "search", map[string]any{"query": "go"})
	if err != nil {
		b.Fatal(err)
	}
	return evt
}

func BenchmarkPublishNoSubscribers(b *testing.B) {
	bus := event.NewBus(event.WithMaxHistory(0))
	defer bus.Close()
	evt := benchEvent(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := bus.Publish(ctx, evt); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPublishTypedSubscribers(b *testing.B) {
	for _, subs := range []int{1, 10, 100} {
		b.Run(benchName(subs), func(b *testing.B) {
			bus := event.NewBus(event.WithMaxHistory(0))
			defer bus.Close()
			for i := 0; i < subs; i++ {
				bus.Subscribe(event.ToolInvoked, noopHandler())
			}
			evt := benchEvent(b)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := bus.Publish(ctx, evt); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkPublishWithHistory(b *testing.B) {
	bus := event.NewBus(event.WithMaxHistory(1000))
	defer bus.Close()
	bus.SubscribeAll(noopHandler())
	evt := benchEvent(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := bus.Publish(ctx, evt); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPublishFilteredSubscribers(b *testing.B) {
	bus := event.NewBus(event.WithMaxHistory(0))
	defer bus.Close()
	for i := 0; i < 50; i++ {
		bus.SubscribeAll(noopHandler(), event.WithFilter(event.AgentFilter("someone-else")))
	}
	bus.SubscribeAll(noopHandler(), event.WithFilter(event.AgentFilter("agent-1")))
	evt := benchEvent(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := bus.Publish(ctx, evt); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEnvelopeConstruction(b *testing.B) {
	payload := map[string]any{"query": "go", "depth": 3}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := event.NewToolInvoked("agent-1", "search", payload); err != nil {
			b.Fatal(err)
		}
	}
}

func benchName(n int) string {
	switch n {
	case 1:
		return "1sub"
	case 10:
		return "10subs"
	default:
		return "100subs"
	}
}

package eventbus

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"parkd/internal/domain"
)

func newTestBus() *Bus {
	return New(slog.Default())
}

func newEvent(t domain.EventType, lane domain.Lane) domain.Event {
	return domain.Event{Type: t, Timestamp: time.Now(), Lane: lane}
}

func TestPublishSubscribe(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventGateOpened, func(_ context.Context, e domain.Event) {
		if e.Type == domain.EventGateOpened && e.Lane == domain.LaneEntry {
			got.Add(1)
		}
	})

	bus.Publish(context.Background(), newEvent(domain.EventGateOpened, domain.LaneEntry))
	bus.Publish(context.Background(), newEvent(domain.EventGateClosed, domain.LaneEntry))
	bus.Close() // drain
	if got.Load() != 1 {
		t.Fatalf("expected 1, got %d", got.Load())
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventVehicleDetected, domain.LaneEntry))
	bus.Publish(context.Background(), newEvent(domain.EventPaymentConfirmed, ""))
	bus.Close()

	if got.Load() != 2 {
		t.Fatalf("expected 2, got %d", got.Load())
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	unsub := bus.Subscribe(domain.EventEntryLogged, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})
	unsub()

	bus.Publish(context.Background(), newEvent(domain.EventEntryLogged, domain.LaneEntry))
	bus.Close()
	if got.Load() != 0 {
		t.Fatalf("handler ran after unsubscribe: %d", got.Load())
	}
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) { got.Add(1) })

	bus.Close()
	bus.Publish(context.Background(), newEvent(domain.EventGateOpened, domain.LaneExit))
	if got.Load() != 0 {
		t.Fatalf("publish after close reached a handler")
	}
}

func TestPanickingHandlerIsRecovered(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) { panic("bad handler") })
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) { got.Add(1) })

	bus.Publish(context.Background(), newEvent(domain.EventGateOpened, domain.LaneEntry))
	bus.Close()
	if got.Load() != 1 {
		t.Fatalf("healthy handler did not run: %d", got.Load())
	}
}

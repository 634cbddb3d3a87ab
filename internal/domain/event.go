package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published on the bus.
type EventType string

const (
	// Controller events, translated from line-channel tokens.
	EventVehicleDetected EventType = "lane.vehicle.detected"
	EventGateOpened      EventType = "gate.opened"
	EventGateClosed      EventType = "gate.closed"

	// Parking session events.
	EventEntryLogged      EventType = "parking.entry.logged"
	EventExitPending      EventType = "parking.exit.pending"
	EventPaymentConfirmed EventType = "parking.payment.confirmed"
	EventLotFull          EventType = "parking.lot.full"

	// Controller link events.
	EventLinkDown EventType = "link.down"
	EventLinkUp   EventType = "link.up"

	// Reporting events.
	EventDailySummary EventType = "report.daily.summary"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Lane      Lane            `json:"lane,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}

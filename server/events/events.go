// Package events publishes domain events for famtree writes. Every create,
// update and delete of a record becomes one JSON message routed by
// "<entity>.<action>", e.g. "member.created".
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Daskott/famtree/server/logger"
	"github.com/google/uuid"
)

const (
	CREATED_ACTION = "created"
	UPDATED_ACTION = "updated"
	DELETED_ACTION = "deleted"
)

var logg = logger.NewLogger()

type DomainEvent struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Entity     string      `json:"entity"`
	EntityID   uint        `json:"entity_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Actor      string      `json:"actor"`
	Payload    interface{} `json:"payload,omitempty"`
}

// RoutingKey is also the event type, e.g. "family.deleted".
func (event DomainEvent) RoutingKey() string {
	return event.Type
}

func NewDomainEvent(entity, action string, entityID uint, actor string, payload interface{}) DomainEvent {
	return DomainEvent{
		ID:         uuid.NewString(),
		Type:       entity + "." + action,
		Entity:     entity,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
		Actor:      actor,
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	Close() error
}

// LogPublisher only logs events, used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event DomainEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	logg.Debugf("domain event %v: %s", event.RoutingKey(), body)
	return nil
}

func (LogPublisher) Close() error {
	return nil
}

// RecordingPublisher keeps published events in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []DomainEvent
}

func (rp *RecordingPublisher) Publish(ctx context.Context, event DomainEvent) error {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	rp.events = append(rp.events, event)
	return nil
}

func (rp *RecordingPublisher) Close() error {
	return nil
}

func (rp *RecordingPublisher) Events() []DomainEvent {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	events := make([]DomainEvent, len(rp.events))
	copy(events, rp.events)
	return events
}

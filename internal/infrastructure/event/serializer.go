package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
)

// EventSerializer maps event type names to Go types for outbox payloads.
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{types: make(map[string]reflect.Type)}
}

// NewDefaultSerializer knows every event the CRM raises.
func NewDefaultSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register(crm.EventTypeLeadStatusChanged, &crm.LeadStatusChangedEvent{})
	s.Register(crm.EventTypeLeadClosedWon, &crm.LeadClosedWonEvent{})
	s.Register(identity.EventTypeUserCreated, &identity.UserCreatedEvent{})
	s.Register(identity.EventTypeUserDeactivated, &identity.UserDeactivatedEvent{})
	s.Register(identity.EventTypeUserPasswordChanged, &identity.UserPasswordChangedEvent{})
	s.Register(identity.EventTypeUserRoleChanged, &identity.UserRoleChangedEvent{})
	return s
}

// Register binds eventType to the concrete type of instance.
func (s *EventSerializer) Register(eventType string, instance shared.DomainEvent) {
	t := reflect.TypeOf(instance)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[eventType] = t
}

func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.types[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}
	event, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("%s does not implement DomainEvent", t)
	}
	return event, nil
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.types[eventType]
	return ok
}

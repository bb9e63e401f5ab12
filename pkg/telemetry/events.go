package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event describes a change to the work type catalog.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// WorkType is the affected work type name, if applicable.
	WorkType string `json:"work_type,omitempty"`

	// Path is the database file the event concerns.
	Path string `json:"path,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message,omitempty"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// Event types published by the work type store.
const (
	EventTypeStoreOpened      = "store.opened"
	EventTypeStoreClosed      = "store.closed"
	EventTypeWorkTypeUpserted = "work_type.upserted"
	EventTypeCatalogCleared   = "catalog.cleared"
	EventTypeBatchCommitted   = "batch.committed"
	EventTypeBatchRolledBack  = "batch.rolled_back"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher delivers events to subscribers synchronously, on the
// publishing goroutine. A nil publisher drops every event.
type EventPublisher struct {
	config      EventsConfig
	subscribers []subscriberEntry
	filters     []EventFilter
	mu          sync.RWMutex
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) *EventPublisher {
	return &EventPublisher{config: cfg}
}

// Publish fills in missing ID, timestamp and level, then hands the event
// to every subscriber whose filter accepts it.
func (ep *EventPublisher) Publish(event Event) error {
	if ep == nil || !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Level == "" {
		event.Level = defaultLevel(event.Type)
	}

	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, filter := range ep.filters {
		if !filter(event) {
			return nil
		}
	}

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}

	return nil
}

func defaultLevel(eventType string) string {
	if eventType == EventTypeBatchRolledBack {
		return EventLevelWarning
	}
	return EventLevelInfo
}

// Subscribe registers a subscriber; filter may be nil.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// LogSubscriber returns a subscriber that writes each event to logger at debug level.
func LogSubscriber(logger *Logger) EventSubscriber {
	return func(event Event) {
		l := logger.WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
		})
		if event.WorkType != "" {
			l = l.WithWorkType(event.WorkType)
		}
		if len(event.Data) > 0 {
			l = l.WithFields(event.Data)
		}
		l.Debug("catalog event")
	}
}

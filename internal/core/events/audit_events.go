package events

import (
	"time"

	"github.com/google/uuid"
)

const EntryRecordedEventType = "audit.entry.recorded"

// EntryRecordedEvent is published after a transaction-log row is committed.
// Subscribers are observers only (dashboards, counters); transactional
// notification fan-out happens inside the workflow transaction itself.
type EntryRecordedEvent struct {
	BaseEvent
}

func NewEntryRecordedEvent(entryID uuid.UUID, eventCode, entityType, entityID, message string) *EntryRecordedEvent {
	return &EntryRecordedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EntryRecordedEventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"entry_id":    entryID.String(),
				"event_code":  eventCode,
				"entity_type": entityType,
				"entity_id":   entityID,
				"message":     message,
			},
		},
	}
}

package notifications

import (
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type EventType string

const (
	EventTypeGuestCheckedIn EventType = "GUEST_CHECKED_IN"
)

// CheckinEvent announces a check-in that Luma accepted
type CheckinEvent struct {
	ID          uuid.UUID `json:"id"`
	Type        EventType `json:"type"`
	EventID     string    `json:"event_id"`
	GuestID     string    `json:"guest_id"`
	ResolvedBy  string    `json:"resolved_by"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// NewCheckinEvent builds a GUEST_CHECKED_IN event stamped with the current time
func NewCheckinEvent(eventID, guestID, resolvedBy string) *CheckinEvent {
	return &CheckinEvent{
		ID:          uuid.New(),
		Type:        EventTypeGuestCheckedIn,
		EventID:     eventID,
		GuestID:     guestID,
		ResolvedBy:  resolvedBy,
		CheckedInAt: time.Now().UTC(),
	}
}

// ToJSON serializes the event
func (e *CheckinEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// GetPartitionKey keeps all check-ins of one Luma event on one partition
func (e *CheckinEvent) GetPartitionKey() string {
	return e.EventID
}

// Package queue defines message payloads exchanged over the message broker
// and the publisher and consumer that move them.
package queue

// ProfileDetailsQueue is the durable queue profile-detail changes go to.
const ProfileDetailsQueue = "profile.details.changed"

// Event types carried in ProfileDetailChangedEvent.EventType.
const (
    EventProfileDetailCreated = "PROFILE_DETAIL_CREATED"
    EventProfileDetailUpdated = "PROFILE_DETAIL_UPDATED"
)

// ProfileDetailChangedEvent is published after an attribute record is
// created or updated.  It identifies what changed and never carries the
// attribute value.
type ProfileDetailChangedEvent struct {
    EventID     string `json:"event_id"`
    EventType   string `json:"event_type"`
    OffenderNo  string `json:"offender_no"`
    BookingID   uint64 `json:"booking_id"`
    ProfileType string `json:"profile_type"`
    ChangedBy   string `json:"changed_by"`
    OccurredAt  string `json:"occurred_at"`
}

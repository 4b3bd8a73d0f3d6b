package events

import (
	"time"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserSignedUp         EventType = "user_signed_up"
	EventPasswordResetRequest EventType = "password_reset_requested"
	EventVerifyEmailRequested EventType = "verify_email_requested"
	EventDateCurated          EventType = "date_curated"
	EventDateConfirmed        EventType = "date_confirmed"
	EventDateCancelled        EventType = "date_cancelled"
	EventBookingCreated       EventType = "booking_created"
	EventBookingConfirmed     EventType = "booking_confirmed"
	EventBookingCancelled     EventType = "booking_cancelled"
	EventWaitlistEntryInvited EventType = "waitlist_invited"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.ActorType `json:"type"`
	ID   *string          `json:"id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	AggregateID string      `json:"aggregate_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// UserSignedUpPayload payload.
type UserSignedUpPayload struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	VerifyToken string `json:"-"`
}

// PasswordResetRequestedPayload payload. Also used for email verification requests.
type PasswordResetRequestedPayload struct {
	Email     string        `json:"email"`
	FirstName string        `json:"first_name"`
	Token     string        `json:"-"`
	ValidFor  time.Duration `json:"valid_for"`
}

// DateCuratedPayload payload.
type DateCuratedPayload struct {
	DateID          string          `json:"date_id"`
	User1ID         string          `json:"user1_id"`
	User2ID         string          `json:"user2_id"`
	DateTime        time.Time       `json:"date_time"`
	DurationMinutes int             `json:"duration_minutes"`
	Mode            domain.DateMode `json:"mode"`
	Location        *string         `json:"location,omitempty"`
	MeetingLink     *string         `json:"meeting_link,omitempty"`
}

// DateStatusChangedPayload payload.
type DateStatusChangedPayload struct {
	DateID    string            `json:"date_id"`
	UserIDs   []string          `json:"user_ids"`
	OldStatus domain.DateStatus `json:"old_status"`
	NewStatus domain.DateStatus `json:"new_status"`
	Reason    string            `json:"reason,omitempty"`
}

// BookingPayload payload.
type BookingPayload struct {
	BookingID   string               `json:"booking_id"`
	SlotID      string               `json:"slot_id"`
	SlotOwnerID string               `json:"slot_owner_id"`
	BookerID    string               `json:"booker_id"`
	Status      domain.BookingStatus `json:"status"`
}

// WaitlistInvitedPayload payload.
type WaitlistInvitedPayload struct {
	EntryID string `json:"entry_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

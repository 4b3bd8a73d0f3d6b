package domain

import "time"

// NotificationChannel is the delivery medium.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelInApp NotificationChannel = "in_app"
	ChannelSMS   NotificationChannel = "sms"
	ChannelPush  NotificationChannel = "push"
)

// NotificationTrigger names the event that produced a notification.
type NotificationTrigger string

const (
	TriggerNewUserSignup  NotificationTrigger = "new_user_signup"
	TriggerDateCurated    NotificationTrigger = "date_curated"
	TriggerDateConfirmed  NotificationTrigger = "date_confirmed"
	TriggerDateCancelled  NotificationTrigger = "date_cancelled"
	TriggerBookingCreated NotificationTrigger = "booking_created"
	TriggerWaitlistInvite NotificationTrigger = "waitlist_invite"
	TriggerPasswordReset  NotificationTrigger = "password_reset"
	TriggerVerifyEmail    NotificationTrigger = "verify_email"
	TriggerManual         NotificationTrigger = "manual"
)

// NotificationPriority orders delivery urgency.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// NotificationStatus tracks delivery.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationQueued  NotificationStatus = "queued"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
	NotificationRead    NotificationStatus = "read"
)

// MaxNotificationAttempts bounds manual and automatic retries.
const MaxNotificationAttempts = 5

// Notification is an outbound message and its delivery record.
type Notification struct {
	ID        string
	Channel   NotificationChannel
	Trigger   NotificationTrigger
	Priority  NotificationPriority
	Recipient string
	Subject   string
	Body      string
	Status    NotificationStatus
	Attempts  int
	LastError *string
	Metadata  map[string]any
	CreatedBy *string
	SentAt    *time.Time
	ReadAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

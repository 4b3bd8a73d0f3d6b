package domain

import "time"

// WaitlistStatus tracks a pre-launch signup.
type WaitlistStatus string

const (
	WaitlistStatusWaiting WaitlistStatus = "waiting"
	WaitlistStatusInvited WaitlistStatus = "invited"
	WaitlistStatusJoined  WaitlistStatus = "joined"
)

// WaitlistEntry is a pre-launch signup record.
type WaitlistEntry struct {
	ID        string
	Name      string
	Email     string
	Phone     *string
	Status    WaitlistStatus
	Source    *string
	City      *string
	Country   *string
	Latitude  *float64
	Longitude *float64
	IPAddress *string
	UserAgent *string
	InvitedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

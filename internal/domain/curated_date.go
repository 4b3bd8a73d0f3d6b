package domain

import (
	"errors"
	"time"
)

// DateStatus enumerates lifecycle states of a curated date.
type DateStatus string

const (
	DateStatusPending        DateStatus = "pending"
	DateStatusUser1Confirmed DateStatus = "user1_confirmed"
	DateStatusUser2Confirmed DateStatus = "user2_confirmed"
	DateStatusBothConfirmed  DateStatus = "both_confirmed"
	DateStatusCompleted      DateStatus = "completed"
	DateStatusCancelled      DateStatus = "cancelled"
	DateStatusNoShow         DateStatus = "no_show"
)

// DateMode is where the date happens.
type DateMode string

const (
	DateModeOnline  DateMode = "online"
	DateModeOffline DateMode = "offline"
)

// CancellationCategory explains why a date was cancelled.
type CancellationCategory string

const (
	CancelEmergency       CancellationCategory = "emergency"
	CancelIllness         CancellationCategory = "illness"
	CancelWorkConflict    CancellationCategory = "work_conflict"
	CancelPersonalReason  CancellationCategory = "personal_reason"
	CancelNotInterested   CancellationCategory = "not_interested"
	CancelSchedulingError CancellationCategory = "scheduling_error"
	CancelOther           CancellationCategory = "other"
)

var cancellationCategories = map[CancellationCategory]struct{}{
	CancelEmergency: {}, CancelIllness: {}, CancelWorkConflict: {}, CancelPersonalReason: {},
	CancelNotInterested: {}, CancelSchedulingError: {}, CancelOther: {},
}

// Valid reports whether c is a known category.
func (c CancellationCategory) Valid() bool {
	_, ok := cancellationCategories[c]
	return ok
}

// DateRules holds the scheduling and feedback limits for curated dates.
var DateRules = struct {
	MinNotice            time.Duration
	MaxAdvance           time.Duration
	MinDurationMinutes   int
	MaxDurationMinutes   int
	DefaultDuration      int
	MaxAdminNotes        int
	MaxTopics            int
	MaxFeedbackLength    int
	MinRating            int
	MaxRating            int
	FeedbackWindow       time.Duration
	FeedbackEditWindow   time.Duration
	MaxDatesPerUserWeek  int
	FullRefundNotice     time.Duration
	PartialRefundNotice  time.Duration
	ConflictSuggestShift time.Duration
}{
	MinNotice:            2 * time.Hour,
	MaxAdvance:           30 * 24 * time.Hour,
	MinDurationMinutes:   30,
	MaxDurationMinutes:   180,
	DefaultDuration:      60,
	MaxAdminNotes:        1000,
	MaxTopics:            5,
	MaxFeedbackLength:    2000,
	MinRating:            1,
	MaxRating:            5,
	FeedbackWindow:       48 * time.Hour,
	FeedbackEditWindow:   24 * time.Hour,
	MaxDatesPerUserWeek:  3,
	FullRefundNotice:     24 * time.Hour,
	PartialRefundNotice:  4 * time.Hour,
	ConflictSuggestShift: 2 * time.Hour,
}

var dateTransitions = map[DateStatus][]DateStatus{
	DateStatusPending:        {DateStatusUser1Confirmed, DateStatusUser2Confirmed, DateStatusCancelled},
	DateStatusUser1Confirmed: {DateStatusBothConfirmed, DateStatusCancelled},
	DateStatusUser2Confirmed: {DateStatusBothConfirmed, DateStatusCancelled},
	DateStatusBothConfirmed:  {DateStatusCompleted, DateStatusNoShow, DateStatusCancelled},
	DateStatusCompleted:      {},
	DateStatusCancelled:      {},
	DateStatusNoShow:         {},
}

// CanTransition reports whether a curated date may move from current to next.
func CanTransition(current, next DateStatus) bool {
	for _, candidate := range dateTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s DateStatus) Terminal() bool {
	return s == DateStatusCompleted || s == DateStatusCancelled || s == DateStatusNoShow
}

var (
	ErrNotParticipant   = errors.New("user is not a participant of this date")
	ErrAlreadyConfirmed = errors.New("date already confirmed by this user")
	ErrDateInPast       = errors.New("date has already started")
	ErrInvalidState     = errors.New("date status does not allow this action")
)

// CuratedDate is an admin-arranged meeting between two users.
type CuratedDate struct {
	ID                   string
	User1ID              string
	User2ID              string
	DateTime             time.Time
	DurationMinutes      int
	Mode                 DateMode
	LocationName         *string
	LocationAddress      *string
	LocationLatitude     *float64
	LocationLongitude    *float64
	MeetingLink          *string
	Status               DateStatus
	AdminNotes           *string
	Topics               []string
	User1ConfirmedAt     *time.Time
	User2ConfirmedAt     *time.Time
	CancelledBy          *string
	CancelledAt          *time.Time
	CancellationReason   *string
	CancellationCategory *CancellationCategory
	CompletedAt          *time.Time
	TokensCostUser1      int
	TokensCostUser2      int
	CompatibilityScore   *float64
	MatchReason          *string
	CreatedByAdmin       string
	UpdatedByAdmin       *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// EndsAt returns the scheduled end of the date.
func (d *CuratedDate) EndsAt() time.Time {
	return d.DateTime.Add(time.Duration(d.DurationMinutes) * time.Minute)
}

// HasParticipant reports whether userID is one of the two users.
func (d *CuratedDate) HasParticipant(userID string) bool {
	return d.User1ID == userID || d.User2ID == userID
}

// PartnerOf returns the other participant.
func (d *CuratedDate) PartnerOf(userID string) string {
	if d.User1ID == userID {
		return d.User2ID
	}
	return d.User1ID
}

// Overlaps reports whether the date intersects [start, end).
func (d *CuratedDate) Overlaps(start, end time.Time) bool {
	return d.DateTime.Before(end) && d.EndsAt().After(start)
}

// Confirm records userID's confirmation and returns the resulting status.
func (d *CuratedDate) Confirm(userID string, now time.Time) (DateStatus, error) {
	if !d.HasParticipant(userID) {
		return d.Status, ErrNotParticipant
	}
	if d.Status == DateStatusBothConfirmed {
		return d.Status, ErrAlreadyConfirmed
	}
	if d.Status.Terminal() {
		return d.Status, ErrInvalidState
	}
	if !now.Before(d.DateTime) {
		return d.Status, ErrDateInPast
	}

	confirmedAt := now
	if d.User1ID == userID {
		if d.User1ConfirmedAt != nil {
			return d.Status, ErrAlreadyConfirmed
		}
		d.User1ConfirmedAt = &confirmedAt
	} else {
		if d.User2ConfirmedAt != nil {
			return d.Status, ErrAlreadyConfirmed
		}
		d.User2ConfirmedAt = &confirmedAt
	}

	switch {
	case d.User1ConfirmedAt != nil && d.User2ConfirmedAt != nil:
		d.Status = DateStatusBothConfirmed
	case d.User1ConfirmedAt != nil:
		d.Status = DateStatusUser1Confirmed
	default:
		d.Status = DateStatusUser2Confirmed
	}
	return d.Status, nil
}

// RefundTokens returns how many of cost tokens are refunded when cancelling at now.
func (d *CuratedDate) RefundTokens(cost int, now time.Time) int {
	notice := d.DateTime.Sub(now)
	switch {
	case notice >= DateRules.FullRefundNotice:
		return cost
	case notice >= DateRules.PartialRefundNotice:
		return cost / 2
	default:
		return 0
	}
}

// TokenCostFor returns the token cost charged to userID.
func (d *CuratedDate) TokenCostFor(userID string) int {
	if d.User1ID == userID {
		return d.TokensCostUser1
	}
	return d.TokensCostUser2
}

// DateFeedback is a participant's rating of a completed date.
type DateFeedback struct {
	ID               string
	DateID           string
	UserID           string
	OverallRating    int
	PartnerRating    *int
	VenueRating      *int
	WouldMeetAgain   *bool
	Comments         *string
	SafetyConcern    bool
	SafetyConcernMsg *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DateHistory is an immutable audit trail entry for a curated date.
type DateHistory struct {
	ID            string
	DateID        string
	ChangedByType ActorType
	ChangedByID   *string
	OldStatus     *DateStatus
	NewStatus     DateStatus
	Note          map[string]any
	CreatedAt     time.Time
}

// WorkflowStage names a step of the curation workflow.
type WorkflowStage string

const (
	StageInitialMatch       WorkflowStage = "initial_match"
	StageCompatibilityCheck WorkflowStage = "compatibility_check"
	StageScheduling         WorkflowStage = "scheduling"
	StageConfirmation       WorkflowStage = "confirmation"
	StageReminderSent       WorkflowStage = "reminder_sent"
	StageCompleted          WorkflowStage = "completed"
	StageFollowUp           WorkflowStage = "follow_up"
)

// WorkflowStages lists stages in order.
var WorkflowStages = []WorkflowStage{
	StageInitialMatch,
	StageCompatibilityCheck,
	StageScheduling,
	StageConfirmation,
	StageReminderSent,
	StageCompleted,
	StageFollowUp,
}

// Valid reports whether s is a known stage.
func (s WorkflowStage) Valid() bool {
	for _, stage := range WorkflowStages {
		if stage == s {
			return true
		}
	}
	return false
}

// StageStatus is the progress of one workflow stage.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageDone       StageStatus = "completed"
	StageFailed     StageStatus = "failed"
	StageSkipped    StageStatus = "skipped"
)

// Valid reports whether s is a known stage status.
func (s StageStatus) Valid() bool {
	switch s {
	case StagePending, StageInProgress, StageDone, StageFailed, StageSkipped:
		return true
	}
	return false
}

// WorkflowStep is the persisted state of one stage for one curated date.
type WorkflowStep struct {
	ID          string
	DateID      string
	Stage       WorkflowStage
	Status      StageStatus
	Attempts    int
	Notes       *string
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

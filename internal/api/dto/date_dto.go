package dto

import (
	"time"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// CuratedDateRequest is the admin form for a new date.
type CuratedDateRequest struct {
	User1ID            string          `json:"user1_id"`
	User2ID            string          `json:"user2_id"`
	DateTime           time.Time       `json:"date_time"`
	DurationMinutes    int             `json:"duration_minutes"`
	Mode               domain.DateMode `json:"mode"`
	LocationName       *string         `json:"location_name"`
	LocationAddress    *string         `json:"location_address"`
	LocationLatitude   *float64        `json:"location_latitude"`
	LocationLongitude  *float64        `json:"location_longitude"`
	MeetingLink        *string         `json:"meeting_link"`
	AdminNotes         *string         `json:"admin_notes"`
	Topics             []string        `json:"topics"`
	TokensCostUser1    int             `json:"tokens_cost_user1"`
	TokensCostUser2    int             `json:"tokens_cost_user2"`
	CompatibilityScore *float64        `json:"compatibility_score"`
	MatchReason        *string         `json:"match_reason"`
}

// CuratedDateUpdateRequest changes a pending date. Nil fields are left alone.
type CuratedDateUpdateRequest struct {
	DateTime           *time.Time       `json:"date_time"`
	DurationMinutes    *int             `json:"duration_minutes"`
	Mode               *domain.DateMode `json:"mode"`
	LocationName       *string          `json:"location_name"`
	LocationAddress    *string          `json:"location_address"`
	LocationLatitude   *float64         `json:"location_latitude"`
	LocationLongitude  *float64         `json:"location_longitude"`
	MeetingLink        *string          `json:"meeting_link"`
	AdminNotes         *string          `json:"admin_notes"`
	Topics             []string         `json:"topics"`
	CompatibilityScore *float64         `json:"compatibility_score"`
	MatchReason        *string          `json:"match_reason"`
}

// ConflictCheckRequest describes a prospective date.
type ConflictCheckRequest struct {
	User1ID         string    `json:"user1_id"`
	User2ID         string    `json:"user2_id"`
	DateTime        time.Time `json:"date_time"`
	DurationMinutes int       `json:"duration_minutes"`
	ExcludeDateID   string    `json:"exclude_date_id"`
}

// FinishDateRequest carries optional admin notes for complete and no-show.
type FinishDateRequest struct {
	Notes *string `json:"notes"`
}

// StageUpdateRequest sets a workflow stage status.
type StageUpdateRequest struct {
	Status domain.StageStatus `json:"status"`
	Notes  *string            `json:"notes"`
}

// ConfirmDateRequest must carry confirmed=true.
type ConfirmDateRequest struct {
	Confirmed *bool `json:"confirmed"`
}

// CancelDateRequest is a participant's cancellation.
type CancelDateRequest struct {
	Reason   string                      `json:"reason"`
	Category domain.CancellationCategory `json:"category"`
}

// FeedbackRequest rates a completed date.
type FeedbackRequest struct {
	OverallRating    int     `json:"overall_rating"`
	PartnerRating    *int    `json:"partner_rating"`
	VenueRating      *int    `json:"venue_rating"`
	WouldMeetAgain   *bool   `json:"would_meet_again"`
	Comments         *string `json:"comments"`
	SafetyConcern    bool    `json:"safety_concern"`
	SafetyConcernMsg *string `json:"safety_concern_message"`
}

// CuratedDateResponse is the full view of a date.
type CuratedDateResponse struct {
	ID                   string                       `json:"id"`
	User1ID              string                       `json:"user1_id"`
	User2ID              string                       `json:"user2_id"`
	DateTime             time.Time                    `json:"date_time"`
	EndsAt               time.Time                    `json:"ends_at"`
	DurationMinutes      int                          `json:"duration_minutes"`
	Mode                 domain.DateMode              `json:"mode"`
	LocationName         *string                      `json:"location_name,omitempty"`
	LocationAddress      *string                      `json:"location_address,omitempty"`
	LocationLatitude     *float64                     `json:"location_latitude,omitempty"`
	LocationLongitude    *float64                     `json:"location_longitude,omitempty"`
	MeetingLink          *string                      `json:"meeting_link,omitempty"`
	Status               domain.DateStatus            `json:"status"`
	AdminNotes           *string                      `json:"admin_notes,omitempty"`
	Topics               []string                     `json:"topics"`
	User1ConfirmedAt     *time.Time                   `json:"user1_confirmed_at,omitempty"`
	User2ConfirmedAt     *time.Time                   `json:"user2_confirmed_at,omitempty"`
	CancelledBy          *string                      `json:"cancelled_by,omitempty"`
	CancelledAt          *time.Time                   `json:"cancelled_at,omitempty"`
	CancellationReason   *string                      `json:"cancellation_reason,omitempty"`
	CancellationCategory *domain.CancellationCategory `json:"cancellation_category,omitempty"`
	CompletedAt          *time.Time                   `json:"completed_at,omitempty"`
	TokensCostUser1      int                          `json:"tokens_cost_user1"`
	TokensCostUser2      int                          `json:"tokens_cost_user2"`
	CompatibilityScore   *float64                     `json:"compatibility_score,omitempty"`
	MatchReason          *string                      `json:"match_reason,omitempty"`
	CreatedByAdmin       string                       `json:"created_by_admin"`
	CreatedAt            time.Time                    `json:"created_at"`
	UpdatedAt            time.Time                    `json:"updated_at"`
}

// UserDateResponse is what a participant sees; admin-only fields are dropped.
type UserDateResponse struct {
	ID                 string            `json:"id"`
	PartnerID          string            `json:"partner_id"`
	DateTime           time.Time         `json:"date_time"`
	EndsAt             time.Time         `json:"ends_at"`
	DurationMinutes    int               `json:"duration_minutes"`
	Mode               domain.DateMode   `json:"mode"`
	LocationName       *string           `json:"location_name,omitempty"`
	LocationAddress    *string           `json:"location_address,omitempty"`
	MeetingLink        *string           `json:"meeting_link,omitempty"`
	Status             domain.DateStatus `json:"status"`
	Topics             []string          `json:"topics"`
	YouConfirmed       bool              `json:"you_confirmed"`
	PartnerConfirmed   bool              `json:"partner_confirmed"`
	TokenCost          int               `json:"token_cost"`
	CancellationReason *string           `json:"cancellation_reason,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

// WorkflowStepResponse is one workflow stage.
type WorkflowStepResponse struct {
	Stage       domain.WorkflowStage `json:"stage"`
	Status      domain.StageStatus   `json:"status"`
	Attempts    int                  `json:"attempts"`
	Notes       *string              `json:"notes,omitempty"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// DateHistoryResponse is one audit row.
type DateHistoryResponse struct {
	ID            string             `json:"id"`
	ChangedByType domain.ActorType   `json:"changed_by_type"`
	ChangedByID   *string            `json:"changed_by_id,omitempty"`
	OldStatus     *domain.DateStatus `json:"old_status,omitempty"`
	NewStatus     domain.DateStatus  `json:"new_status"`
	Note          map[string]any     `json:"note,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// FeedbackResponse is a participant's rating.
type FeedbackResponse struct {
	ID               string    `json:"id"`
	DateID           string    `json:"date_id"`
	UserID           string    `json:"user_id"`
	OverallRating    int       `json:"overall_rating"`
	PartnerRating    *int      `json:"partner_rating,omitempty"`
	VenueRating      *int      `json:"venue_rating,omitempty"`
	WouldMeetAgain   *bool     `json:"would_meet_again,omitempty"`
	Comments         *string   `json:"comments,omitempty"`
	SafetyConcern    bool      `json:"safety_concern"`
	SafetyConcernMsg *string   `json:"safety_concern_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CuratedDateDetailResponse is the admin detail view.
type CuratedDateDetailResponse struct {
	CuratedDateResponse
	Workflow []WorkflowStepResponse `json:"workflow"`
	Feedback []FeedbackResponse     `json:"feedback"`
}

// CancelDateResponse reports the refund of a cancellation.
type CancelDateResponse struct {
	Date         UserDateResponse `json:"date"`
	RefundTokens int              `json:"refund_tokens"`
}

// FromCuratedDate maps the admin view.
func FromCuratedDate(d *domain.CuratedDate) CuratedDateResponse {
	return CuratedDateResponse{
		ID:                   d.ID,
		User1ID:              d.User1ID,
		User2ID:              d.User2ID,
		DateTime:             d.DateTime,
		EndsAt:               d.EndsAt(),
		DurationMinutes:      d.DurationMinutes,
		Mode:                 d.Mode,
		LocationName:         d.LocationName,
		LocationAddress:      d.LocationAddress,
		LocationLatitude:     d.LocationLatitude,
		LocationLongitude:    d.LocationLongitude,
		MeetingLink:          d.MeetingLink,
		Status:               d.Status,
		AdminNotes:           d.AdminNotes,
		Topics:               nonNilStrings(d.Topics),
		User1ConfirmedAt:     d.User1ConfirmedAt,
		User2ConfirmedAt:     d.User2ConfirmedAt,
		CancelledBy:          d.CancelledBy,
		CancelledAt:          d.CancelledAt,
		CancellationReason:   d.CancellationReason,
		CancellationCategory: d.CancellationCategory,
		CompletedAt:          d.CompletedAt,
		TokensCostUser1:      d.TokensCostUser1,
		TokensCostUser2:      d.TokensCostUser2,
		CompatibilityScore:   d.CompatibilityScore,
		MatchReason:          d.MatchReason,
		CreatedByAdmin:       d.CreatedByAdmin,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

// FromCuratedDateFor maps the participant view for userID.
func FromCuratedDateFor(d *domain.CuratedDate, userID string) UserDateResponse {
	mine, theirs := d.User1ConfirmedAt, d.User2ConfirmedAt
	if userID == d.User2ID {
		mine, theirs = theirs, mine
	}
	return UserDateResponse{
		ID:                 d.ID,
		PartnerID:          d.PartnerOf(userID),
		DateTime:           d.DateTime,
		EndsAt:             d.EndsAt(),
		DurationMinutes:    d.DurationMinutes,
		Mode:               d.Mode,
		LocationName:       d.LocationName,
		LocationAddress:    d.LocationAddress,
		MeetingLink:        d.MeetingLink,
		Status:             d.Status,
		Topics:             nonNilStrings(d.Topics),
		YouConfirmed:       mine != nil,
		PartnerConfirmed:   theirs != nil,
		TokenCost:          d.TokenCostFor(userID),
		CancellationReason: d.CancellationReason,
		CompletedAt:        d.CompletedAt,
		CreatedAt:          d.CreatedAt,
	}
}

// FromWorkflowStep maps a stage.
func FromWorkflowStep(s domain.WorkflowStep) WorkflowStepResponse {
	return WorkflowStepResponse{
		Stage:       s.Stage,
		Status:      s.Status,
		Attempts:    s.Attempts,
		Notes:       s.Notes,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// FromWorkflow maps every stage.
func FromWorkflow(steps []domain.WorkflowStep) []WorkflowStepResponse {
	out := make([]WorkflowStepResponse, 0, len(steps))
	for _, s := range steps {
		out = append(out, FromWorkflowStep(s))
	}
	return out
}

// FromDateHistory maps an audit row.
func FromDateHistory(h domain.DateHistory) DateHistoryResponse {
	return DateHistoryResponse{
		ID:            h.ID,
		ChangedByType: h.ChangedByType,
		ChangedByID:   h.ChangedByID,
		OldStatus:     h.OldStatus,
		NewStatus:     h.NewStatus,
		Note:          h.Note,
		CreatedAt:     h.CreatedAt,
	}
}

// FromFeedback maps a rating.
func FromFeedback(f *domain.DateFeedback) FeedbackResponse {
	return FeedbackResponse{
		ID:               f.ID,
		DateID:           f.DateID,
		UserID:           f.UserID,
		OverallRating:    f.OverallRating,
		PartnerRating:    f.PartnerRating,
		VenueRating:      f.VenueRating,
		WouldMeetAgain:   f.WouldMeetAgain,
		Comments:         f.Comments,
		SafetyConcern:    f.SafetyConcern,
		SafetyConcernMsg: f.SafetyConcernMsg,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

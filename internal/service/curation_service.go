package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/events"
	"github.com/datifyy/datifyy-service/internal/repository"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// maxSuggestionAttempts bounds how far the conflict suggestion walks forward.
const maxSuggestionAttempts = 12

// CurationService arranges dates between users and runs their lifecycle.
type CurationService struct {
	dates      repository.CuratedDateRepository
	history    repository.DateHistoryRepository
	feedback   repository.DateFeedbackRepository
	workflow   repository.WorkflowRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// CurationDependencies bundles collaborators.
type CurationDependencies struct {
	DateRepo     repository.CuratedDateRepository
	HistoryRepo  repository.DateHistoryRepository
	FeedbackRepo repository.DateFeedbackRepository
	WorkflowRepo repository.WorkflowRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Now          func() time.Time
}

// CuratedDateInput is the admin form for a new date.
type CuratedDateInput struct {
	User1ID            string
	User2ID            string
	DateTime           time.Time
	DurationMinutes    int
	Mode               domain.DateMode
	LocationName       *string
	LocationAddress    *string
	LocationLatitude   *float64
	LocationLongitude  *float64
	MeetingLink        *string
	AdminNotes         *string
	Topics             []string
	TokensCostUser1    int
	TokensCostUser2    int
	CompatibilityScore *float64
	MatchReason        *string
}

// CuratedDateUpdate carries the fields an admin may change on a pending date. Nil means unchanged.
type CuratedDateUpdate struct {
	DateTime           *time.Time
	DurationMinutes    *int
	Mode               *domain.DateMode
	LocationName       *string
	LocationAddress    *string
	LocationLatitude   *float64
	LocationLongitude  *float64
	MeetingLink        *string
	AdminNotes         *string
	Topics             []string
	CompatibilityScore *float64
	MatchReason        *string
}

// CuratedDateListFilter narrows the admin listing.
type CuratedDateListFilter struct {
	Status *domain.DateStatus
	UserID *string
	From   *time.Time
	To     *time.Time
}

// ConflictCheckInput describes a prospective date.
type ConflictCheckInput struct {
	User1ID         string
	User2ID         string
	DateTime        time.Time
	DurationMinutes int
	ExcludeID       string
}

// DateConflict is one overlapping date.
type DateConflict struct {
	DateID   string            `json:"date_id"`
	User1ID  string            `json:"user1_id"`
	User2ID  string            `json:"user2_id"`
	DateTime time.Time         `json:"date_time"`
	EndsAt   time.Time         `json:"ends_at"`
	Status   domain.DateStatus `json:"status"`
}

// ConflictReport is the outcome of a conflict check.
type ConflictReport struct {
	HasConflicts  bool           `json:"has_conflicts"`
	Conflicts     []DateConflict `json:"conflicts"`
	SuggestedTime *time.Time     `json:"suggested_time,omitempty"`
}

// CuratedDateDetail is the admin view of a date.
type CuratedDateDetail struct {
	Date     *domain.CuratedDate
	Workflow []domain.WorkflowStep
	Feedback []domain.DateFeedback
}

// MyDates is a user's page of dates with summary counts.
type MyDates struct {
	Dates   Page[domain.CuratedDate]
	Summary repository.DateSummary
}

// CancelDateInput is a participant's cancellation request.
type CancelDateInput struct {
	Reason   string
	Category domain.CancellationCategory
}

// CancelDateResult reports the cancelled date and the tokens returned to the caller.
type CancelDateResult struct {
	Date         *domain.CuratedDate
	RefundTokens int
}

// FeedbackInput is a participant's rating of a completed date.
type FeedbackInput struct {
	OverallRating    int
	PartnerRating    *int
	VenueRating      *int
	WouldMeetAgain   *bool
	Comments         *string
	SafetyConcern    bool
	SafetyConcernMsg *string
}

// StageUpdateInput sets a workflow stage.
type StageUpdateInput struct {
	Status domain.StageStatus
	Notes  *string
}

// NewCurationService builds the service.
func NewCurationService(deps CurationDependencies) *CurationService {
	return &CurationService{
		dates:      deps.DateRepo,
		history:    deps.HistoryRepo,
		feedback:   deps.FeedbackRepo,
		workflow:   deps.WorkflowRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Now),
	}
}

// Create validates and schedules a new curated date, seeding its workflow.
func (s *CurationService) Create(ctx context.Context, adminID string, input CuratedDateInput) (*domain.CuratedDate, error) {
	now := s.now()
	date := &domain.CuratedDate{
		User1ID:            strings.TrimSpace(input.User1ID),
		User2ID:            strings.TrimSpace(input.User2ID),
		DateTime:           input.DateTime.UTC(),
		DurationMinutes:    input.DurationMinutes,
		Mode:               input.Mode,
		LocationName:       trimmedPtr(input.LocationName),
		LocationAddress:    trimmedPtr(input.LocationAddress),
		LocationLatitude:   input.LocationLatitude,
		LocationLongitude:  input.LocationLongitude,
		MeetingLink:        trimmedPtr(input.MeetingLink),
		Status:             domain.DateStatusPending,
		AdminNotes:         trimmedPtr(input.AdminNotes),
		Topics:             cleanTopics(input.Topics),
		TokensCostUser1:    input.TokensCostUser1,
		TokensCostUser2:    input.TokensCostUser2,
		CompatibilityScore: input.CompatibilityScore,
		MatchReason:        trimmedPtr(input.MatchReason),
		CreatedByAdmin:     adminID,
	}
	if date.DurationMinutes == 0 {
		date.DurationMinutes = domain.DateRules.DefaultDuration
	}
	if err := validateCuratedDate(date, now); err != nil {
		return nil, err
	}
	if err := s.ensureParticipants(ctx, date.User1ID, date.User2ID); err != nil {
		return nil, err
	}
	if err := s.ensureNoConflicts(ctx, date); err != nil {
		return nil, err
	}
	if err := s.ensureWeeklyLimit(ctx, date, nil); err != nil {
		return nil, err
	}

	workflow := seedWorkflow(now)
	if err := s.dates.Create(ctx, date, workflow); err != nil {
		return nil, err
	}
	s.recordHistory(ctx, date.ID, adminActor(adminID), nil, date.Status, map[string]any{"action": "created"})

	location := date.LocationName
	if date.Mode == domain.DateModeOffline && date.LocationAddress != nil {
		location = date.LocationAddress
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:        events.EventDateCurated,
		AggregateID: date.ID,
		Actor:       adminActor(adminID),
		Payload: events.DateCuratedPayload{
			DateID:          date.ID,
			User1ID:         date.User1ID,
			User2ID:         date.User2ID,
			DateTime:        date.DateTime,
			DurationMinutes: date.DurationMinutes,
			Mode:            date.Mode,
			Location:        location,
			MeetingLink:     date.MeetingLink,
		},
	})
	s.logger.Info("curated date created",
		zap.String("date_id", date.ID),
		zap.String("admin_id", adminID),
		zap.Time("date_time", date.DateTime))
	return date, nil
}

// List returns dates for admins.
func (s *CurationService) List(ctx context.Context, filter CuratedDateListFilter, page Pagination) (Page[domain.CuratedDate], error) {
	page = page.Normalize(20)
	repoFilter := repository.CuratedDateFilter{
		UserID: filter.UserID,
		From:   filter.From,
		To:     filter.To,
		Limit:  page.Limit,
		Offset: page.Offset(),
	}
	if filter.Status != nil {
		repoFilter.Statuses = []domain.DateStatus{*filter.Status}
	}
	items, total, err := s.dates.List(ctx, repoFilter)
	if err != nil {
		return Page[domain.CuratedDate]{}, err
	}
	return Page[domain.CuratedDate]{Items: items, Total: total, Limit: page.Limit, Page: page.Page}, nil
}

// Get returns a date with its workflow and feedback.
func (s *CurationService) Get(ctx context.Context, id string) (*CuratedDateDetail, error) {
	date, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	steps, err := s.workflow.ListByDate(ctx, id)
	if err != nil {
		return nil, err
	}
	feedback, err := s.feedback.ListByDate(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CuratedDateDetail{Date: date, Workflow: sortSteps(steps), Feedback: feedback}, nil
}

// Update edits a date while it is still pending.
func (s *CurationService) Update(ctx context.Context, adminID, id string, input CuratedDateUpdate) (*domain.CuratedDate, error) {
	date, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if date.Status != domain.DateStatusPending {
		return nil, apperrors.NewBusinessRule("only pending dates can be updated", map[string]any{"status": date.Status})
	}
	previous := *date

	if input.DateTime != nil {
		date.DateTime = input.DateTime.UTC()
	}
	if input.DurationMinutes != nil {
		date.DurationMinutes = *input.DurationMinutes
	}
	if input.Mode != nil {
		date.Mode = *input.Mode
	}
	if input.LocationName != nil {
		date.LocationName = trimmedPtr(input.LocationName)
	}
	if input.LocationAddress != nil {
		date.LocationAddress = trimmedPtr(input.LocationAddress)
	}
	if input.LocationLatitude != nil {
		date.LocationLatitude = input.LocationLatitude
	}
	if input.LocationLongitude != nil {
		date.LocationLongitude = input.LocationLongitude
	}
	if input.MeetingLink != nil {
		date.MeetingLink = trimmedPtr(input.MeetingLink)
	}
	if input.AdminNotes != nil {
		date.AdminNotes = trimmedPtr(input.AdminNotes)
	}
	if input.Topics != nil {
		date.Topics = cleanTopics(input.Topics)
	}
	if input.CompatibilityScore != nil {
		date.CompatibilityScore = input.CompatibilityScore
	}
	if input.MatchReason != nil {
		date.MatchReason = trimmedPtr(input.MatchReason)
	}

	if err := validateCuratedDate(date, s.now()); err != nil {
		return nil, err
	}
	rescheduled := !date.DateTime.Equal(previous.DateTime) || date.DurationMinutes != previous.DurationMinutes
	if rescheduled {
		if err := s.ensureNoConflicts(ctx, date); err != nil {
			return nil, err
		}
		if err := s.ensureWeeklyLimit(ctx, date, &previous); err != nil {
			return nil, err
		}
	}

	date.UpdatedByAdmin = &adminID
	if err := s.dates.Update(ctx, date); err != nil {
		return nil, apperrors.MapError(err)
	}
	note := map[string]any{"action": "updated"}
	if rescheduled {
		note["previous_date_time"] = previous.DateTime
	}
	old := previous.Status
	s.recordHistory(ctx, date.ID, adminActor(adminID), &old, date.Status, note)
	return date, nil
}

// Delete removes a date that never got confirmed.
func (s *CurationService) Delete(ctx context.Context, id string) error {
	date, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if date.Status != domain.DateStatusPending && date.Status != domain.DateStatusCancelled {
		return apperrors.NewBusinessRule("only pending or cancelled dates can be deleted", map[string]any{"status": date.Status})
	}
	return apperrors.MapError(s.dates.Delete(ctx, id))
}

// Complete marks a confirmed date as having happened.
func (s *CurationService) Complete(ctx context.Context, adminID, id string, notes *string) (*domain.CuratedDate, error) {
	return s.finish(ctx, adminID, id, domain.DateStatusCompleted, notes)
}

// NoShow records that one or both users did not turn up.
func (s *CurationService) NoShow(ctx context.Context, adminID, id string, notes *string) (*domain.CuratedDate, error) {
	return s.finish(ctx, adminID, id, domain.DateStatusNoShow, notes)
}

func (s *CurationService) finish(ctx context.Context, adminID, id string, next domain.DateStatus, notes *string) (*domain.CuratedDate, error) {
	date, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(date.Status, next) {
		return nil, apperrors.NewBusinessRule("date status does not allow this action",
			map[string]any{"status": date.Status, "requested": next})
	}
	now := s.now()
	if now.Before(date.DateTime) {
		return nil, apperrors.NewBusinessRule("date has not started yet", map[string]any{"date_time": date.DateTime})
	}

	old := date.Status
	date.Status = next
	date.UpdatedByAdmin = &adminID
	if next == domain.DateStatusCompleted {
		date.CompletedAt = &now
	}
	if err := s.dates.Update(ctx, date); err != nil {
		return nil, apperrors.MapError(err)
	}

	note := map[string]any{"action": string(next)}
	if n := trimmedPtr(notes); n != nil {
		note["notes"] = *n
	}
	s.recordHistory(ctx, date.ID, adminActor(adminID), &old, next, note)

	if next == domain.DateStatusCompleted {
		s.advanceStage(ctx, date.ID, domain.StageCompleted, domain.StageDone, nil)
		s.advanceStage(ctx, date.ID, domain.StageFollowUp, domain.StageInProgress, nil)
	} else {
		reason := "no_show"
		s.advanceStage(ctx, date.ID, domain.StageCompleted, domain.StageFailed, &reason)
	}
	return date, nil
}

// CheckConflicts reports overlapping active dates for either user.
func (s *CurationService) CheckConflicts(ctx context.Context, input ConflictCheckInput) (*ConflictReport, error) {
	if input.User1ID == "" || input.User2ID == "" {
		return nil, apperrors.NewValidationError("both users are required", nil)
	}
	if input.DateTime.IsZero() {
		return nil, apperrors.NewValidationError("date_time is required", map[string]any{"field": "date_time"})
	}
	duration := input.DurationMinutes
	if duration == 0 {
		duration = domain.DateRules.DefaultDuration
	}
	candidate := &domain.CuratedDate{
		ID:              input.ExcludeID,
		User1ID:         input.User1ID,
		User2ID:         input.User2ID,
		DateTime:        input.DateTime.UTC(),
		DurationMinutes: duration,
	}
	return s.conflictReport(ctx, candidate)
}

// Workflow returns the stages of a date in order.
func (s *CurationService) Workflow(ctx context.Context, id string) ([]domain.WorkflowStep, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	steps, err := s.workflow.ListByDate(ctx, id)
	if err != nil {
		return nil, err
	}
	return sortSteps(steps), nil
}

// SetStage moves one workflow stage. A failed stage set back to in_progress counts as a retry.
func (s *CurationService) SetStage(ctx context.Context, adminID, id string, stage domain.WorkflowStage, input StageUpdateInput) (*domain.WorkflowStep, error) {
	if !stage.Valid() {
		return nil, apperrors.NewValidationError("unknown workflow stage", map[string]any{"stage": stage})
	}
	if !input.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown stage status", map[string]any{"status": input.Status})
	}
	steps, err := s.Workflow(ctx, id)
	if err != nil {
		return nil, err
	}

	step := domain.WorkflowStep{DateID: id, Stage: stage, Status: domain.StagePending}
	for _, existing := range steps {
		if existing.Stage == stage {
			step = existing
			break
		}
	}
	applyStageStatus(&step, input.Status, s.now())
	if notes := trimmedPtr(input.Notes); notes != nil {
		step.Notes = notes
	}
	if err := s.workflow.Upsert(ctx, &step); err != nil {
		return nil, err
	}
	s.logger.Info("workflow stage updated",
		zap.String("date_id", id),
		zap.String("admin_id", adminID),
		zap.String("stage", string(stage)),
		zap.String("status", string(step.Status)),
		zap.Int("attempts", step.Attempts))
	return &step, nil
}

// History returns the audit trail of a date.
func (s *CurationService) History(ctx context.Context, id string) ([]domain.DateHistory, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	return s.history.ListByDate(ctx, id)
}

// ListMine returns the caller's dates with summary counts.
func (s *CurationService) ListMine(ctx context.Context, userID string, status *domain.DateStatus, page Pagination) (*MyDates, error) {
	dates, err := s.List(ctx, CuratedDateListFilter{Status: status, UserID: &userID}, page)
	if err != nil {
		return nil, err
	}
	summary, err := s.dates.SummaryForUser(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	return &MyDates{Dates: dates, Summary: summary}, nil
}

// GetForUser returns a date the caller takes part in.
func (s *CurationService) GetForUser(ctx context.Context, userID, id string) (*domain.CuratedDate, error) {
	date, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !date.HasParticipant(userID) {
		return nil, apperrors.NewForbidden("you are not a participant of this date")
	}
	return date, nil
}

// Confirm records the caller's confirmation.
func (s *CurationService) Confirm(ctx context.Context, userID, id string, confirmed bool) (*domain.CuratedDate, error) {
	if !confirmed {
		return nil, apperrors.NewValidationError("confirmed must be true", map[string]any{"field": "confirmed"})
	}
	date, err := s.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	old := date.Status
	next, err := date.Confirm(userID, s.now())
	if err != nil {
		return nil, confirmError(err, date)
	}
	if err := s.dates.Update(ctx, date); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordHistory(ctx, date.ID, userActor(userID), &old, next, map[string]any{"action": "confirmed"})
	if next == domain.DateStatusBothConfirmed {
		s.advanceStage(ctx, date.ID, domain.StageConfirmation, domain.StageDone, nil)
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:        events.EventDateConfirmed,
		AggregateID: date.ID,
		Actor:       userActor(userID),
		Payload: events.DateStatusChangedPayload{
			DateID:    date.ID,
			UserIDs:   []string{date.User1ID, date.User2ID},
			OldStatus: old,
			NewStatus: next,
		},
	})
	return date, nil
}

// Cancel cancels a date on behalf of a participant and works out the token refund.
func (s *CurationService) Cancel(ctx context.Context, userID, id string, input CancelDateInput) (*CancelDateResult, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason is required", map[string]any{"field": "reason"})
	}
	if utf8.RuneCountInString(reason) > domain.DateRules.MaxAdminNotes {
		return nil, apperrors.NewValidationError("reason is too long", map[string]any{"field": "reason"})
	}
	if !input.Category.Valid() {
		return nil, apperrors.NewValidationError("unknown cancellation category", map[string]any{"category": input.Category})
	}
	date, err := s.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(date.Status, domain.DateStatusCancelled) {
		return nil, apperrors.NewBusinessRule("date can no longer be cancelled", map[string]any{"status": date.Status})
	}

	now := s.now()
	refund := date.RefundTokens(date.TokenCostFor(userID), now)
	old := date.Status
	category := input.Category
	date.Status = domain.DateStatusCancelled
	date.CancelledBy = &userID
	date.CancelledAt = &now
	date.CancellationReason = &reason
	date.CancellationCategory = &category
	if err := s.dates.Update(ctx, date); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordHistory(ctx, date.ID, userActor(userID), &old, date.Status, map[string]any{
		"action":        "cancelled",
		"reason":        reason,
		"category":      category,
		"refund_tokens": refund,
	})

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:        events.EventDateCancelled,
		AggregateID: date.ID,
		Actor:       userActor(userID),
		Payload: events.DateStatusChangedPayload{
			DateID:    date.ID,
			UserIDs:   []string{date.User1ID, date.User2ID},
			OldStatus: old,
			NewStatus: date.Status,
			Reason:    reason,
		},
	})
	return &CancelDateResult{Date: date, RefundTokens: refund}, nil
}

// SubmitFeedback stores the caller's rating of a completed date.
func (s *CurationService) SubmitFeedback(ctx context.Context, userID, id string, input FeedbackInput) (*domain.DateFeedback, error) {
	date, err := s.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if date.Status != domain.DateStatusCompleted || date.CompletedAt == nil {
		return nil, apperrors.NewBusinessRule("feedback is only accepted for completed dates", map[string]any{"status": date.Status})
	}
	if s.now().After(date.CompletedAt.Add(domain.DateRules.FeedbackWindow)) {
		return nil, apperrors.NewBusinessRule("feedback window has closed", map[string]any{"completed_at": date.CompletedAt})
	}
	if err := validateFeedback(input); err != nil {
		return nil, err
	}
	if _, err := s.feedback.Get(ctx, id, userID); err == nil {
		return nil, apperrors.NewConflict("feedback already submitted for this date", nil)
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	feedback := &domain.DateFeedback{DateID: id, UserID: userID}
	applyFeedback(feedback, input)
	if err := s.feedback.Create(ctx, feedback); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("feedback already submitted for this date", nil)
		}
		return nil, err
	}
	if feedback.SafetyConcern {
		s.logger.Warn("safety concern reported", zap.String("date_id", id), zap.String("user_id", userID))
	}
	return feedback, nil
}

// UpdateFeedback edits the caller's feedback shortly after submission.
func (s *CurationService) UpdateFeedback(ctx context.Context, userID, id string, input FeedbackInput) (*domain.DateFeedback, error) {
	feedback, err := s.GetFeedback(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if s.now().After(feedback.CreatedAt.Add(domain.DateRules.FeedbackEditWindow)) {
		return nil, apperrors.NewBusinessRule("feedback can no longer be edited", map[string]any{"submitted_at": feedback.CreatedAt})
	}
	if err := validateFeedback(input); err != nil {
		return nil, err
	}
	applyFeedback(feedback, input)
	if err := s.feedback.Update(ctx, feedback); err != nil {
		return nil, apperrors.MapError(err)
	}
	return feedback, nil
}

// GetFeedback returns the caller's feedback for a date.
func (s *CurationService) GetFeedback(ctx context.Context, userID, id string) (*domain.DateFeedback, error) {
	if _, err := s.GetForUser(ctx, userID, id); err != nil {
		return nil, err
	}
	feedback, err := s.feedback.Get(ctx, id, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("feedback", map[string]any{"date_id": id})
		}
		return nil, err
	}
	return feedback, nil
}

func (s *CurationService) load(ctx context.Context, id string) (*domain.CuratedDate, error) {
	date, err := s.dates.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("curated date", map[string]any{"id": id})
		}
		return nil, err
	}
	return date, nil
}

func (s *CurationService) ensureParticipants(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewNotFound("user", map[string]any{"id": id})
			}
			return err
		}
		if !user.CanLogin() {
			return apperrors.NewBusinessRule("user account is not active", map[string]any{"user_id": id, "status": user.Status})
		}
	}
	return nil
}

func (s *CurationService) ensureNoConflicts(ctx context.Context, date *domain.CuratedDate) error {
	report, err := s.conflictReport(ctx, date)
	if err != nil {
		return err
	}
	if !report.HasConflicts {
		return nil
	}
	return apperrors.NewConflict("scheduling conflict for one or both users", map[string]any{
		"conflicts":      report.Conflicts,
		"suggested_time": report.SuggestedTime,
	})
}

func (s *CurationService) conflictReport(ctx context.Context, date *domain.CuratedDate) (*ConflictReport, error) {
	users := []string{date.User1ID, date.User2ID}
	found, err := s.dates.FindConflicts(ctx, users, date.DateTime, date.EndsAt(), date.ID)
	if err != nil {
		return nil, err
	}
	report := &ConflictReport{Conflicts: make([]DateConflict, 0, len(found))}
	for i := range found {
		report.Conflicts = append(report.Conflicts, DateConflict{
			DateID:   found[i].ID,
			User1ID:  found[i].User1ID,
			User2ID:  found[i].User2ID,
			DateTime: found[i].DateTime,
			EndsAt:   found[i].EndsAt(),
			Status:   found[i].Status,
		})
	}
	if len(found) == 0 {
		return report, nil
	}
	report.HasConflicts = true

	length := time.Duration(date.DurationMinutes) * time.Minute
	suggested := date.DateTime.Add(domain.DateRules.ConflictSuggestShift)
	for attempt := 0; attempt < maxSuggestionAttempts; attempt++ {
		clash, err := s.dates.FindConflicts(ctx, users, suggested, suggested.Add(length), date.ID)
		if err != nil {
			return nil, err
		}
		if len(clash) == 0 {
			report.SuggestedTime = &suggested
			break
		}
		suggested = suggested.Add(domain.DateRules.ConflictSuggestShift)
	}
	return report, nil
}

// ensureWeeklyLimit counts active dates within a week either side of the new date.
// previous is the stored version of a date being rescheduled; it is not counted twice.
func (s *CurationService) ensureWeeklyLimit(ctx context.Context, date *domain.CuratedDate, previous *domain.CuratedDate) error {
	week := 7 * 24 * time.Hour
	from, to := date.DateTime.Add(-week), date.DateTime.Add(week)
	for _, userID := range []string{date.User1ID, date.User2ID} {
		count, err := s.dates.CountActiveForUser(ctx, userID, from, to)
		if err != nil {
			return err
		}
		if previous != nil && !previous.DateTime.Before(from) && previous.DateTime.Before(to) {
			count--
		}
		if count >= domain.DateRules.MaxDatesPerUserWeek {
			return apperrors.NewBusinessRule("user already has the maximum number of dates this week", map[string]any{
				"user_id": userID,
				"limit":   domain.DateRules.MaxDatesPerUserWeek,
			})
		}
	}
	return nil
}

func (s *CurationService) recordHistory(ctx context.Context, dateID string, actor events.Actor, old *domain.DateStatus, next domain.DateStatus, note map[string]any) {
	entry := &domain.DateHistory{
		DateID:        dateID,
		ChangedByType: actor.Type,
		ChangedByID:   actor.ID,
		OldStatus:     old,
		NewStatus:     next,
		Note:          note,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("failed to write date history", zap.String("date_id", dateID), zap.Error(err))
	}
}

func (s *CurationService) advanceStage(ctx context.Context, dateID string, stage domain.WorkflowStage, status domain.StageStatus, notes *string) {
	steps, err := s.workflow.ListByDate(ctx, dateID)
	if err != nil {
		s.logger.Error("failed to load workflow", zap.String("date_id", dateID), zap.Error(err))
		return
	}
	step := domain.WorkflowStep{DateID: dateID, Stage: stage, Status: domain.StagePending}
	for _, existing := range steps {
		if existing.Stage == stage {
			step = existing
			break
		}
	}
	applyStageStatus(&step, status, s.now())
	if notes != nil {
		step.Notes = notes
	}
	if err := s.workflow.Upsert(ctx, &step); err != nil {
		s.logger.Error("failed to advance workflow",
			zap.String("date_id", dateID),
			zap.String("stage", string(stage)),
			zap.Error(err))
	}
}

func applyStageStatus(step *domain.WorkflowStep, status domain.StageStatus, now time.Time) {
	if step.Status == domain.StageFailed && status == domain.StageInProgress {
		step.Attempts++
		step.CompletedAt = nil
	}
	switch status {
	case domain.StageInProgress:
		if step.StartedAt == nil {
			step.StartedAt = &now
		}
		if step.Attempts == 0 {
			step.Attempts = 1
		}
	case domain.StageDone, domain.StageSkipped, domain.StageFailed:
		if step.StartedAt == nil {
			step.StartedAt = &now
		}
		step.CompletedAt = &now
	}
	step.Status = status
}

// seedWorkflow marks matching and scheduling done and opens the confirmation stage.
func seedWorkflow(now time.Time) []domain.WorkflowStep {
	steps := make([]domain.WorkflowStep, 0, len(domain.WorkflowStages))
	for _, stage := range domain.WorkflowStages {
		step := domain.WorkflowStep{Stage: stage, Status: domain.StagePending}
		switch stage {
		case domain.StageInitialMatch, domain.StageCompatibilityCheck, domain.StageScheduling:
			applyStageStatus(&step, domain.StageDone, now)
			step.Attempts = 1
		case domain.StageConfirmation:
			applyStageStatus(&step, domain.StageInProgress, now)
		}
		steps = append(steps, step)
	}
	return steps
}

func sortSteps(steps []domain.WorkflowStep) []domain.WorkflowStep {
	order := make(map[domain.WorkflowStage]int, len(domain.WorkflowStages))
	for i, stage := range domain.WorkflowStages {
		order[stage] = i
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return order[steps[i].Stage] < order[steps[j].Stage]
	})
	return steps
}

func validateCuratedDate(date *domain.CuratedDate, now time.Time) error {
	rules := domain.DateRules
	switch {
	case date.User1ID == "" || date.User2ID == "":
		return apperrors.NewValidationError("both users are required", map[string]any{"field": "user1_id"})
	case date.User1ID == date.User2ID:
		return apperrors.NewValidationError("a date needs two different users", map[string]any{"field": "user2_id"})
	case date.DateTime.Before(now.Add(rules.MinNotice)):
		return apperrors.NewValidationError("date must be at least 2 hours in the future", map[string]any{"field": "date_time"})
	case date.DateTime.After(now.Add(rules.MaxAdvance)):
		return apperrors.NewValidationError("date cannot be more than 30 days ahead", map[string]any{"field": "date_time"})
	case date.DurationMinutes < rules.MinDurationMinutes || date.DurationMinutes > rules.MaxDurationMinutes:
		return apperrors.NewValidationError("duration must be between 30 and 180 minutes", map[string]any{"field": "duration_minutes"})
	case date.Mode != domain.DateModeOnline && date.Mode != domain.DateModeOffline:
		return apperrors.NewValidationError("mode must be online or offline", map[string]any{"field": "mode"})
	case date.Mode == domain.DateModeOffline && date.LocationName == nil:
		return apperrors.NewValidationError("offline dates need a location", map[string]any{"field": "location_name"})
	case date.AdminNotes != nil && utf8.RuneCountInString(*date.AdminNotes) > rules.MaxAdminNotes:
		return apperrors.NewValidationError("admin notes cannot exceed 1000 characters", map[string]any{"field": "admin_notes"})
	case len(date.Topics) > rules.MaxTopics:
		return apperrors.NewValidationError("at most 5 topics are allowed", map[string]any{"field": "topics"})
	case date.TokensCostUser1 < 0 || date.TokensCostUser2 < 0:
		return apperrors.NewValidationError("token cost cannot be negative", map[string]any{"field": "tokens_cost"})
	case date.CompatibilityScore != nil && (*date.CompatibilityScore < 0 || *date.CompatibilityScore > 100):
		return apperrors.NewValidationError("compatibility score must be between 0 and 100", map[string]any{"field": "compatibility_score"})
	case date.LocationLatitude != nil && (*date.LocationLatitude < -90 || *date.LocationLatitude > 90):
		return apperrors.NewValidationError("latitude out of range", map[string]any{"field": "location_latitude"})
	case date.LocationLongitude != nil && (*date.LocationLongitude < -180 || *date.LocationLongitude > 180):
		return apperrors.NewValidationError("longitude out of range", map[string]any{"field": "location_longitude"})
	}
	return nil
}

func validateFeedback(input FeedbackInput) error {
	inRange := func(v int) bool {
		return v >= domain.DateRules.MinRating && v <= domain.DateRules.MaxRating
	}
	if !inRange(input.OverallRating) {
		return apperrors.NewValidationError("overall rating must be between 1 and 5", map[string]any{"field": "overall_rating"})
	}
	if input.PartnerRating != nil && !inRange(*input.PartnerRating) {
		return apperrors.NewValidationError("partner rating must be between 1 and 5", map[string]any{"field": "partner_rating"})
	}
	if input.VenueRating != nil && !inRange(*input.VenueRating) {
		return apperrors.NewValidationError("venue rating must be between 1 and 5", map[string]any{"field": "venue_rating"})
	}
	if input.Comments != nil && utf8.RuneCountInString(*input.Comments) > domain.DateRules.MaxFeedbackLength {
		return apperrors.NewValidationError("comments cannot exceed 2000 characters", map[string]any{"field": "comments"})
	}
	if input.SafetyConcernMsg != nil && utf8.RuneCountInString(*input.SafetyConcernMsg) > domain.DateRules.MaxFeedbackLength {
		return apperrors.NewValidationError("safety concern message is too long", map[string]any{"field": "safety_concern_message"})
	}
	return nil
}

func applyFeedback(feedback *domain.DateFeedback, input FeedbackInput) {
	feedback.OverallRating = input.OverallRating
	feedback.PartnerRating = input.PartnerRating
	feedback.VenueRating = input.VenueRating
	feedback.WouldMeetAgain = input.WouldMeetAgain
	feedback.Comments = trimmedPtr(input.Comments)
	feedback.SafetyConcern = input.SafetyConcern
	feedback.SafetyConcernMsg = trimmedPtr(input.SafetyConcernMsg)
}

func confirmError(err error, date *domain.CuratedDate) error {
	switch {
	case errors.Is(err, domain.ErrNotParticipant):
		return apperrors.NewForbidden("you are not a participant of this date")
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		return apperrors.NewConflict("you have already confirmed this date", map[string]any{"status": date.Status})
	case errors.Is(err, domain.ErrDateInPast):
		return apperrors.NewBusinessRule("date has already started", map[string]any{"date_time": date.DateTime})
	case errors.Is(err, domain.ErrInvalidState):
		return apperrors.NewBusinessRule("date can no longer be confirmed", map[string]any{"status": date.Status})
	}
	return err
}

func cleanTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, topic := range topics {
		if t := strings.TrimSpace(topic); t != "" {
			out = append(out, t)
		}
	}
	return out
}

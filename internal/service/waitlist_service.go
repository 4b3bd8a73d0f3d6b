package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/events"
	"github.com/datifyy/datifyy-service/internal/repository"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// WaitlistService manages pre-launch signups.
type WaitlistService struct {
	entries    repository.WaitlistRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// WaitlistDependencies bundles collaborators.
type WaitlistDependencies struct {
	WaitlistRepo repository.WaitlistRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Now          func() time.Time
}

// WaitlistJoinInput is the public signup form.
type WaitlistJoinInput struct {
	Name      string
	Email     string
	Phone     *string
	Source    *string
	City      *string
	Country   *string
	Latitude  *float64
	Longitude *float64
	IPAddress string
	UserAgent string
}

// WaitlistStats is the per-status breakdown.
type WaitlistStats struct {
	Total    int                           `json:"total"`
	ByStatus map[domain.WaitlistStatus]int `json:"by_status"`
}

// NewWaitlistService builds the service.
func NewWaitlistService(deps WaitlistDependencies) *WaitlistService {
	return &WaitlistService{
		entries:    deps.WaitlistRepo,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Now),
	}
}

// Join adds an email to the waitlist.
func (s *WaitlistService) Join(ctx context.Context, input WaitlistJoinInput) (*domain.WaitlistEntry, error) {
	name := strings.TrimSpace(input.Name)
	email := domain.NormalizeEmail(input.Email)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if !validEmail(email) {
		return nil, apperrors.NewValidationError("a valid email is required", map[string]any{"field": "email"})
	}
	if input.Latitude != nil && (*input.Latitude < -90 || *input.Latitude > 90) {
		return nil, apperrors.NewValidationError("latitude out of range", map[string]any{"field": "latitude"})
	}
	if input.Longitude != nil && (*input.Longitude < -180 || *input.Longitude > 180) {
		return nil, apperrors.NewValidationError("longitude out of range", map[string]any{"field": "longitude"})
	}

	if _, err := s.entries.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already exists on the waitlist", nil)
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	entry := &domain.WaitlistEntry{
		Name:      name,
		Email:     email,
		Phone:     trimmedPtr(input.Phone),
		Status:    domain.WaitlistStatusWaiting,
		Source:    trimmedPtr(input.Source),
		City:      trimmedPtr(input.City),
		Country:   trimmedPtr(input.Country),
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		IPAddress: trimmedPtr(&input.IPAddress),
		UserAgent: trimmedPtr(&input.UserAgent),
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("email already exists on the waitlist", nil)
		}
		return nil, err
	}
	return entry, nil
}

// Count returns the public waitlist size.
func (s *WaitlistService) Count(ctx context.Context) (int, error) {
	return s.entries.Count(ctx)
}

// List returns entries for admins.
func (s *WaitlistService) List(ctx context.Context, status *domain.WaitlistStatus, search *string, page Pagination) (Page[domain.WaitlistEntry], error) {
	page = page.Normalize(50)
	items, total, err := s.entries.List(ctx, repository.WaitlistFilter{
		Status:     status,
		SearchTerm: search,
		Limit:      page.Limit,
		Offset:     page.Offset(),
	})
	if err != nil {
		return Page[domain.WaitlistEntry]{}, err
	}
	return Page[domain.WaitlistEntry]{Items: items, Total: total, Limit: page.Limit, Page: page.Page}, nil
}

// Stats returns counts per status.
func (s *WaitlistService) Stats(ctx context.Context) (*WaitlistStats, error) {
	counts, err := s.entries.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &WaitlistStats{ByStatus: map[domain.WaitlistStatus]int{
		domain.WaitlistStatusWaiting: 0,
		domain.WaitlistStatusInvited: 0,
		domain.WaitlistStatusJoined:  0,
	}}
	for status, n := range counts {
		stats.ByStatus[status] = n
		stats.Total += n
	}
	return stats, nil
}

// Invite moves a waiting entry to invited and queues the invite email.
func (s *WaitlistService) Invite(ctx context.Context, adminID, id string) (*domain.WaitlistEntry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if entry.Status != domain.WaitlistStatusWaiting {
		return nil, apperrors.NewBusinessRule("only waiting entries can be invited", map[string]any{"status": entry.Status})
	}

	invitedAt := s.now()
	entry.Status = domain.WaitlistStatusInvited
	entry.InvitedAt = &invitedAt
	if err := s.entries.UpdateStatus(ctx, entry, domain.WaitlistStatusWaiting); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewConflict("entry was already invited", nil)
		}
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:        events.EventWaitlistEntryInvited,
		AggregateID: entry.ID,
		Actor:       adminActor(adminID),
		Payload:     events.WaitlistInvitedPayload{EntryID: entry.ID, Name: entry.Name, Email: entry.Email},
	})
	return entry, nil
}

// Delete removes an entry.
func (s *WaitlistService) Delete(ctx context.Context, id string) error {
	return apperrors.MapError(s.entries.Delete(ctx, id))
}

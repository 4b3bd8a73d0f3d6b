package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/events"
	"github.com/datifyy/datifyy-service/internal/repository"
)

// In-memory repositories used by the service tests. They follow the Postgres
// implementations closely enough that the services cannot tell them apart:
// missing rows surface as pgx.ErrNoRows and duplicates as a 23505 PgError.

var errDuplicate = &pgconn.PgError{Code: "23505"}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

type memUsers struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	changes []domain.UserStatusChange
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.User{}}
}

func (m *memUsers) add(u domain.User) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = domain.UserStatusActive
		u.IsActive = true
	}
	m.byID[u.ID] = &u
	cp := u
	return &cp
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return errDuplicate
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) List(_ context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.byID {
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		if filter.Verified != nil && u.IsVerified != *filter.Verified {
			continue
		}
		if filter.SearchTerm != nil && !strings.Contains(strings.ToLower(u.Email), strings.ToLower(*filter.SearchTerm)) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return paginate(out, filter.Limit, filter.Offset), len(out), nil
}

func (m *memUsers) ChangeStatus(_ context.Context, change *domain.UserStatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[change.UserID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Status = change.NewStatus
	change.ID = uuid.NewString()
	change.CreatedAt = time.Now()
	m.changes = append(m.changes, *change)
	return nil
}

func (m *memUsers) StatusHistory(_ context.Context, userID string) ([]domain.UserStatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UserStatusChange
	for _, c := range m.changes {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memResets struct {
	mu     sync.Mutex
	tokens map[string]*domain.PasswordResetToken
}

func newMemResets() *memResets {
	return &memResets{tokens: map[string]*domain.PasswordResetToken{}}
}

func (m *memResets) Create(_ context.Context, token *domain.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token.ID = uuid.NewString()
	cp := *token
	m.tokens[token.Token] = &cp
	return nil
}

func (m *memResets) GetByToken(_ context.Context, token string, purpose domain.TokenPurpose) (*domain.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok || t.Purpose != purpose {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (m *memResets) MarkUsed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.ID == id && t.UsedAt == nil {
			now := time.Now()
			t.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

// latest returns an unused token for purpose.
func (m *memResets) latest(purpose domain.TokenPurpose) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for value, t := range m.tokens {
		if t.Purpose == purpose && t.UsedAt == nil {
			return value
		}
	}
	return ""
}

type memAdmins struct {
	mu   sync.Mutex
	byID map[string]*domain.AdminUser
}

func newMemAdmins() *memAdmins {
	return &memAdmins{byID: map[string]*domain.AdminUser{}}
}

func (m *memAdmins) Create(_ context.Context, admin *domain.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == admin.Email {
			return errDuplicate
		}
	}
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	cp := *admin
	m.byID[admin.ID] = &cp
	return nil
}

func (m *memAdmins) Update(_ context.Context, admin *domain.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[admin.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *admin
	m.byID[admin.ID] = &cp
	return nil
}

func (m *memAdmins) GetByID(_ context.Context, id string) (*domain.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *memAdmins) GetByEmail(_ context.Context, email string) (*domain.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memAdmins) List(_ context.Context, filter repository.AdminFilter) ([]domain.AdminUser, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AdminUser
	for _, a := range m.byID {
		if filter.PermissionLevel != nil && a.PermissionLevel != *filter.PermissionLevel {
			continue
		}
		if filter.Status != nil && a.AccountStatus != *filter.Status {
			continue
		}
		if filter.Active != nil && a.IsActive != *filter.Active {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return paginate(out, filter.Limit, filter.Offset), len(out), nil
}

func (m *memAdmins) CountLocked(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.byID {
		if a.IsLocked(time.Now()) {
			n++
		}
	}
	return n, nil
}

type memDates struct {
	mu    sync.Mutex
	byID  map[string]*domain.CuratedDate
	steps *memWorkflow
}

func newMemDates(steps *memWorkflow) *memDates {
	return &memDates{byID: map[string]*domain.CuratedDate{}, steps: steps}
}

func (m *memDates) put(d domain.CuratedDate) *domain.CuratedDate {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.byID[d.ID] = &d
	cp := d
	return &cp
}

func (m *memDates) Create(ctx context.Context, date *domain.CuratedDate, workflow []domain.WorkflowStep) error {
	m.mu.Lock()
	date.ID = uuid.NewString()
	date.CreatedAt = time.Now()
	cp := *date
	m.byID[date.ID] = &cp
	m.mu.Unlock()
	for i := range workflow {
		workflow[i].DateID = date.ID
		if err := m.steps.Upsert(ctx, &workflow[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memDates) Update(_ context.Context, date *domain.CuratedDate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[date.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *date
	m.byID[date.ID] = &cp
	return nil
}

func (m *memDates) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

func (m *memDates) GetByID(_ context.Context, id string) (*domain.CuratedDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (m *memDates) List(_ context.Context, filter repository.CuratedDateFilter) ([]domain.CuratedDate, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CuratedDate
	for _, d := range m.byID {
		if filter.UserID != nil && !d.HasParticipant(*filter.UserID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, d.Status) {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return paginate(out, filter.Limit, filter.Offset), len(out), nil
}

func (m *memDates) FindConflicts(_ context.Context, userIDs []string, start, end time.Time, excludeID string) ([]domain.CuratedDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CuratedDate
	for _, d := range m.byID {
		if d.ID == excludeID || d.Status.Terminal() {
			continue
		}
		involved := false
		for _, id := range userIDs {
			if d.HasParticipant(id) {
				involved = true
			}
		}
		if involved && d.Overlaps(start, end) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memDates) CountActiveForUser(_ context.Context, userID string, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.byID {
		if d.HasParticipant(userID) && !d.Status.Terminal() && !d.DateTime.Before(from) && d.DateTime.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *memDates) SummaryForUser(_ context.Context, userID string, now time.Time) (repository.DateSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var summary repository.DateSummary
	for _, d := range m.byID {
		if !d.HasParticipant(userID) {
			continue
		}
		if d.DateTime.After(now) && !d.Status.Terminal() {
			summary.Upcoming++
		}
		if d.Status == domain.DateStatusPending {
			summary.PendingConfirmation++
		}
	}
	return summary, nil
}

func containsStatus(statuses []domain.DateStatus, s domain.DateStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

type memWorkflow struct {
	mu    sync.Mutex
	steps map[string]map[domain.WorkflowStage]domain.WorkflowStep
}

func newMemWorkflow() *memWorkflow {
	return &memWorkflow{steps: map[string]map[domain.WorkflowStage]domain.WorkflowStep{}}
}

func (m *memWorkflow) ListByDate(_ context.Context, dateID string) ([]domain.WorkflowStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WorkflowStep
	for _, step := range m.steps[dateID] {
		out = append(out, step)
	}
	return out, nil
}

func (m *memWorkflow) Upsert(_ context.Context, step *domain.WorkflowStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.steps[step.DateID] == nil {
		m.steps[step.DateID] = map[domain.WorkflowStage]domain.WorkflowStep{}
	}
	if step.ID == "" {
		step.ID = uuid.NewString()
	}
	m.steps[step.DateID][step.Stage] = *step
	return nil
}

func (m *memWorkflow) get(dateID string, stage domain.WorkflowStage) domain.WorkflowStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps[dateID][stage]
}

type memHistory struct {
	mu      sync.Mutex
	entries []domain.DateHistory
}

func (m *memHistory) Create(_ context.Context, history *domain.DateHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	history.ID = uuid.NewString()
	history.CreatedAt = time.Now()
	m.entries = append(m.entries, *history)
	return nil
}

func (m *memHistory) ListByDate(_ context.Context, dateID string) ([]domain.DateHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DateHistory
	for _, h := range m.entries {
		if h.DateID == dateID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memFeedback struct {
	mu    sync.Mutex
	items map[string]*domain.DateFeedback
	now   func() time.Time
}

func newMemFeedback(now func() time.Time) *memFeedback {
	return &memFeedback{items: map[string]*domain.DateFeedback{}, now: now}
}

func feedbackKey(dateID, userID string) string { return dateID + "/" + userID }

func (m *memFeedback) Create(_ context.Context, feedback *domain.DateFeedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := feedbackKey(feedback.DateID, feedback.UserID)
	if _, ok := m.items[key]; ok {
		return errDuplicate
	}
	feedback.ID = uuid.NewString()
	feedback.CreatedAt = m.now()
	cp := *feedback
	m.items[key] = &cp
	return nil
}

func (m *memFeedback) Update(_ context.Context, feedback *domain.DateFeedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := feedbackKey(feedback.DateID, feedback.UserID)
	if _, ok := m.items[key]; !ok {
		return pgx.ErrNoRows
	}
	cp := *feedback
	m.items[key] = &cp
	return nil
}

func (m *memFeedback) Get(_ context.Context, dateID, userID string) (*domain.DateFeedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.items[feedbackKey(dateID, userID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *f
	return &cp, nil
}

func (m *memFeedback) ListByDate(_ context.Context, dateID string) ([]domain.DateFeedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DateFeedback
	for _, f := range m.items {
		if f.DateID == dateID {
			out = append(out, *f)
		}
	}
	return out, nil
}

type memSlots struct {
	mu   sync.Mutex
	byID map[string]*domain.AvailabilitySlot
}

func newMemSlots() *memSlots {
	return &memSlots{byID: map[string]*domain.AvailabilitySlot{}}
}

func (m *memSlots) put(s domain.AvailabilitySlot) *domain.AvailabilitySlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	m.byID[s.ID] = &s
	cp := s
	return &cp
}

func (m *memSlots) CreateSeries(_ context.Context, slots []domain.AvailabilitySlot) ([]domain.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AvailabilitySlot, 0, len(slots))
	for _, s := range slots {
		s.ID = uuid.NewString()
		cp := s
		m.byID[s.ID] = &cp
		out = append(out, s)
	}
	return out, nil
}

func (m *memSlots) Update(_ context.Context, slot *domain.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[slot.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *slot
	m.byID[slot.ID] = &cp
	return nil
}

func (m *memSlots) GetByID(_ context.Context, id string) (*domain.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok || s.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *memSlots) List(_ context.Context, filter repository.SlotFilter) ([]domain.AvailabilitySlot, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AvailabilitySlot
	for _, s := range m.byID {
		switch {
		case s.IsDeleted:
		case filter.UserID != nil && s.UserID != *filter.UserID:
		case filter.ExcludeUserID != nil && s.UserID == *filter.ExcludeUserID:
		case filter.Status != nil && s.Status != *filter.Status:
		case filter.DateType != nil && s.DateType != *filter.DateType:
		case filter.From != nil && s.StartsAt.Before(*filter.From):
		case filter.To != nil && !s.StartsAt.Before(*filter.To):
		default:
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return paginate(out, filter.Limit, filter.Offset), len(out), nil
}

func (m *memSlots) FindOverlapping(_ context.Context, userID string, start, end time.Time, excludeID string) ([]domain.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AvailabilitySlot
	for _, s := range m.byID {
		if s.UserID != userID || s.ID == excludeID || s.IsDeleted || s.Status != domain.SlotStatusActive {
			continue
		}
		if s.Overlaps(start, end) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSlots) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok || s.IsDeleted {
		return pgx.ErrNoRows
	}
	s.IsDeleted = true
	s.Status = domain.SlotStatusDeleted
	return nil
}

type memBookings struct {
	mu   sync.Mutex
	byID map[string]*domain.AvailabilityBooking
}

func newMemBookings() *memBookings {
	return &memBookings{byID: map[string]*domain.AvailabilityBooking{}}
}

func (m *memBookings) Create(_ context.Context, booking *domain.AvailabilityBooking, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := 0
	for _, b := range m.byID {
		if b.SlotID != booking.SlotID || !b.Status.Active() {
			continue
		}
		if b.BookerID == booking.BookerID {
			return repository.ErrAlreadyBooked
		}
		active++
	}
	if active >= capacity {
		return repository.ErrSlotFull
	}
	booking.ID = uuid.NewString()
	booking.CreatedAt = time.Now()
	cp := *booking
	m.byID[booking.ID] = &cp
	return nil
}

func (m *memBookings) Update(_ context.Context, booking *domain.AvailabilityBooking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[booking.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *booking
	m.byID[booking.ID] = &cp
	return nil
}

func (m *memBookings) GetByID(_ context.Context, id string) (*domain.AvailabilityBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) List(_ context.Context, filter repository.BookingFilter) ([]domain.AvailabilityBooking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AvailabilityBooking
	for _, b := range m.byID {
		switch {
		case filter.BookerID != nil && b.BookerID != *filter.BookerID:
		case filter.SlotOwnerID != nil && b.SlotOwnerID != *filter.SlotOwnerID:
		case filter.Status != nil && b.Status != *filter.Status:
		default:
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return paginate(out, filter.Limit, filter.Offset), len(out), nil
}

func (m *memBookings) CountActiveForSlot(_ context.Context, slotID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.byID {
		if b.SlotID == slotID && b.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (m *memBookings) HasActiveBooking(_ context.Context, slotID, bookerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.byID {
		if b.SlotID == slotID && b.BookerID == bookerID && b.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBookings) CancelActiveForSlot(_ context.Context, slotID, cancelledBy, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for _, b := range m.byID {
		if b.SlotID == slotID && b.Status.Active() {
			by, why := cancelledBy, reason
			b.Status = domain.BookingCancelled
			b.CancelledAt = &now
			b.CancelledBy = &by
			b.CancellationReason = &why
			n++
		}
	}
	return n, nil
}

type memWaitlist struct {
	mu   sync.Mutex
	byID map[string]*domain.WaitlistEntry
}

func newMemWaitlist() *memWaitlist {
	return &memWaitlist{byID: map[string]*domain.WaitlistEntry{}}
}

func (m *memWaitlist) Create(_ context.Context, entry *domain.WaitlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.byID {
		if e.Email == entry.Email {
			return errDuplicate
		}
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	cp := *entry
	m.byID[entry.ID] = &cp
	return nil
}

func (m *memWaitlist) GetByID(_ context.Context, id string) (*domain.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *memWaitlist) GetByEmail(_ context.Context, email string) (*domain.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.byID {
		if e.Email == email {
			cp := *e
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memWaitlist) UpdateStatus(_ context.Context, entry *domain.WaitlistEntry, from domain.WaitlistStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[entry.ID]
	if !ok || e.Status != from {
		return pgx.ErrNoRows
	}
	cp := *entry
	m.byID[entry.ID] = &cp
	return nil
}

func (m *memWaitlist) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

func (m *memWaitlist) List(_ context.Context, filter repository.WaitlistFilter) ([]domain.WaitlistEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WaitlistEntry
	for _, e := range m.byID {
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return paginate(out, filter.Limit, filter.Offset), len(out), nil
}

func (m *memWaitlist) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

func (m *memWaitlist) CountByStatus(_ context.Context) (map[domain.WaitlistStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.WaitlistStatus]int{}
	for _, e := range m.byID {
		out[e.Status]++
	}
	return out, nil
}

// recorder is a dispatcher that keeps every published event.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) Subscribe(events.EventType, events.EventHandler) {}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

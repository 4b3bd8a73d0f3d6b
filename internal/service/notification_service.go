package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/config"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/events"
	"github.com/datifyy/datifyy-service/internal/mail"
	"github.com/datifyy/datifyy-service/internal/queue"
	"github.com/datifyy/datifyy-service/internal/repository"
	"github.com/datifyy/datifyy-service/pkg/format"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

const maxSubjectLength = 200

// NotificationService turns domain events into stored notifications and queued emails.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	renderer      *mail.Renderer
	publisher     queue.Publisher
	mailer        mail.Mailer
	dispatcher    events.Dispatcher
	cfg           config.NotificationConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	UserRepo         repository.UserRepository
	Renderer         *mail.Renderer
	Publisher        queue.Publisher
	Mailer           mail.Mailer
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Now              func() time.Time
}

// ManualNotificationInput is an admin-authored notification.
type ManualNotificationInput struct {
	Channel   domain.NotificationChannel
	Priority  domain.NotificationPriority
	Recipient string
	Subject   string
	Body      string
	Metadata  map[string]any
}

// NotificationListFilter narrows the admin listing.
type NotificationListFilter struct {
	Status  *domain.NotificationStatus
	Channel *domain.NotificationChannel
	Trigger *domain.NotificationTrigger
}

// NewNotificationService creates the service.
func NewNotificationService(cfg config.NotificationConfig, deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		notifications: deps.NotificationRepo,
		users:         deps.UserRepo,
		renderer:      deps.Renderer,
		publisher:     deps.Publisher,
		mailer:        deps.Mailer,
		dispatcher:    deps.Dispatcher,
		cfg:           cfg,
		logger:        loggerOrNop(deps.Logger),
		now:           clockOrDefault(deps.Now),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserSignedUp, n.handleUserSignedUp)
	n.dispatcher.Subscribe(events.EventPasswordResetRequest, n.handlePasswordReset)
	n.dispatcher.Subscribe(events.EventVerifyEmailRequested, n.handleVerifyEmail)
	n.dispatcher.Subscribe(events.EventDateCurated, n.handleDateCurated)
	n.dispatcher.Subscribe(events.EventDateConfirmed, n.handleDateStatusChanged)
	n.dispatcher.Subscribe(events.EventDateCancelled, n.handleDateStatusChanged)
	n.dispatcher.Subscribe(events.EventBookingCreated, n.handleBooking)
	n.dispatcher.Subscribe(events.EventBookingConfirmed, n.handleBooking)
	n.dispatcher.Subscribe(events.EventBookingCancelled, n.handleBooking)
	n.dispatcher.Subscribe(events.EventWaitlistEntryInvited, n.handleWaitlistInvited)
}

func (n *NotificationService) handleUserSignedUp(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserSignedUpPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	meta := map[string]any{"user_id": payload.UserID}
	if err := n.queueEmail(ctx, domain.TriggerNewUserSignup, mail.TemplateWelcome, payload.Email, map[string]string{
		"first_name": firstNameOr(payload.FirstName),
		"app_url":    n.cfg.FrontendURL,
	}, meta); err != nil {
		return err
	}
	if payload.VerifyToken == "" {
		return nil
	}
	return n.queueEmail(ctx, domain.TriggerVerifyEmail, mail.TemplateVerifyEmail, payload.Email, map[string]string{
		"first_name": firstNameOr(payload.FirstName),
		"app_url":    n.cfg.FrontendURL,
		"token":      payload.VerifyToken,
	}, meta)
}

func (n *NotificationService) handlePasswordReset(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.queueEmail(ctx, domain.TriggerPasswordReset, mail.TemplateForgotPassword, payload.Email, map[string]string{
		"first_name": firstNameOr(payload.FirstName),
		"valid_for":  format.Duration(int64(payload.ValidFor.Seconds())),
		"app_url":    n.cfg.FrontendURL,
		"token":      payload.Token,
	}, nil)
}

func (n *NotificationService) handleVerifyEmail(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.queueEmail(ctx, domain.TriggerVerifyEmail, mail.TemplateVerifyEmail, payload.Email, map[string]string{
		"first_name": firstNameOr(payload.FirstName),
		"app_url":    n.cfg.FrontendURL,
		"token":      payload.Token,
	}, nil)
}

// handleDateCurated sends the found-a-date email to both participants.
func (n *NotificationService) handleDateCurated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DateCuratedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	user1, err := n.users.GetByID(ctx, payload.User1ID)
	if err != nil {
		return err
	}
	user2, err := n.users.GetByID(ctx, payload.User2ID)
	if err != nil {
		return err
	}

	where := "Online"
	if payload.Mode == domain.DateModeOffline && payload.Location != nil {
		where = *payload.Location
	} else if payload.MeetingLink != nil {
		where = "Online (" + *payload.MeetingLink + ")"
	}
	base := map[string]string{
		"date":     payload.DateTime.UTC().Format("Monday, 2 January 2006"),
		"time":     payload.DateTime.UTC().Format("3:04 PM MST"),
		"duration": format.Duration(int64(payload.DurationMinutes) * 60),
		"where":    where,
		"app_url":  n.cfg.FrontendURL,
		"date_id":  payload.DateID,
	}
	meta := map[string]any{"date_id": payload.DateID}
	for _, pair := range [][2]*domain.User{{user1, user2}, {user2, user1}} {
		data := make(map[string]string, len(base)+2)
		for k, v := range base {
			data[k] = v
		}
		data["first_name"] = firstNameOr(pair[0].FirstName)
		data["partner_name"] = firstNameOr(pair[1].FirstName)
		if err := n.queueEmail(ctx, domain.TriggerDateCurated, mail.TemplateFoundADate, pair[0].Email, data, meta); err != nil {
			return err
		}
	}
	return nil
}

func (n *NotificationService) handleDateStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DateStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	trigger := domain.TriggerDateConfirmed
	subject := "Your date has been confirmed"
	if event.Type == events.EventDateCancelled {
		trigger = domain.TriggerDateCancelled
		subject = "Your date has been cancelled"
	} else if payload.NewStatus != domain.DateStatusBothConfirmed {
		subject = "Your match confirmed your date"
	}
	for _, userID := range payload.UserIDs {
		if event.Actor.ID != nil && *event.Actor.ID == userID {
			continue
		}
		body := fmt.Sprintf("Date %s moved from %s to %s.", payload.DateID, payload.OldStatus, payload.NewStatus)
		if payload.Reason != "" {
			body += " Reason: " + payload.Reason
		}
		if err := n.recordInApp(ctx, trigger, userID, subject, body, map[string]any{"date_id": payload.DateID}); err != nil {
			return err
		}
	}
	return nil
}

func (n *NotificationService) handleBooking(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.BookingPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	recipient := payload.SlotOwnerID
	subject := "You have a new booking request"
	switch event.Type {
	case events.EventBookingConfirmed:
		recipient = payload.BookerID
		subject = "Your booking was confirmed"
	case events.EventBookingCancelled:
		subject = "A booking was cancelled"
		if event.Actor.ID != nil && *event.Actor.ID == payload.SlotOwnerID {
			recipient = payload.BookerID
		}
	}
	if recipient == "" {
		return nil
	}
	body := fmt.Sprintf("Booking %s on slot %s is now %s.", payload.BookingID, payload.SlotID, payload.Status)
	return n.recordInApp(ctx, domain.TriggerBookingCreated, recipient, subject, body, map[string]any{
		"booking_id": payload.BookingID,
		"slot_id":    payload.SlotID,
		"event":      string(event.Type),
	})
}

func (n *NotificationService) handleWaitlistInvited(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.WaitlistInvitedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.queueEmail(ctx, domain.TriggerWaitlistInvite, mail.TemplateInvite, payload.Email, map[string]string{
		"name":    firstNameOr(payload.Name),
		"app_url": n.cfg.FrontendURL,
		"email":   payload.Email,
	}, map[string]any{"waitlist_id": payload.EntryID})
}

// queueEmail renders a template, stores the notification as queued and hands the job to the broker.
func (n *NotificationService) queueEmail(ctx context.Context, trigger domain.NotificationTrigger, tpl mail.TemplateName, to string, data map[string]string, meta map[string]any) error {
	rendered, err := n.renderer.Render(tpl, data)
	if err != nil {
		return err
	}
	metadata := map[string]any{"template": string(tpl)}
	for k, v := range meta {
		metadata[k] = v
	}
	notification := &domain.Notification{
		Channel:   domain.ChannelEmail,
		Trigger:   trigger,
		Priority:  domain.PriorityNormal,
		Recipient: to,
		Subject:   rendered.Subject,
		Body:      rendered.HTML,
		Status:    domain.NotificationQueued,
		Metadata:  metadata,
	}
	if trigger == domain.TriggerPasswordReset {
		notification.Priority = domain.PriorityHigh
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		return err
	}
	return n.enqueue(ctx, notification)
}

func (n *NotificationService) enqueue(ctx context.Context, notification *domain.Notification) error {
	job := queue.EmailJob{
		NotificationID: notification.ID,
		To:             notification.Recipient,
		Subject:        notification.Subject,
		HTML:           notification.Body,
	}
	if err := n.publisher.PublishEmail(ctx, job); err != nil {
		n.logger.Error("failed to enqueue email",
			zap.String("notification_id", notification.ID),
			zap.Error(err))
		n.markFailed(ctx, notification, err)
		return err
	}
	return nil
}

func (n *NotificationService) recordInApp(ctx context.Context, trigger domain.NotificationTrigger, userID, subject, body string, meta map[string]any) error {
	notification := &domain.Notification{
		Channel:   domain.ChannelInApp,
		Trigger:   trigger,
		Priority:  domain.PriorityNormal,
		Recipient: userID,
		Subject:   subject,
		Body:      body,
		Status:    domain.NotificationSent,
		Attempts:  1,
		Metadata:  meta,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		return err
	}
	sentAt := n.now()
	notification.SentAt = &sentAt
	return n.notifications.Update(ctx, notification)
}

// HandleEmailJob delivers a queued email and records the outcome. Delivery failures are
// stored on the notification and not returned, so the job is not redelivered.
func (n *NotificationService) HandleEmailJob(ctx context.Context, job queue.EmailJob) error {
	notification, err := n.notifications.GetByID(ctx, job.NotificationID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			n.logger.Warn("email job for unknown notification", zap.String("notification_id", job.NotificationID))
			return nil
		}
		return err
	}
	if notification.Status == domain.NotificationSent || notification.Status == domain.NotificationRead {
		return nil
	}

	notification.Attempts++
	sendErr := n.mailer.Send(ctx, mail.Message{
		From:    n.cfg.EmailFrom,
		To:      job.To,
		Subject: job.Subject,
		HTML:    job.HTML,
	})
	if sendErr != nil {
		n.logger.Warn("email delivery failed",
			zap.String("notification_id", notification.ID),
			zap.Int("attempts", notification.Attempts),
			zap.Error(sendErr))
		n.markFailed(ctx, notification, sendErr)
		return nil
	}

	sentAt := n.now()
	notification.Status = domain.NotificationSent
	notification.SentAt = &sentAt
	notification.LastError = nil
	return n.notifications.Update(ctx, notification)
}

func (n *NotificationService) markFailed(ctx context.Context, notification *domain.Notification, cause error) {
	msg := cause.Error()
	notification.Status = domain.NotificationFailed
	notification.LastError = &msg
	if err := n.notifications.Update(ctx, notification); err != nil {
		n.logger.Error("failed to record notification failure",
			zap.String("notification_id", notification.ID),
			zap.Error(err))
	}
}

// CreateManual stores an admin-authored notification. Emails are queued, in-app messages are
// delivered immediately and SMS or push stay pending until a gateway picks them up.
func (n *NotificationService) CreateManual(ctx context.Context, adminID string, input ManualNotificationInput) (*domain.Notification, error) {
	recipient := strings.TrimSpace(input.Recipient)
	subject := strings.TrimSpace(input.Subject)
	body := strings.TrimSpace(input.Body)
	if input.Priority == "" {
		input.Priority = domain.PriorityNormal
	}
	switch {
	case !validChannel(input.Channel):
		return nil, apperrors.NewValidationError("unknown channel", map[string]any{"field": "channel"})
	case !validPriority(input.Priority):
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority"})
	case recipient == "":
		return nil, apperrors.NewValidationError("recipient is required", map[string]any{"field": "recipient"})
	case input.Channel == domain.ChannelEmail && !validEmail(strings.ToLower(recipient)):
		return nil, apperrors.NewValidationError("recipient must be an email address", map[string]any{"field": "recipient"})
	case subject == "" || len(subject) > maxSubjectLength:
		return nil, apperrors.NewValidationError("subject is required and at most 200 characters", map[string]any{"field": "subject"})
	case body == "":
		return nil, apperrors.NewValidationError("body is required", map[string]any{"field": "body"})
	}

	notification := &domain.Notification{
		Channel:   input.Channel,
		Trigger:   domain.TriggerManual,
		Priority:  input.Priority,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Status:    domain.NotificationPending,
		Metadata:  input.Metadata,
		CreatedBy: &adminID,
	}
	switch input.Channel {
	case domain.ChannelEmail:
		notification.Status = domain.NotificationQueued
	case domain.ChannelInApp:
		notification.Status = domain.NotificationSent
		notification.Attempts = 1
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		return nil, err
	}

	switch input.Channel {
	case domain.ChannelEmail:
		// broker failures are recorded on the notification itself
		_ = n.enqueue(ctx, notification)
	case domain.ChannelInApp:
		sentAt := n.now()
		notification.SentAt = &sentAt
		if err := n.notifications.Update(ctx, notification); err != nil {
			return nil, err
		}
	}
	return notification, nil
}

// List returns notifications for admins.
func (n *NotificationService) List(ctx context.Context, filter NotificationListFilter, page Pagination) (Page[domain.Notification], error) {
	page = page.Normalize(20)
	items, total, err := n.notifications.List(ctx, repository.NotificationFilter{
		Status:  filter.Status,
		Channel: filter.Channel,
		Trigger: filter.Trigger,
		Limit:   page.Limit,
		Offset:  page.Offset(),
	})
	if err != nil {
		return Page[domain.Notification]{}, err
	}
	return Page[domain.Notification]{Items: items, Total: total, Limit: page.Limit, Page: page.Page}, nil
}

// Get returns one notification.
func (n *NotificationService) Get(ctx context.Context, id string) (*domain.Notification, error) {
	notification, err := n.notifications.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return nil, err
	}
	return notification, nil
}

// MarkRead flags a notification as read.
func (n *NotificationService) MarkRead(ctx context.Context, id string) (*domain.Notification, error) {
	notification, err := n.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.Status == domain.NotificationRead {
		return notification, nil
	}
	readAt := n.now()
	notification.Status = domain.NotificationRead
	notification.ReadAt = &readAt
	if err := n.notifications.Update(ctx, notification); err != nil {
		return nil, apperrors.MapError(err)
	}
	return notification, nil
}

// Retry requeues a failed email.
func (n *NotificationService) Retry(ctx context.Context, id string) (*domain.Notification, error) {
	notification, err := n.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.Status != domain.NotificationFailed {
		return nil, apperrors.NewBusinessRule("only failed notifications can be retried", map[string]any{"status": notification.Status})
	}
	if notification.Attempts >= domain.MaxNotificationAttempts {
		return nil, apperrors.NewBusinessRule("retry limit reached", map[string]any{"attempts": notification.Attempts})
	}
	if notification.Channel != domain.ChannelEmail {
		return nil, apperrors.NewBusinessRule("only email notifications can be retried", map[string]any{"channel": notification.Channel})
	}

	notification.Status = domain.NotificationQueued
	notification.LastError = nil
	if err := n.notifications.Update(ctx, notification); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := n.enqueue(ctx, notification); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return n.Get(ctx, id)
}

// Delete removes a notification.
func (n *NotificationService) Delete(ctx context.Context, id string) error {
	if err := n.notifications.Delete(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return err
	}
	return nil
}

func validChannel(c domain.NotificationChannel) bool {
	switch c {
	case domain.ChannelEmail, domain.ChannelInApp, domain.ChannelSMS, domain.ChannelPush:
		return true
	}
	return false
}

func validPriority(p domain.NotificationPriority) bool {
	switch p {
	case domain.PriorityLow, domain.PriorityNormal, domain.PriorityHigh, domain.PriorityUrgent:
		return true
	}
	return false
}

func firstNameOr(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return format.Name(n)
	}
	return "there"
}

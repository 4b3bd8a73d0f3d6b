package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/events"
)

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items []T
	Total int
	Limit int
	Page  int
}

// Pagination converts 1-based page numbers into limit/offset.
type Pagination struct {
	Page  int
	Limit int
}

// Normalize applies defaults and bounds.
func (p Pagination) Normalize(defaultLimit int) Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

// Offset returns the row offset of the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

func clockOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// publishEvent dispatches the event; handler failures are logged and never fail the caller.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("aggregate_id", event.AggregateID),
			zap.Error(err))
	}
}

func userActor(userID string) events.Actor {
	return events.Actor{Type: domain.ActorTypeUser, ID: &userID}
}

func adminActor(adminID string) events.Actor {
	return events.Actor{Type: domain.ActorTypeAdmin, ID: &adminID}
}

func systemActor() events.Actor {
	return events.Actor{Type: domain.ActorTypeSystem}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, ".")
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

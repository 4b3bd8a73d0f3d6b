package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/service"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// CuratedDatesHandler manages admin curation endpoints.
type CuratedDatesHandler struct {
	curation *service.CurationService
}

// NewCuratedDatesHandler constructs handler.
func NewCuratedDatesHandler(curation *service.CurationService) *CuratedDatesHandler {
	return &CuratedDatesHandler{curation: curation}
}

// Create POST /admin/curated-dates.
func (h *CuratedDatesHandler) Create(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.CuratedDateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.User1ID == "" || req.User2ID == "" || req.DateTime.IsZero() {
		return apperrors.NewValidationError("user1_id, user2_id, date_time required", nil)
	}
	date, err := h.curation.Create(c.UserContext(), principal.Admin.ID, service.CuratedDateInput{
		User1ID:            req.User1ID,
		User2ID:            req.User2ID,
		DateTime:           req.DateTime,
		DurationMinutes:    req.DurationMinutes,
		Mode:               req.Mode,
		LocationName:       req.LocationName,
		LocationAddress:    req.LocationAddress,
		LocationLatitude:   req.LocationLatitude,
		LocationLongitude:  req.LocationLongitude,
		MeetingLink:        req.MeetingLink,
		AdminNotes:         req.AdminNotes,
		Topics:             req.Topics,
		TokensCostUser1:    req.TokensCostUser1,
		TokensCostUser2:    req.TokensCostUser2,
		CompatibilityScore: req.CompatibilityScore,
		MatchReason:        req.MatchReason,
	})
	if err != nil {
		return err
	}
	return created(c, "date curated", dto.FromCuratedDate(date))
}

// List GET /admin/curated-dates.
func (h *CuratedDatesHandler) List(c *fiber.Ctx) error {
	from, err := parseTime(c.Query("from"))
	if err != nil {
		return err
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		return err
	}
	filter := service.CuratedDateListFilter{
		Status: enumQuery[domain.DateStatus](c, "status"),
		UserID: queryPtr(c, "user_id"),
		From:   from,
		To:     to,
	}
	page, err := h.curation.List(c.UserContext(), filter, pagination(c))
	if err != nil {
		return err
	}
	return paged(c, page, dto.FromCuratedDate)
}

// Get GET /admin/curated-dates/:id.
func (h *CuratedDatesHandler) Get(c *fiber.Ctx) error {
	detail, err := h.curation.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	feedback := make([]dto.FeedbackResponse, 0, len(detail.Feedback))
	for i := range detail.Feedback {
		feedback = append(feedback, dto.FromFeedback(&detail.Feedback[i]))
	}
	return ok(c, dto.CuratedDateDetailResponse{
		CuratedDateResponse: dto.FromCuratedDate(detail.Date),
		Workflow:            dto.FromWorkflow(detail.Workflow),
		Feedback:            feedback,
	})
}

// Update PUT /admin/curated-dates/:id.
func (h *CuratedDatesHandler) Update(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.CuratedDateUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	date, err := h.curation.Update(c.UserContext(), principal.Admin.ID, c.Params("id"), service.CuratedDateUpdate{
		DateTime:           req.DateTime,
		DurationMinutes:    req.DurationMinutes,
		Mode:               req.Mode,
		LocationName:       req.LocationName,
		LocationAddress:    req.LocationAddress,
		LocationLatitude:   req.LocationLatitude,
		LocationLongitude:  req.LocationLongitude,
		MeetingLink:        req.MeetingLink,
		AdminNotes:         req.AdminNotes,
		Topics:             req.Topics,
		CompatibilityScore: req.CompatibilityScore,
		MatchReason:        req.MatchReason,
	})
	if err != nil {
		return err
	}
	return ok(c, dto.FromCuratedDate(date))
}

// Delete DELETE /admin/curated-dates/:id.
func (h *CuratedDatesHandler) Delete(c *fiber.Ctx) error {
	if err := h.curation.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return message(c, "curated date deleted")
}

// Complete POST /admin/curated-dates/:id/complete.
func (h *CuratedDatesHandler) Complete(c *fiber.Ctx) error {
	return h.finish(c, h.curation.Complete)
}

// NoShow POST /admin/curated-dates/:id/no-show.
func (h *CuratedDatesHandler) NoShow(c *fiber.Ctx) error {
	return h.finish(c, h.curation.NoShow)
}

type finishFunc func(ctx context.Context, adminID, id string, notes *string) (*domain.CuratedDate, error)

func (h *CuratedDatesHandler) finish(c *fiber.Ctx, fn finishFunc) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.FinishDateRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	date, err := fn(c.UserContext(), principal.Admin.ID, c.Params("id"), req.Notes)
	if err != nil {
		return err
	}
	return ok(c, dto.FromCuratedDate(date))
}

// CheckConflicts POST /admin/curated-dates/check-conflicts.
func (h *CuratedDatesHandler) CheckConflicts(c *fiber.Ctx) error {
	var req dto.ConflictCheckRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.User1ID == "" || req.User2ID == "" || req.DateTime.IsZero() {
		return apperrors.NewValidationError("user1_id, user2_id, date_time required", nil)
	}
	report, err := h.curation.CheckConflicts(c.UserContext(), service.ConflictCheckInput{
		User1ID:         req.User1ID,
		User2ID:         req.User2ID,
		DateTime:        req.DateTime,
		DurationMinutes: req.DurationMinutes,
		ExcludeID:       req.ExcludeDateID,
	})
	if err != nil {
		return err
	}
	return ok(c, report)
}

// Workflow GET /admin/curated-dates/:id/workflow.
func (h *CuratedDatesHandler) Workflow(c *fiber.Ctx) error {
	steps, err := h.curation.Workflow(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromWorkflow(steps))
}

// SetStage POST /admin/curated-dates/:id/workflow/:stage.
func (h *CuratedDatesHandler) SetStage(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.StageUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	step, err := h.curation.SetStage(c.UserContext(), principal.Admin.ID, c.Params("id"),
		domain.WorkflowStage(c.Params("stage")),
		service.StageUpdateInput{Status: req.Status, Notes: req.Notes})
	if err != nil {
		return err
	}
	return ok(c, dto.FromWorkflowStep(*step))
}

// History GET /admin/curated-dates/:id/history.
func (h *CuratedDatesHandler) History(c *fiber.Ctx) error {
	rows, err := h.curation.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.DateHistoryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.FromDateHistory(row))
	}
	return ok(c, out)
}

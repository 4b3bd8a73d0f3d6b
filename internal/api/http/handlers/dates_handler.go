package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/auth"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/service"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// DatesHandler serves a user's own curated dates.
type DatesHandler struct {
	curation *service.CurationService
}

// NewDatesHandler constructs handler.
func NewDatesHandler(curation *service.CurationService) *DatesHandler {
	return &DatesHandler{curation: curation}
}

// List GET /dates.
func (h *DatesHandler) List(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	userID := principal.User.ID
	mine, err := h.curation.ListMine(c.UserContext(), userID, enumQuery[domain.DateStatus](c, "status"), pagination(c))
	if err != nil {
		return err
	}
	dates := make([]dto.UserDateResponse, 0, len(mine.Dates.Items))
	for i := range mine.Dates.Items {
		dates = append(dates, dto.FromCuratedDateFor(&mine.Dates.Items[i], userID))
	}
	return c.JSON(dto.Envelope{
		Success:  true,
		Data:     fiber.Map{"dates": dates, "summary": mine.Summary},
		Metadata: dto.NewPageMetadata(mine.Dates.Page, mine.Dates.Limit, mine.Dates.Total),
	})
}

// Get GET /dates/:id.
func (h *DatesHandler) Get(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	date, err := h.curation.GetForUser(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromCuratedDateFor(date, principal.User.ID))
}

// Confirm POST /dates/:id/confirm.
func (h *DatesHandler) Confirm(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ConfirmDateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Confirmed == nil {
		return apperrors.NewValidationError("confirmed required", map[string]any{"field": "confirmed"})
	}
	date, err := h.curation.Confirm(c.UserContext(), principal.User.ID, c.Params("id"), *req.Confirmed)
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope{
		Success: true,
		Message: "date confirmed",
		Data:    dto.FromCuratedDateFor(date, principal.User.ID),
	})
}

// Cancel POST /dates/:id/cancel.
func (h *DatesHandler) Cancel(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CancelDateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.curation.Cancel(c.UserContext(), principal.User.ID, c.Params("id"), service.CancelDateInput{
		Reason:   req.Reason,
		Category: req.Category,
	})
	if err != nil {
		return err
	}
	return ok(c, dto.CancelDateResponse{
		Date:         dto.FromCuratedDateFor(result.Date, principal.User.ID),
		RefundTokens: result.RefundTokens,
	})
}

// SubmitFeedback POST /dates/:id/feedback.
func (h *DatesHandler) SubmitFeedback(c *fiber.Ctx) error {
	principal, input, err := h.feedbackInput(c)
	if err != nil {
		return err
	}
	feedback, err := h.curation.SubmitFeedback(c.UserContext(), principal.User.ID, c.Params("id"), input)
	if err != nil {
		return err
	}
	return created(c, "feedback submitted", dto.FromFeedback(feedback))
}

// UpdateFeedback PUT /dates/:id/feedback.
func (h *DatesHandler) UpdateFeedback(c *fiber.Ctx) error {
	principal, input, err := h.feedbackInput(c)
	if err != nil {
		return err
	}
	feedback, err := h.curation.UpdateFeedback(c.UserContext(), principal.User.ID, c.Params("id"), input)
	if err != nil {
		return err
	}
	return ok(c, dto.FromFeedback(feedback))
}

// GetFeedback GET /dates/:id/feedback.
func (h *DatesHandler) GetFeedback(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	feedback, err := h.curation.GetFeedback(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromFeedback(feedback))
}

func (h *DatesHandler) feedbackInput(c *fiber.Ctx) (*auth.Principal, service.FeedbackInput, error) {
	principal, err := currentUser(c)
	if err != nil {
		return nil, service.FeedbackInput{}, err
	}
	var req dto.FeedbackRequest
	if err := parseBody(c, &req); err != nil {
		return nil, service.FeedbackInput{}, err
	}
	return principal, service.FeedbackInput{
		OverallRating:    req.OverallRating,
		PartnerRating:    req.PartnerRating,
		VenueRating:      req.VenueRating,
		WouldMeetAgain:   req.WouldMeetAgain,
		Comments:         req.Comments,
		SafetyConcern:    req.SafetyConcern,
		SafetyConcernMsg: req.SafetyConcernMsg,
	}, nil
}

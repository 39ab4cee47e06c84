package swipe

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/university-explorer/database"
	"github.com/sahilchouksey/university-explorer/model"
	"github.com/sahilchouksey/university-explorer/services"
	queryHelper "github.com/sahilchouksey/university-explorer/utils/query"
	"github.com/sahilchouksey/university-explorer/utils/response"
	"github.com/sahilchouksey/university-explorer/utils/validation"
)

// Recorder is the swipe service surface used by the handler
type Recorder interface {
	RecordSwipe(ctx context.Context, req services.RecordSwipeRequest) (*services.SwipeResult, error)
	ListSwipes(ctx context.Context, page queryHelper.Pagination) ([]model.SwipeView, int64, error)
	ListMatches(ctx context.Context, page queryHelper.Pagination) ([]model.MatchView, int64, error)
	DeleteMatch(ctx context.Context, id uint) error
}

// SwipeHandler handles swipe and match requests
type SwipeHandler struct {
	swipes       Recorder
	validator    *validation.Validator
	defaultLimit int
}

// NewSwipeHandler creates a new swipe handler
func NewSwipeHandler(swipes Recorder, defaultLimit int) *SwipeHandler {
	return &SwipeHandler{
		swipes:       swipes,
		validator:    validation.NewValidator(),
		defaultLimit: defaultLimit,
	}
}

// RecordSwipe handles POST /api/v1/swipes
func (h *SwipeHandler) RecordSwipe(c *fiber.Ctx) error {
	var req services.RecordSwipeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Direction = strings.ToLower(strings.TrimSpace(req.Direction))

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	req.Note = validation.SanitizeString(req.Note)

	result, err := h.swipes.RecordSwipe(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDirection):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, database.ErrNotFound):
			return response.NotFound(c, "University not found")
		}
		log.Errorw("Failed to record swipe", "error", err, "institution_id", req.InstitutionID)
		return response.InternalServerError(c, "Failed to record swipe")
	}

	return response.Created(c, result)
}

// ListSwipes handles GET /api/v1/swipes
func (h *SwipeHandler) ListSwipes(c *fiber.Ctx) error {
	page, err := h.pagination(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	swipes, total, err := h.swipes.ListSwipes(c.Context(), page)
	if err != nil {
		log.Errorw("Failed to list swipes", "error", err)
		return response.InternalServerError(c, "Failed to fetch swipes")
	}
	if swipes == nil {
		swipes = []model.SwipeView{}
	}

	return response.Paginated(c, swipes,
		response.CalculatePagination(page.Offset, page.Limit, len(swipes), total))
}

// ListMatches handles GET /api/v1/matches
func (h *SwipeHandler) ListMatches(c *fiber.Ctx) error {
	page, err := h.pagination(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	matches, total, err := h.swipes.ListMatches(c.Context(), page)
	if err != nil {
		log.Errorw("Failed to list matches", "error", err)
		return response.InternalServerError(c, "Failed to fetch matches")
	}
	if matches == nil {
		matches = []model.MatchView{}
	}

	return response.Paginated(c, matches,
		response.CalculatePagination(page.Offset, page.Limit, len(matches), total))
}

// DeleteMatch handles DELETE /api/v1/matches/:id
func (h *SwipeHandler) DeleteMatch(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return response.BadRequest(c, "Invalid match ID")
	}

	if err := h.swipes.DeleteMatch(c.Context(), uint(id)); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return response.NotFound(c, "Match not found")
		}
		log.Errorw("Failed to delete match", "error", err, "match_id", id)
		return response.InternalServerError(c, "Failed to delete match")
	}

	return response.SuccessWithMessage(c, "Match deleted successfully", nil)
}

// pagination reads offset (alias skip) and limit, rejecting out-of-range values
func (h *SwipeHandler) pagination(c *fiber.Ctx) (queryHelper.Pagination, error) {
	page := queryHelper.DefaultPagination(h.defaultLimit)

	offset := c.Query("offset", c.Query("skip"))
	if offset != "" {
		v, err := strconv.Atoi(offset)
		if err != nil {
			return page, errors.New("offset must be an integer")
		}
		page.Offset = v
	}
	if limit := c.Query("limit"); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil {
			return page, errors.New("limit must be an integer")
		}
		page.Limit = v
	}

	return page, page.Validate()
}

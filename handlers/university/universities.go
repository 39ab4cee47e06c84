package university

import (
	"context"
	"errors"
	"net/url"
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

const (
	defaultImportRuns = 20
	maxImportRuns     = 100
)

// ImageResolver finds a representative campus image for an institution name
type ImageResolver interface {
	Resolve(ctx context.Context, name string) services.ImageResult
}

// UniversityHandler handles university-related requests
type UniversityHandler struct {
	store        database.Storage
	images       ImageResolver
	validator    *validation.Validator
	defaultLimit int
}

// NewUniversityHandler creates a new university handler
func NewUniversityHandler(store database.Storage, images ImageResolver, defaultLimit int) *UniversityHandler {
	return &UniversityHandler{
		store:        store,
		images:       images,
		validator:    validation.NewValidator(),
		defaultLimit: defaultLimit,
	}
}

// ListUniversities handles GET /api/v1/universities
func (h *UniversityHandler) ListUniversities(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	// Ranking order unless the caller asks for another one
	return h.list(c, filter, queryHelper.SortTotalScoreDesc)
}

// SearchUniversities handles GET /api/v1/universities/search/:name
func (h *UniversityHandler) SearchUniversities(c *fiber.Ctx) error {
	name, err := pathParam(c, "name")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	return h.list(c, queryHelper.InstitutionFilter{NameContains: &name}, queryHelper.SortID)
}

// ListByState handles GET /api/v1/universities/state/:state
func (h *UniversityHandler) ListByState(c *fiber.Ctx) error {
	state, err := pathParam(c, "state")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	states := splitList(state)
	if len(states) == 0 {
		return response.BadRequest(c, "state is required")
	}
	return h.list(c, queryHelper.InstitutionFilter{States: states}, queryHelper.SortID)
}

func (h *UniversityHandler) list(c *fiber.Ctx, filter queryHelper.InstitutionFilter, defaultSort queryHelper.Sort) error {
	page, err := parsePagination(c, h.defaultLimit)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	sort, err := parseSort(c, defaultSort)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	if err := h.validator.ValidateStruct(filter); err != nil {
		return response.ValidationError(c, err)
	}

	institutions, total, err := h.store.ListInstitutions(c.Context(), filter, page, sort)
	if err != nil {
		log.Errorw("Failed to list universities", "error", err, "path", c.Path())
		return response.InternalServerError(c, "Failed to fetch universities")
	}
	if institutions == nil {
		institutions = []model.InstitutionView{}
	}

	return response.Paginated(c, institutions,
		response.CalculatePagination(page.Offset, page.Limit, len(institutions), total))
}

// GetUniversityByName handles GET /api/v1/universities/name/:name
func (h *UniversityHandler) GetUniversityByName(c *fiber.Ctx) error {
	name, err := pathParam(c, "name")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	institution, err := h.store.GetInstitutionByName(c.Context(), name)
	if err != nil {
		return h.lookupError(c, err, "University not found", "Failed to fetch university")
	}
	return response.Success(c, institution)
}

// GetUniversity handles GET /api/v1/universities/:id
func (h *UniversityHandler) GetUniversity(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	institution, err := h.store.GetInstitution(c.Context(), id)
	if err != nil {
		return h.lookupError(c, err, "University not found", "Failed to fetch university")
	}
	return response.Success(c, institution)
}

// GetDegrees handles GET /api/v1/universities/:id/degrees
func (h *UniversityHandler) GetDegrees(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	offering, err := h.store.GetDegreeOffering(c.Context(), id)
	if err != nil {
		return h.lookupError(c, err, "Degree offerings not found", "Failed to fetch degree offerings")
	}
	return response.Success(c, offering)
}

// GetIdentity handles GET /api/v1/universities/:id/identity
func (h *UniversityHandler) GetIdentity(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	identity, err := h.store.GetIdentity(c.Context(), id)
	if err != nil {
		return h.lookupError(c, err, "Identity record not found", "Failed to fetch identity record")
	}
	return response.Success(c, identity)
}

// GetUniversityImage handles GET /api/v1/universities/:id/image
func (h *UniversityHandler) GetUniversityImage(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	institution, err := h.store.GetInstitution(c.Context(), id)
	if err != nil {
		return h.lookupError(c, err, "University not found", "Failed to fetch university")
	}
	return response.Success(c, h.images.Resolve(c.Context(), institution.Name))
}

// ResolveImage handles GET /api/v1/images?name=
func (h *UniversityHandler) ResolveImage(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		return response.BadRequest(c, "name is required")
	}
	return response.Success(c, h.images.Resolve(c.Context(), name))
}

// ListStates handles GET /api/v1/states
func (h *UniversityHandler) ListStates(c *fiber.Ctx) error {
	states, err := h.store.ListStates(c.Context())
	if err != nil {
		log.Errorw("Failed to list states", "error", err)
		return response.InternalServerError(c, "Failed to fetch states")
	}
	if states == nil {
		states = []string{}
	}
	return response.Success(c, states)
}

// ListCountries handles GET /api/v1/countries
func (h *UniversityHandler) ListCountries(c *fiber.Ctx) error {
	countries, err := h.store.ListCountries(c.Context())
	if err != nil {
		log.Errorw("Failed to list countries", "error", err)
		return response.InternalServerError(c, "Failed to fetch countries")
	}
	if countries == nil {
		countries = []string{}
	}
	return response.Success(c, countries)
}

// GetStats handles GET /api/v1/stats
func (h *UniversityHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.store.GetStats(c.Context())
	if err != nil {
		log.Errorw("Failed to compute stats", "error", err)
		return response.InternalServerError(c, "Failed to fetch statistics")
	}
	return response.Success(c, stats)
}

// ListImportRuns handles GET /api/v1/imports
func (h *UniversityHandler) ListImportRuns(c *fiber.Ctx) error {
	limit := defaultImportRuns
	if raw := c.Query("limit"); raw != "" {
		v, err := parseInt("limit", raw)
		if err != nil {
			return response.BadRequest(c, err.Error())
		}
		if *v < 1 || *v > maxImportRuns {
			return response.BadRequest(c, "limit must be between 1 and 100")
		}
		limit = *v
	}

	runs, err := h.store.ListImportRuns(c.Context(), limit)
	if err != nil {
		log.Errorw("Failed to list import runs", "error", err)
		return response.InternalServerError(c, "Failed to fetch import runs")
	}
	if runs == nil {
		runs = []model.ImportRun{}
	}
	return response.Success(c, runs)
}

// lookupError maps a singleton lookup failure to 404 or a logged 500
func (h *UniversityHandler) lookupError(c *fiber.Ctx, err error, notFound, internal string) error {
	if errors.Is(err, database.ErrNotFound) {
		return response.NotFound(c, notFound)
	}
	log.Errorw(internal, "error", err, "path", c.Path())
	return response.InternalServerError(c, internal)
}

func pathParam(c *fiber.Ctx, key string) (string, error) {
	value, err := url.PathUnescape(c.Params(key))
	if err != nil {
		return "", err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New(key + " is required")
	}
	return value, nil
}

package university

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	queryHelper "github.com/sahilchouksey/university-explorer/utils/query"
)

// parseBool accepts true|false|1|0, case-insensitive
func parseBool(key, raw string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case "true", "1":
		v := true
		return &v, nil
	case "false", "0":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("%s must be true, false, 1 or 0, got %q", key, raw)
}

func parseInt(key, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return &v, nil
}

func parseFloat(key, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number, got %q", key, raw)
	}
	return &v, nil
}

func optionalString(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

// firstQuery returns the first non-empty value among keys; later keys are aliases
func firstQuery(c *fiber.Ctx, keys ...string) (string, string) {
	for _, key := range keys {
		if v := c.Query(key); v != "" {
			return key, v
		}
	}
	return keys[0], ""
}

// splitList splits a comma separated value, dropping empty entries
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePagination reads offset (alias skip) and limit. Values outside the
// allowed window are rejected rather than clamped.
func parsePagination(c *fiber.Ctx, defaultLimit int) (queryHelper.Pagination, error) {
	page := queryHelper.DefaultPagination(defaultLimit)

	key, raw := firstQuery(c, "offset", "skip")
	offset, err := parseInt(key, raw)
	if err != nil {
		return page, err
	}
	if offset != nil {
		page.Offset = *offset
	}

	limit, err := parseInt("limit", c.Query("limit"))
	if err != nil {
		return page, err
	}
	if limit != nil {
		page.Limit = *limit
	}

	return page, page.Validate()
}

// parseFilter builds an InstitutionFilter from the query string
func parseFilter(c *fiber.Ctx) (queryHelper.InstitutionFilter, error) {
	var (
		f   queryHelper.InstitutionFilter
		err error
	)

	_, name := firstQuery(c, "name", "search")
	f.NameContains = optionalString(name)
	f.States = splitList(c.Query("state"))
	f.Sector = optionalString(c.Query("sector"))
	f.Country = optionalString(c.Query("country"))
	f.ReligiousAffiliation = optionalString(c.Query("religious_affiliation"))
	f.ControlType = optionalString(c.Query("control_type"))

	bools := []struct {
		keys []string
		dst  **bool
	}{
		{[]string{"offers_bachelors"}, &f.OffersBachelors},
		{[]string{"offers_masters"}, &f.OffersMasters},
		{[]string{"offers_doctorate"}, &f.OffersDoctorate},
		{[]string{"is_hbcu", "is_historically_serving"}, &f.IsHBCU},
		{[]string{"is_tribal"}, &f.IsTribal},
	}
	for _, b := range bools {
		key, raw := firstQuery(c, b.keys...)
		if *b.dst, err = parseBool(key, raw); err != nil {
			return f, err
		}
	}

	if f.MinTestScore, err = parseInt("min_test_score", c.Query("min_test_score")); err != nil {
		return f, err
	}
	if f.MaxTestScore, err = parseInt("max_test_score", c.Query("max_test_score")); err != nil {
		return f, err
	}

	key, raw := firstQuery(c, "min_total_score", "min_score")
	if f.MinTotalScore, err = parseFloat(key, raw); err != nil {
		return f, err
	}
	key, raw = firstQuery(c, "max_enrollment", "max_students")
	if f.MaxEnrollment, err = parseInt(key, raw); err != nil {
		return f, err
	}

	return f, nil
}

// parseSort reads the sort key, falling back to def when absent
func parseSort(c *fiber.Ctx, def queryHelper.Sort) (queryHelper.Sort, error) {
	raw := strings.TrimSpace(c.Query("sort"))
	if raw == "" {
		return def, nil
	}
	return queryHelper.ParseSort(raw)
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("id must be a positive integer, got %q", c.Params("id"))
	}
	return uint(id), nil
}

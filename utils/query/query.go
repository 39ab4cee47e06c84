package queryHelper

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

const (
	// DefaultLimit is the page size used when the caller does not pass one
	DefaultLimit = 100
	// MaxLimit is the largest page size a caller may request
	MaxLimit = 100

	degreeJoin   = "JOIN degree_offerings ON degree_offerings.institution_id = institutions.id"
	identityJoin = "JOIN institution_identities ON institution_identities.institution_id = institutions.id"
)

var (
	ErrInvalidPagination = errors.New("invalid pagination")
	ErrInvalidSort       = errors.New("invalid sort")
)

// Pagination is an offset/limit window over an ordered result
type Pagination struct {
	Offset int `json:"offset" validate:"gte=0"`
	Limit  int `json:"limit" validate:"gte=1,lte=100"`
}

// DefaultPagination returns offset 0 with the given default limit
func DefaultPagination(limit int) Pagination {
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}
	return Pagination{Offset: 0, Limit: limit}
}

// Validate rejects windows outside offset >= 0 and limit in [1, MaxLimit].
// Out-of-range values are never clamped.
func (p Pagination) Validate() error {
	if p.Offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0, got %d", ErrInvalidPagination, p.Offset)
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidPagination, MaxLimit, p.Limit)
	}
	return nil
}

// Scope applies the window to a query
func (p Pagination) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset).Limit(p.Limit)
	}
}

// InstitutionFilter is the set of optional predicates accepted by the
// institution listing. A nil field imposes no constraint; every non-nil
// field is AND-ed into the query.
type InstitutionFilter struct {
	NameContains *string  `json:"name_contains,omitempty"`
	States       []string `json:"states,omitempty"`
	Sector       *string  `json:"sector,omitempty"`
	Country      *string  `json:"country,omitempty"`

	OffersBachelors *bool `json:"offers_bachelors,omitempty"`
	OffersMasters   *bool `json:"offers_masters,omitempty"`
	OffersDoctorate *bool `json:"offers_doctorate,omitempty"`

	IsHBCU               *bool   `json:"is_hbcu,omitempty"`
	IsTribal             *bool   `json:"is_tribal,omitempty"`
	ReligiousAffiliation *string `json:"religious_affiliation,omitempty"`
	ControlType          *string `json:"control_type,omitempty"`

	// Band overlap on the SAT (reading + math) 25th-75th percentile range
	MinTestScore *int `json:"min_test_score,omitempty" validate:"omitempty,gte=400,lte=1600"`
	MaxTestScore *int `json:"max_test_score,omitempty" validate:"omitempty,gte=400,lte=1600"`

	MinTotalScore *float64 `json:"min_total_score,omitempty" validate:"omitempty,gte=0"`
	MaxEnrollment *int     `json:"max_enrollment,omitempty" validate:"omitempty,gte=0"`
}

// IsEmpty reports whether the filter constrains nothing
func (f InstitutionFilter) IsEmpty() bool {
	return f.NameContains == nil && len(f.States) == 0 && f.Sector == nil && f.Country == nil &&
		!f.NeedsDegreeJoin() && !f.NeedsIdentityJoin() &&
		f.MinTestScore == nil && f.MaxTestScore == nil &&
		f.MinTotalScore == nil && f.MaxEnrollment == nil
}

// NeedsDegreeJoin reports whether a degree option is set. The join is an
// inner join, so institutions without a degree_offerings row drop out.
func (f InstitutionFilter) NeedsDegreeJoin() bool {
	return f.OffersBachelors != nil || f.OffersMasters != nil || f.OffersDoctorate != nil
}

// NeedsIdentityJoin reports whether a classification option is set. Like the
// degree join, institutions without an identity row drop out.
func (f InstitutionFilter) NeedsIdentityJoin() bool {
	return f.IsHBCU != nil || f.IsTribal != nil || f.ReligiousAffiliation != nil || f.ControlType != nil
}

// Merge returns f with every option set in other copied over it. For
// disjoint option sets the result filters exactly like applying both.
func (f InstitutionFilter) Merge(other InstitutionFilter) InstitutionFilter {
	out := f
	if other.NameContains != nil {
		out.NameContains = other.NameContains
	}
	if len(other.States) > 0 {
		out.States = append([]string(nil), other.States...)
	}
	if other.Sector != nil {
		out.Sector = other.Sector
	}
	if other.Country != nil {
		out.Country = other.Country
	}
	if other.OffersBachelors != nil {
		out.OffersBachelors = other.OffersBachelors
	}
	if other.OffersMasters != nil {
		out.OffersMasters = other.OffersMasters
	}
	if other.OffersDoctorate != nil {
		out.OffersDoctorate = other.OffersDoctorate
	}
	if other.IsHBCU != nil {
		out.IsHBCU = other.IsHBCU
	}
	if other.IsTribal != nil {
		out.IsTribal = other.IsTribal
	}
	if other.ReligiousAffiliation != nil {
		out.ReligiousAffiliation = other.ReligiousAffiliation
	}
	if other.ControlType != nil {
		out.ControlType = other.ControlType
	}
	if other.MinTestScore != nil {
		out.MinTestScore = other.MinTestScore
	}
	if other.MaxTestScore != nil {
		out.MaxTestScore = other.MaxTestScore
	}
	if other.MinTotalScore != nil {
		out.MinTotalScore = other.MinTotalScore
	}
	if other.MaxEnrollment != nil {
		out.MaxEnrollment = other.MaxEnrollment
	}
	return out
}

// Scope returns a GORM scope that conjoins every set option onto a query
// over institutions. Joins are added at most once per query, so scopes of
// several filters can be chained.
func (f InstitutionFilter) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.NameContains != nil && strings.TrimSpace(*f.NameContains) != "" {
			db = db.Where("institutions.name ILIKE ?", "%"+EscapeLike(strings.TrimSpace(*f.NameContains))+"%")
		}
		if len(f.States) > 0 {
			db = db.Where("institutions.state IN ?", f.States)
		}
		if f.Sector != nil {
			db = db.Where("institutions.sector = ?", *f.Sector)
		}
		if f.Country != nil {
			db = db.Where("institutions.country = ?", *f.Country)
		}

		if f.NeedsDegreeJoin() {
			db = joinOnce(db, degreeJoin)
			if f.OffersBachelors != nil {
				db = db.Where("degree_offerings.offers_bachelors = ?", *f.OffersBachelors)
			}
			if f.OffersMasters != nil {
				db = db.Where("degree_offerings.offers_masters = ?", *f.OffersMasters)
			}
			if f.OffersDoctorate != nil {
				db = db.Where("degree_offerings.offers_doctorate = ?", *f.OffersDoctorate)
			}
		}

		if f.NeedsIdentityJoin() {
			db = joinOnce(db, identityJoin)
			if f.IsHBCU != nil {
				db = db.Where("institution_identities.is_hbcu = ?", *f.IsHBCU)
			}
			if f.IsTribal != nil {
				db = db.Where("institution_identities.is_tribal = ?", *f.IsTribal)
			}
			if f.ReligiousAffiliation != nil {
				db = db.Where("institution_identities.religious_affiliation = ?", *f.ReligiousAffiliation)
			}
			if f.ControlType != nil {
				db = db.Where("institution_identities.control_type = ?", *f.ControlType)
			}
		}

		if f.MinTestScore != nil {
			db = db.Where("institutions.sat_total_75 >= ?", *f.MinTestScore)
		}
		if f.MaxTestScore != nil {
			db = db.Where("institutions.sat_total_25 <= ?", *f.MaxTestScore)
		}
		if f.MinTotalScore != nil {
			db = db.Where("institutions.total_score >= ?", *f.MinTotalScore)
		}
		if f.MaxEnrollment != nil {
			db = db.Where("institutions.total_enrollment <= ?", *f.MaxEnrollment)
		}
		return db
	}
}

func joinOnce(db *gorm.DB, join string) *gorm.DB {
	for _, j := range db.Statement.Joins {
		if j.Name == join {
			return db
		}
	}
	return db.Joins(join)
}

// EscapeLike escapes the LIKE wildcards in a user supplied fragment
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Sort is a whitelisted ordering key. A leading "-" means descending.
type Sort string

const (
	SortID             Sort = "id"
	SortName           Sort = "name"
	SortNameDesc       Sort = "-name"
	SortTotalScore     Sort = "total_score"
	SortTotalScoreDesc Sort = "-total_score"
	SortEnrollment     Sort = "enrollment"
	SortEnrollmentDesc Sort = "-enrollment"
	SortWorldRank      Sort = "world_rank"
)

var sortClauses = map[Sort]string{
	SortID:             "institutions.id ASC",
	SortName:           "institutions.name ASC",
	SortNameDesc:       "institutions.name DESC",
	SortTotalScore:     "institutions.total_score ASC NULLS LAST",
	SortTotalScoreDesc: "institutions.total_score DESC NULLS LAST",
	SortEnrollment:     "institutions.total_enrollment ASC NULLS LAST",
	SortEnrollmentDesc: "institutions.total_enrollment DESC NULLS LAST",
	SortWorldRank:      "institutions.world_rank ASC NULLS LAST",
}

// ParseSort validates a sort key; the empty string means SortID
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return SortID, nil
	}
	s := Sort(raw)
	if _, ok := sortClauses[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSort, raw)
	}
	return s, nil
}

// Scope orders the query; ties are always broken by id so that pages are
// stable across requests
func (s Sort) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		clause, ok := sortClauses[s]
		if !ok || s == SortID {
			return db.Order(sortClauses[SortID])
		}
		return db.Order(clause).Order(sortClauses[SortID])
	}
}

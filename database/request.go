package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/sahilchouksey/university-explorer/model"
	queryHelper "github.com/sahilchouksey/university-explorer/utils/query"
	"gorm.io/gorm"
)

// ListInstitutions returns one page of institutions matching filter plus the
// total number of matches
func (s *GORMStore) ListInstitutions(ctx context.Context, filter queryHelper.InstitutionFilter, page queryHelper.Pagination, sort queryHelper.Sort) ([]model.InstitutionView, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&model.Institution{}).
		Scopes(filter.Scope()).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count institutions: %w", err)
	}

	views := []model.InstitutionView{}
	if int64(page.Offset) >= total {
		return views, total, nil
	}

	var institutions []model.Institution
	if err := query.
		Preload("DegreeOffering").
		Preload("Identity").
		Scopes(sort.Scope(), page.Scope()).
		Find(&institutions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch institutions: %w", err)
	}

	for _, in := range institutions {
		views = append(views, model.NewInstitutionView(in))
	}
	return views, total, nil
}

// GetInstitution fetches one institution with its companion records
func (s *GORMStore) GetInstitution(ctx context.Context, id uint) (*model.InstitutionView, error) {
	var institution model.Institution
	err := s.db.WithContext(ctx).
		Preload("DegreeOffering").
		Preload("Identity").
		First(&institution, id).Error
	if err != nil {
		return nil, notFound(err, "institution %d", id)
	}

	view := model.NewInstitutionView(institution)
	return &view, nil
}

// GetInstitutionByName fetches the lowest-id institution whose name equals
// name exactly. Names are not unique in the source data.
func (s *GORMStore) GetInstitutionByName(ctx context.Context, name string) (*model.InstitutionView, error) {
	var institution model.Institution
	err := s.db.WithContext(ctx).
		Preload("DegreeOffering").
		Preload("Identity").
		Where("name = ?", name).
		Order("id ASC").
		First(&institution).Error
	if err != nil {
		return nil, notFound(err, "institution %q", name)
	}

	view := model.NewInstitutionView(institution)
	return &view, nil
}

// GetDegreeOffering returns the degree record of an institution
func (s *GORMStore) GetDegreeOffering(ctx context.Context, institutionID uint) (*model.DegreeOffering, error) {
	var offering model.DegreeOffering
	err := s.db.WithContext(ctx).
		Where("institution_id = ?", institutionID).
		First(&offering).Error
	if err != nil {
		return nil, notFound(err, "degree offering for institution %d", institutionID)
	}
	return &offering, nil
}

// GetIdentity returns the classification record of an institution
func (s *GORMStore) GetIdentity(ctx context.Context, institutionID uint) (*model.InstitutionIdentity, error) {
	var identity model.InstitutionIdentity
	err := s.db.WithContext(ctx).
		Where("institution_id = ?", institutionID).
		First(&identity).Error
	if err != nil {
		return nil, notFound(err, "identity for institution %d", institutionID)
	}
	return &identity, nil
}

// InstitutionExists reports whether an institution with id exists
func (s *GORMStore) InstitutionExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&model.Institution{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check institution %d: %w", id, err)
	}
	return count > 0, nil
}

// ListStates returns the distinct non-empty states, sorted
func (s *GORMStore) ListStates(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "state")
}

// ListCountries returns the distinct non-empty countries, sorted
func (s *GORMStore) ListCountries(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "country")
}

func (s *GORMStore) distinctColumn(ctx context.Context, column string) ([]string, error) {
	values := []string{}
	if err := s.db.WithContext(ctx).
		Model(&model.Institution{}).
		Where(column+" IS NOT NULL AND "+column+" <> ''").
		Distinct().
		Order(column).
		Pluck(column, &values).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s values: %w", column, err)
	}
	return values, nil
}

// GetStats aggregates the whole dataset
func (s *GORMStore) GetStats(ctx context.Context) (*model.InstitutionStats, error) {
	var stats model.InstitutionStats
	if err := s.db.WithContext(ctx).
		Model(&model.Institution{}).
		Select(`COUNT(*) AS total_universities,
			AVG(total_score) AS avg_score,
			MAX(total_score) AS max_score,
			MIN(total_score) AS min_score,
			AVG(total_enrollment) AS avg_enrollment,
			COUNT(DISTINCT NULLIF(country, '')) AS total_countries,
			COUNT(DISTINCT NULLIF(state, '')) AS total_states`).
		Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate institution stats: %w", err)
	}
	return &stats, nil
}

// ListImportRuns returns the most recent dataset imports
func (s *GORMStore) ListImportRuns(ctx context.Context, limit int) ([]model.ImportRun, error) {
	runs := []model.ImportRun{}
	if err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}
	return runs, nil
}

// notFound maps gorm.ErrRecordNotFound to ErrNotFound and wraps anything
// else with the lookup description
func notFound(err error, format string, args ...interface{}) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}

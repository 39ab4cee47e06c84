package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/sahilchouksey/university-explorer/model"
	queryHelper "github.com/sahilchouksey/university-explorer/utils/query"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordSwipe appends swipe and, when wantMatch is set, creates a match for
// the same institution in the same transaction. With dedupe the existing
// match of the institution is returned instead of creating a second one;
// the institution row is locked so that concurrent right swipes serialize.
func (s *GORMStore) RecordSwipe(ctx context.Context, swipe *model.Swipe, wantMatch bool, dedupe bool) (*model.Match, error) {
	var match *model.Match

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if wantMatch && dedupe {
			var institution model.Institution
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				First(&institution, swipe.InstitutionID).Error; err != nil {
				return notFound(err, "institution %d", swipe.InstitutionID)
			}
		}

		if err := tx.Create(swipe).Error; err != nil {
			return fmt.Errorf("failed to create swipe: %w", err)
		}

		if !wantMatch {
			return nil
		}

		if dedupe {
			var existing model.Match
			err := tx.Where("institution_id = ?", swipe.InstitutionID).
				Order("id ASC").
				First(&existing).Error
			if err == nil {
				match = &existing
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up existing match: %w", err)
			}
		}

		swipeID := swipe.ID
		created := model.Match{
			InstitutionID: swipe.InstitutionID,
			SwipeID:       &swipeID,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("failed to create match: %w", err)
		}
		match = &created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return match, nil
}

// ListSwipes returns the swipe log, newest first
func (s *GORMStore) ListSwipes(ctx context.Context, page queryHelper.Pagination) ([]model.SwipeView, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&model.Swipe{}).
		Joins("JOIN institutions ON institutions.id = swipes.institution_id").
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count swipes: %w", err)
	}

	views := []model.SwipeView{}
	if err := query.
		Select("swipes.id, swipes.institution_id, institutions.name AS institution_name, swipes.direction, swipes.note, swipes.created_at").
		Order("swipes.created_at DESC, swipes.id DESC").
		Scopes(page.Scope()).
		Scan(&views).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch swipes: %w", err)
	}
	return views, total, nil
}

// ListMatches returns matches with the matched institution's name, newest first
func (s *GORMStore) ListMatches(ctx context.Context, page queryHelper.Pagination) ([]model.MatchView, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&model.Match{}).
		Joins("JOIN institutions ON institutions.id = matches.institution_id").
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count matches: %w", err)
	}

	views := []model.MatchView{}
	if err := query.
		Select("matches.id, matches.institution_id, institutions.name AS institution_name, matches.swipe_id, matches.created_at").
		Order("matches.created_at DESC, matches.id DESC").
		Scopes(page.Scope()).
		Scan(&views).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch matches: %w", err)
	}
	return views, total, nil
}

// DeleteMatch removes a match by id
func (s *GORMStore) DeleteMatch(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&model.Match{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("match %d: %w", id, ErrNotFound)
	}
	return nil
}

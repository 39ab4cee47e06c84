package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/university-explorer/database"
	"github.com/sahilchouksey/university-explorer/model"
	"github.com/sahilchouksey/university-explorer/utils/metrics"
	queryHelper "github.com/sahilchouksey/university-explorer/utils/query"
)

var (
	// ErrInvalidDirection rejects directions other than left and right
	ErrInvalidDirection = errors.New("direction must be 'left' or 'right'")
	// ErrInstitutionNotFound is returned when swiping on an unknown institution
	ErrInstitutionNotFound = fmt.Errorf("institution %w", database.ErrNotFound)
)

// SwipeStore is the storage subset the swipe service needs
type SwipeStore interface {
	InstitutionExists(ctx context.Context, id uint) (bool, error)
	RecordSwipe(ctx context.Context, swipe *model.Swipe, wantMatch bool, dedupe bool) (*model.Match, error)
	ListSwipes(ctx context.Context, page queryHelper.Pagination) ([]model.SwipeView, int64, error)
	ListMatches(ctx context.Context, page queryHelper.Pagination) ([]model.MatchView, int64, error)
	DeleteMatch(ctx context.Context, id uint) error
}

// SwipeService records swipes and maintains the match list
type SwipeService struct {
	store  SwipeStore
	dedupe bool
}

// NewSwipeService creates a swipe service. With dedupe a right swipe on an
// already matched institution reuses the existing match.
func NewSwipeService(store SwipeStore, dedupe bool) *SwipeService {
	return &SwipeService{store: store, dedupe: dedupe}
}

// RecordSwipeRequest is the input of RecordSwipe
type RecordSwipeRequest struct {
	InstitutionID uint   `json:"institution_id" validate:"required,gt=0"`
	Direction     string `json:"direction" validate:"required,oneof=left right"`
	Note          string `json:"note" validate:"max=500"`
}

// SwipeResult is the outcome of RecordSwipe. Match is nil for left swipes.
type SwipeResult struct {
	Swipe        *model.Swipe `json:"swipe"`
	Match        *model.Match `json:"match"`
	MatchCreated bool         `json:"match_created"`
}

// RecordSwipe appends a swipe; a right swipe also yields a match
func (s *SwipeService) RecordSwipe(ctx context.Context, req RecordSwipeRequest) (*SwipeResult, error) {
	direction := model.SwipeDirection(strings.ToLower(strings.TrimSpace(req.Direction)))
	if !direction.IsValid() {
		return nil, ErrInvalidDirection
	}

	exists, err := s.store.InstitutionExists(ctx, req.InstitutionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrInstitutionNotFound
	}

	swipe := &model.Swipe{
		InstitutionID: req.InstitutionID,
		Direction:     direction,
	}
	if note := strings.TrimSpace(req.Note); note != "" {
		swipe.Note = &note
	}

	match, err := s.store.RecordSwipe(ctx, swipe, direction == model.SwipeRight, s.dedupe)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInstitutionNotFound
		}
		return nil, err
	}

	result := &SwipeResult{Swipe: swipe, Match: match}
	metrics.SwipesTotal.WithLabelValues(string(direction)).Inc()
	if match != nil && match.SwipeID != nil && *match.SwipeID == swipe.ID {
		result.MatchCreated = true
		metrics.MatchesCreatedTotal.Inc()
	}

	log.Infow("Swipe recorded",
		"swipe_id", swipe.ID,
		"institution_id", swipe.InstitutionID,
		"direction", direction,
		"match_created", result.MatchCreated,
	)
	return result, nil
}

// ListSwipes returns the swipe log, newest first
func (s *SwipeService) ListSwipes(ctx context.Context, page queryHelper.Pagination) ([]model.SwipeView, int64, error) {
	return s.store.ListSwipes(ctx, page)
}

// ListMatches returns the matches, newest first
func (s *SwipeService) ListMatches(ctx context.Context, page queryHelper.Pagination) ([]model.MatchView, int64, error) {
	return s.store.ListMatches(ctx, page)
}

// DeleteMatch removes a match; database.ErrNotFound when it does not exist
func (s *SwipeService) DeleteMatch(ctx context.Context, id uint) error {
	if err := s.store.DeleteMatch(ctx, id); err != nil {
		return err
	}
	log.Infow("Match deleted", "match_id", id)
	return nil
}

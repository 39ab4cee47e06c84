package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/university-explorer/database"
	"github.com/sahilchouksey/university-explorer/model"
	queryHelper "github.com/sahilchouksey/university-explorer/utils/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySwipeStore mirrors the transactional behaviour of GORMStore
type memorySwipeStore struct {
	mu           sync.Mutex
	institutions map[uint]bool
	swipes       []model.Swipe
	matches      []model.Match
	nextSwipe    uint
	nextMatch    uint
}

func newMemorySwipeStore(ids ...uint) *memorySwipeStore {
	store := &memorySwipeStore{institutions: map[uint]bool{}}
	for _, id := range ids {
		store.institutions[id] = true
	}
	return store
}

func (m *memorySwipeStore) InstitutionExists(ctx context.Context, id uint) (bool, error) {
	return m.institutions[id], nil
}

func (m *memorySwipeStore) RecordSwipe(ctx context.Context, swipe *model.Swipe, wantMatch bool, dedupe bool) (*model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSwipe++
	swipe.ID = m.nextSwipe
	swipe.CreatedAt = time.Now()
	m.swipes = append(m.swipes, *swipe)

	if !wantMatch {
		return nil, nil
	}
	if dedupe {
		for _, existing := range m.matches {
			if existing.InstitutionID == swipe.InstitutionID {
				match := existing
				return &match, nil
			}
		}
	}

	m.nextMatch++
	swipeID := swipe.ID
	match := model.Match{ID: m.nextMatch, InstitutionID: swipe.InstitutionID, SwipeID: &swipeID, CreatedAt: time.Now()}
	m.matches = append(m.matches, match)
	return &match, nil
}

func (m *memorySwipeStore) ListSwipes(ctx context.Context, page queryHelper.Pagination) ([]model.SwipeView, int64, error) {
	views := []model.SwipeView{}
	for i := len(m.swipes) - 1; i >= 0; i-- {
		s := m.swipes[i]
		views = append(views, model.SwipeView{ID: s.ID, InstitutionID: s.InstitutionID, Direction: s.Direction, Note: s.Note, CreatedAt: s.CreatedAt})
	}
	return paginate(views, page), int64(len(views)), nil
}

func (m *memorySwipeStore) ListMatches(ctx context.Context, page queryHelper.Pagination) ([]model.MatchView, int64, error) {
	views := []model.MatchView{}
	for i := len(m.matches) - 1; i >= 0; i-- {
		match := m.matches[i]
		views = append(views, model.MatchView{ID: match.ID, InstitutionID: match.InstitutionID, SwipeID: match.SwipeID, CreatedAt: match.CreatedAt})
	}
	return paginate(views, page), int64(len(views)), nil
}

func (m *memorySwipeStore) DeleteMatch(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, match := range m.matches {
		if match.ID == id {
			m.matches = append(m.matches[:i], m.matches[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

func paginate[T any](items []T, page queryHelper.Pagination) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}

func TestRecordSwipeRightCreatesExactlyOneMatch(t *testing.T) {
	store := newMemorySwipeStore(7)
	service := NewSwipeService(store, false)

	result, err := service.RecordSwipe(context.Background(), RecordSwipeRequest{InstitutionID: 7, Direction: "right", Note: "  great labs "})
	require.NoError(t, err)

	require.NotNil(t, result.Match)
	assert.True(t, result.MatchCreated)
	assert.Equal(t, uint(7), result.Match.InstitutionID)
	assert.Equal(t, result.Swipe.ID, *result.Match.SwipeID)
	require.NotNil(t, result.Swipe.Note)
	assert.Equal(t, "great labs", *result.Swipe.Note)
	assert.Len(t, store.matches, 1)
}

func TestRecordSwipeLeftCreatesNoMatch(t *testing.T) {
	store := newMemorySwipeStore(7)
	service := NewSwipeService(store, false)

	result, err := service.RecordSwipe(context.Background(), RecordSwipeRequest{InstitutionID: 7, Direction: "LEFT"})
	require.NoError(t, err)

	assert.Nil(t, result.Match)
	assert.False(t, result.MatchCreated)
	assert.Nil(t, result.Swipe.Note)
	assert.Empty(t, store.matches)
	assert.Len(t, store.swipes, 1)
}

func TestRecordSwipeDuplicatesWithoutDedupe(t *testing.T) {
	store := newMemorySwipeStore(7)
	service := NewSwipeService(store, false)

	for i := 0; i < 2; i++ {
		_, err := service.RecordSwipe(context.Background(), RecordSwipeRequest{InstitutionID: 7, Direction: "right"})
		require.NoError(t, err)
	}
	assert.Len(t, store.matches, 2)
}

func TestRecordSwipeDedupeReusesMatch(t *testing.T) {
	store := newMemorySwipeStore(7)
	service := NewSwipeService(store, true)

	first, err := service.RecordSwipe(context.Background(), RecordSwipeRequest{InstitutionID: 7, Direction: "right"})
	require.NoError(t, err)
	second, err := service.RecordSwipe(context.Background(), RecordSwipeRequest{InstitutionID: 7, Direction: "right"})
	require.NoError(t, err)

	assert.Equal(t, first.Match.ID, second.Match.ID)
	assert.False(t, second.MatchCreated)
	assert.Len(t, store.matches, 1)
	assert.Len(t, store.swipes, 2)
}

func TestRecordSwipeValidation(t *testing.T) {
	store := newMemorySwipeStore(7)
	service := NewSwipeService(store, false)

	_, err := service.RecordSwipe(context.Background(), RecordSwipeRequest{InstitutionID: 7, Direction: "up"})
	assert.ErrorIs(t, err, ErrInvalidDirection)

	_, err = service.RecordSwipe(context.Background(), RecordSwipeRequest{InstitutionID: 99, Direction: "right"})
	assert.ErrorIs(t, err, ErrInstitutionNotFound)
	assert.True(t, errors.Is(err, database.ErrNotFound))

	assert.Empty(t, store.swipes)
}

func TestDeleteMissingMatchLeavesCollectionUnchanged(t *testing.T) {
	store := newMemorySwipeStore(7)
	service := NewSwipeService(store, false)

	result, err := service.RecordSwipe(context.Background(), RecordSwipeRequest{InstitutionID: 7, Direction: "right"})
	require.NoError(t, err)

	err = service.DeleteMatch(context.Background(), result.Match.ID+100)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.Len(t, store.matches, 1)

	require.NoError(t, service.DeleteMatch(context.Background(), result.Match.ID))
	assert.Empty(t, store.matches)
}

func TestListMatchesNewestFirst(t *testing.T) {
	store := newMemorySwipeStore(1, 2, 3)
	service := NewSwipeService(store, false)

	for _, id := range []uint{1, 2, 3} {
		_, err := service.RecordSwipe(context.Background(), RecordSwipeRequest{InstitutionID: id, Direction: "right"})
		require.NoError(t, err)
	}

	matches, total, err := service.ListMatches(context.Background(), queryHelper.Pagination{Offset: 0, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, matches, 2)
	assert.Equal(t, uint(3), matches[0].InstitutionID)
	assert.Equal(t, uint(2), matches[1].InstitutionID)
}

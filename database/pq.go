package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	_ "github.com/lib/pq"
	"github.com/sahilchouksey/university-explorer/config"
	"github.com/sahilchouksey/university-explorer/model"
	queryHelper "github.com/sahilchouksey/university-explorer/utils/query"
)

var (
	// ErrNotFound is returned by singleton lookups and deletes that match no row
	ErrNotFound = errors.New("record not found")
)

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck() error

	// GORM DB access
	GetDB() interface{}

	// Institutions (read-only)
	ListInstitutions(ctx context.Context, filter queryHelper.InstitutionFilter, page queryHelper.Pagination, sort queryHelper.Sort) ([]model.InstitutionView, int64, error)
	GetInstitution(ctx context.Context, id uint) (*model.InstitutionView, error)
	GetInstitutionByName(ctx context.Context, name string) (*model.InstitutionView, error)
	GetDegreeOffering(ctx context.Context, institutionID uint) (*model.DegreeOffering, error)
	GetIdentity(ctx context.Context, institutionID uint) (*model.InstitutionIdentity, error)
	InstitutionExists(ctx context.Context, id uint) (bool, error)
	ListStates(ctx context.Context) ([]string, error)
	ListCountries(ctx context.Context) ([]string, error)
	GetStats(ctx context.Context) (*model.InstitutionStats, error)

	// Swipes & matches
	RecordSwipe(ctx context.Context, swipe *model.Swipe, wantMatch bool, dedupe bool) (*model.Match, error)
	ListSwipes(ctx context.Context, page queryHelper.Pagination) ([]model.SwipeView, int64, error)
	ListMatches(ctx context.Context, page queryHelper.Pagination) ([]model.MatchView, int64, error)
	DeleteMatch(ctx context.Context, id uint) error

	// Import history
	ListImportRuns(ctx context.Context, limit int) ([]model.ImportRun, error)
}

// PostgreSQLStore talks to Postgres through lib/pq. It is used for the
// bulk COPY that replaces the dataset; request handling goes through GORMStore.
type PostgreSQLStore struct {
	db     *sql.DB
	schema string
}

func Start() (*PostgreSQLStore, error) {
	getEnv, err := config.Get()

	if err != nil {
		return nil, err
	}

	connectStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv.DB_HOST, getEnv.DB_PORT, getEnv.DB_USER_NAME, getEnv.DB_PASSWORD, getEnv.DB_NAME, getEnv.DB_SSL_MODE)

	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		log.Errorf("Unable to start PostgreSQL bulk loader: %v", err)
		return nil, err
	}

	log.Info("Successfully connected to PostgreSQL Database (bulk loader).")
	return &PostgreSQLStore{
		db:     db,
		schema: getEnv.DB_SCHEMA,
	}, nil
}

// NewPostgreSQLStore wraps an already opened lib/pq handle
func NewPostgreSQLStore(db *sql.DB, schema string) *PostgreSQLStore {
	return &PostgreSQLStore{db: db, schema: schema}
}

func (s *PostgreSQLStore) Init() error {
	log.Info("Initializing PostgreSQL bulk loader.")
	return s.Initialize()
}

func (s *PostgreSQLStore) Close() error {
	log.Info("Closing PostgreSQL bulk loader.")
	return s.db.Close()
}

// HealthCheck verifies the database connection is alive
func (s *PostgreSQLStore) HealthCheck() error {
	return s.db.Ping()
}

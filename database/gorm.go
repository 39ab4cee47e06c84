package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/university-explorer/config"
	"github.com/sahilchouksey/university-explorer/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GORMStore struct {
	db     *gorm.DB
	schema string
}

// BuildDSN assembles the pgx DSN, pinning search_path to the configured schema
func BuildDSN(env *config.EnvironmentVariable) string {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		env.DB_HOST,
		env.DB_USER_NAME,
		env.DB_PASSWORD,
		env.DB_NAME,
		env.DB_PORT,
		env.DB_SSL_MODE,
	)
	if env.DB_SCHEMA != "" {
		dsn += fmt.Sprintf(" search_path=%s", env.DB_SCHEMA)
	}
	return dsn
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM() (*GORMStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	// Configure GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if getEnv.GO_ENV == "production" {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	// Open GORM connection
	db, err := gorm.Open(postgres.Open(BuildDSN(getEnv)), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: false,
		PrepareStmt:            true,
	})
	if err != nil {
		log.Errorf("Unable to connect to PostgreSQL with GORM: %v", err)
		return nil, err
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Successfully connected to PostgreSQL Database with GORM.")

	return &GORMStore{db: db, schema: getEnv.DB_SCHEMA}, nil
}

// NewGORMStore wraps an existing GORM handle
func NewGORMStore(db *gorm.DB, schema string) *GORMStore {
	return &GORMStore{db: db, schema: schema}
}

// Init creates the schema if needed and runs AutoMigrate
func (s *GORMStore) Init() error {
	if s.schema != "" {
		if err := s.db.Exec(createSchemaSQL(s.schema)).Error; err != nil {
			log.Errorf("Error creating schema %q: %v", s.schema, err)
			return err
		}
	}

	log.Info("Running GORM AutoMigrate for all models...")

	err := s.db.AutoMigrate(
		// Dataset
		&model.Institution{},
		&model.DegreeOffering{},
		&model.InstitutionIdentity{},

		// Preferences
		&model.Swipe{},
		&model.Match{},

		// Bookkeeping
		&model.ImportRun{},
		&model.CronJobLog{},
	)

	if err != nil {
		log.Errorf("Error running AutoMigrate: %v", err)
		return err
	}

	log.Info("GORM AutoMigrate completed successfully!")
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	log.Info("Closing GORM PostgreSQL connection...")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services and cron jobs
func (s *GORMStore) GetDB() interface{} {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

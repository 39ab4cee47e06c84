package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/lib/pq"
)

// Initialize makes sure the configured schema exists. Tables are owned by
// GORMStore.Init (AutoMigrate); the bulk loader only writes into them.
func (s *PostgreSQLStore) Initialize() error {
	if s.schema == "" {
		return nil
	}
	log.Infof("Initializing PostgreSQL schema %q", s.schema)
	_, err := s.db.Exec(createSchemaSQL(s.schema))
	return err
}

// setSearchPath scopes the transaction to the configured schema
func (s *PostgreSQLStore) setSearchPath(ctx context.Context, tx *sql.Tx) error {
	if s.schema == "" {
		return nil
	}
	_, err := tx.ExecContext(ctx, "SET LOCAL search_path TO "+pq.QuoteIdentifier(s.schema))
	return err
}

func createSchemaSQL(schema string) string {
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pq.QuoteIdentifier(schema))
}

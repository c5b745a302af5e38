package store

import (
	"context"
	"errors"
	"fmt"
)

// Statements stay within the SQL subset shared by libsql and postgres.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS rate_limits (
		rl_key TEXT PRIMARY KEY,
		request_count BIGINT NOT NULL DEFAULT 0,
		reset_at BIGINT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_rate_limits_reset ON rate_limits(reset_at);`,
	`CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		company TEXT,
		service_type TEXT,
		simulation_types TEXT,
		message TEXT,
		client_id TEXT,
		created_at BIGINT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_leads_created ON leads(created_at);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}

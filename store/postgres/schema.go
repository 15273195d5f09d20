package postgres

import "context"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS custom_attributes (
		id BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		ord INT NOT NULL DEFAULT 0,
		options JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		modified_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (project_id, kind, name)
	);`,
	`CREATE INDEX IF NOT EXISTS custom_attributes_project_kind
		ON custom_attributes (project_id, kind);`,
	`CREATE TABLE IF NOT EXISTS attribute_values (
		project_id BIGINT NOT NULL,
		kind TEXT NOT NULL,
		item_id BIGINT NOT NULL,
		version INT NOT NULL DEFAULT 1,
		vals JSONB NOT NULL DEFAULT '{}',
		PRIMARY KEY (kind, item_id)
	);`,
}

// Migrate applies the schema. Every statement is idempotent, so running it
// on an existing database is safe.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

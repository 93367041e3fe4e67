package scriptstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the prompter_scripts table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS prompter_scripts (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    lines      JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_prompter_scripts_title ON prompter_scripts(title);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. Script lines
// are serialised as a JSONB array.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// prompter_scripts table and index if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("scriptstore: migrate: %w", err)
	}
	return nil
}

// Create inserts a new script definition.
func (s *PostgresStore) Create(ctx context.Context, def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}

	linesJSON, err := json.Marshal(emptyLines(def.Lines))
	if err != nil {
		return fmt.Errorf("scriptstore: marshal lines: %w", err)
	}

	const query = `
		INSERT INTO prompter_scripts (id, title, lines)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	err = s.db.QueryRow(ctx, query, def.ID, def.Title, linesJSON).
		Scan(&def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("scriptstore: create: %w", err)
	}
	return nil
}

// Get retrieves a script definition by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Definition, error) {
	const query = `
		SELECT id, title, lines, created_at, updated_at
		FROM prompter_scripts
		WHERE id = $1`

	var def Definition
	var linesJSON []byte

	err := s.db.QueryRow(ctx, query, id).Scan(
		&def.ID, &def.Title, &linesJSON, &def.CreatedAt, &def.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scriptstore: get %q: %w", id, err)
	}

	if err := json.Unmarshal(linesJSON, &def.Lines); err != nil {
		return nil, fmt.Errorf("scriptstore: unmarshal lines: %w", err)
	}
	return &def, nil
}

// Update replaces an existing script definition.
func (s *PostgresStore) Update(ctx context.Context, def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	linesJSON, err := json.Marshal(emptyLines(def.Lines))
	if err != nil {
		return fmt.Errorf("scriptstore: marshal lines: %w", err)
	}

	const query = `
		UPDATE prompter_scripts SET
			title = $2, lines = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err = s.db.QueryRow(ctx, query, def.ID, def.Title, linesJSON).
		Scan(&def.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scriptstore: update: %w", err)
	}
	return nil
}

// Delete removes a script definition by ID. Deleting a non-existent script is
// not an error.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM prompter_scripts WHERE id = $1`
	_, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("scriptstore: delete %q: %w", id, err)
	}
	return nil
}

// List returns all script definitions ordered by title.
func (s *PostgresStore) List(ctx context.Context) ([]Definition, error) {
	const query = `
		SELECT id, title, lines, created_at, updated_at
		FROM prompter_scripts
		ORDER BY title`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scriptstore: list: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		var def Definition
		var linesJSON []byte

		if err := rows.Scan(
			&def.ID, &def.Title, &linesJSON, &def.CreatedAt, &def.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scriptstore: list scan: %w", err)
		}
		if err := json.Unmarshal(linesJSON, &def.Lines); err != nil {
			return nil, fmt.Errorf("scriptstore: unmarshal lines: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scriptstore: list: %w", err)
	}
	return defs, nil
}

// emptyLines returns s if non-nil, otherwise an empty non-nil slice. This
// ensures JSON marshalling produces "[]" instead of "null".
func emptyLines(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

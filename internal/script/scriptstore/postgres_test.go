package scriptstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ---------------------------------------------------------------------------
// Test helpers: mock DB types
// ---------------------------------------------------------------------------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockRows implements pgx.Rows for testing.
type mockRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d columns, got %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *[]byte:
			*d = v.([]byte)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported type at index %d: %T", i, dest[i])
		}
	}
	return nil
}

// mockDB implements the DB interface for testing.
type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

// ---------------------------------------------------------------------------
// PostgresStore tests
// ---------------------------------------------------------------------------

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()

	var gotSQL string
	db := &mockDB{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			gotSQL = sql
			return pgconn.CommandTag{}, nil
		},
	}

	s := NewPostgresStore(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !strings.Contains(gotSQL, "CREATE TABLE IF NOT EXISTS prompter_scripts") {
		t.Errorf("Migrate executed unexpected SQL: %q", gotSQL)
	}
}

func TestPostgresStore_Create_AssignsIDAndTimestamps(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	db := &mockDB{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				*dest[0].(*time.Time) = now
				*dest[1].(*time.Time) = now
				return nil
			}}
		},
	}

	s := NewPostgresStore(db)
	def := &Definition{Title: "Morning Brief", Lines: []string{"Hello."}}
	if err := s.Create(context.Background(), def); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if def.ID == "" {
		t.Error("Create should assign an ID when empty")
	}
	if !def.CreatedAt.Equal(now) || !def.UpdatedAt.Equal(now) {
		t.Error("Create should populate timestamps from RETURNING clause")
	}
}

func TestPostgresStore_Create_Duplicate(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				return &pgconn.PgError{Code: "23505"}
			}}
		},
	}

	s := NewPostgresStore(db)
	err := s.Create(context.Background(), &Definition{ID: "dup", Title: "Dup"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Create = %v, want ErrDuplicateID", err)
	}
}

func TestPostgresStore_Create_Invalid(t *testing.T) {
	t.Parallel()

	s := NewPostgresStore(&mockDB{})
	if err := s.Create(context.Background(), &Definition{}); err == nil {
		t.Error("expected validation error for empty title")
	}
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	t.Parallel()

	s := NewPostgresStore(&mockDB{})
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_Get_UnmarshalsLines(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	db := &mockDB{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				*dest[0].(*string) = "s1"
				*dest[1].(*string) = "News"
				*dest[2].(*[]byte) = []byte(`["first line","second line"]`)
				*dest[3].(*time.Time) = now
				*dest[4].(*time.Time) = now
				return nil
			}}
		},
	}

	s := NewPostgresStore(db)
	def, err := s.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(def.Lines) != 2 || def.Lines[1] != "second line" {
		t.Errorf("unexpected lines: %v", def.Lines)
	}
}

func TestPostgresStore_Update_NotFound(t *testing.T) {
	t.Parallel()

	s := NewPostgresStore(&mockDB{})
	err := s.Update(context.Background(), &Definition{ID: "ghost", Title: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_List(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	db := &mockDB{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &mockRows{data: [][]any{
				{"a", "Alpha", []byte(`["one"]`), now, now},
				{"b", "Beta", []byte(`[]`), now, now},
			}}, nil
		},
	}

	s := NewPostgresStore(db)
	defs, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("len = %d, want 2", len(defs))
	}
	if defs[0].Title != "Alpha" || len(defs[0].Lines) != 1 {
		t.Errorf("unexpected first definition: %+v", defs[0])
	}
}

package scriptstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemStore_CreateAndGet(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	ctx := context.Background()

	def := &Definition{Title: "Evening News", Lines: []string{"Good evening.", "Tonight's top story."}}
	if err := s.Create(ctx, def); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if def.ID == "" {
		t.Fatal("Create should assign an ID")
	}
	if def.CreatedAt.IsZero() || def.UpdatedAt.IsZero() {
		t.Error("Create should set timestamps")
	}

	got, err := s.Get(ctx, def.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Evening News" {
		t.Errorf("Title = %q, want %q", got.Title, "Evening News")
	}
	if len(got.Lines) != 2 {
		t.Fatalf("len(Lines) = %d, want 2", len(got.Lines))
	}
}

func TestMemStore_CreateDuplicateID(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	ctx := context.Background()

	def := &Definition{ID: "s1", Title: "First"}
	if err := s.Create(ctx, def); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create(ctx, &Definition{ID: "s1", Title: "Second"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Create duplicate = %v, want ErrDuplicateID", err)
	}
}

func TestMemStore_CreateInvalid(t *testing.T) {
	t.Parallel()
	s := NewMemStore()

	if err := s.Create(context.Background(), &Definition{Title: "   "}); err == nil {
		t.Error("expected validation error for empty title")
	}
}

func TestMemStore_GetNotFound(t *testing.T) {
	t.Parallel()
	s := NewMemStore()

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestMemStore_Update(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	ctx := context.Background()

	def := &Definition{Title: "Draft"}
	if err := s.Create(ctx, def); err != nil {
		t.Fatalf("Create: %v", err)
	}
	created := def.CreatedAt

	def.Title = "Final"
	def.Lines = []string{"line one"}
	if err := s.Update(ctx, def); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !def.CreatedAt.Equal(created) {
		t.Error("Update must preserve CreatedAt")
	}

	got, err := s.Get(ctx, def.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Final" || len(got.Lines) != 1 {
		t.Errorf("unexpected definition after update: %+v", got)
	}
}

func TestMemStore_UpdateNotFound(t *testing.T) {
	t.Parallel()
	s := NewMemStore()

	err := s.Update(context.Background(), &Definition{ID: "ghost", Title: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update = %v, want ErrNotFound", err)
	}
}

func TestMemStore_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	ctx := context.Background()

	def := &Definition{Title: "Temp"}
	if err := s.Create(ctx, def); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, def.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, def.ID); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := s.Get(ctx, def.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestMemStore_ListSortedByTitle(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	ctx := context.Background()

	for _, title := range []string{"Zulu", "Alpha", "Mike"} {
		if err := s.Create(ctx, &Definition{Title: title}); err != nil {
			t.Fatalf("Create %q: %v", title, err)
		}
	}

	defs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"Alpha", "Mike", "Zulu"}
	if len(defs) != len(want) {
		t.Fatalf("len = %d, want %d", len(defs), len(want))
	}
	for i, title := range want {
		if defs[i].Title != title {
			t.Errorf("defs[%d].Title = %q, want %q", i, defs[i].Title, title)
		}
	}
}

func TestMemStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	ctx := context.Background()

	def := &Definition{Title: "Shared", Lines: []string{"original"}}
	if err := s.Create(ctx, def); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, _ := s.Get(ctx, def.ID)
	got.Lines[0] = "mutated"

	again, _ := s.Get(ctx, def.ID)
	if again.Lines[0] != "original" {
		t.Error("Get must return an independent copy of Lines")
	}
}

// Package scriptstore persists prompter script definitions. A Definition is
// the raw, line-oriented text of a script as authored; tokenization happens in
// the script package when a session loads it.
package scriptstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when no script with the requested ID exists.
var ErrNotFound = errors.New("scriptstore: script not found")

// ErrDuplicateID is returned when creating a script whose ID already exists.
var ErrDuplicateID = errors.New("scriptstore: duplicate script id")

// Definition is a stored prompter script.
type Definition struct {
	// ID uniquely identifies the script. Generated on create when empty.
	ID string `json:"id"`

	// Title is the human-readable script name. Required.
	Title string `json:"title"`

	// Lines holds the script text, one prompter line per element. Lines are
	// stored verbatim; blank lines are allowed and become empty token lists
	// when tokenized.
	Lines []string `json:"lines"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the definition for structural problems.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return errors.New("scriptstore: title must not be empty")
	}
	return nil
}

// Store provides CRUD operations for script definitions.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create inserts a new script. The definition is validated before
	// insertion; an empty ID is filled with a generated one. Returns
	// ErrDuplicateID if a script with the same ID already exists.
	Create(ctx context.Context, def *Definition) error

	// Get retrieves a script by ID. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Definition, error)

	// Update replaces an existing script. The definition is validated before
	// the update. Returns ErrNotFound if the script does not exist.
	Update(ctx context.Context, def *Definition) error

	// Delete removes a script by ID. Deleting a non-existent script is not
	// an error.
	Delete(ctx context.Context, id string) error

	// List returns all scripts ordered by title.
	List(ctx context.Context) ([]Definition, error)
}

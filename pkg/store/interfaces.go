package store

import (
	"context"
	"errors"
	"time"

	"github.com/nstogner/diagrammer/pkg/domain"
)

// Store holds the state of a single diagram session.
// Implementations must be safe for concurrent use: two generations may settle
// at the same time.
type Store interface {
	// AppendUser appends a user message and returns it.
	AppendUser(text string) domain.Message

	// AppendBot appends a successful generation. kind and engine describe the
	// diagram in text and may be empty.
	AppendBot(text string, kind domain.Kind, engine domain.EngineID) domain.Message

	// AppendPlaceholder appends a loading marker and returns its id.
	AppendPlaceholder() string

	// RemovePlaceholder removes the placeholder with the given id. It reports
	// whether one was removed. Messages with other roles are never touched.
	RemovePlaceholder(id string) bool

	// EditUserMessageAndTruncate replaces the text of the user message at
	// index and discards every later message. The current diagram is then
	// recomputed from the last remaining bot message.
	// It fails with domain.ErrInvalidIndex if index is out of range or does
	// not refer to a user message.
	EditUserMessageAndTruncate(index int, text string) error

	// SetCurrentDiagram records the active diagram.
	SetCurrentDiagram(source string, kind domain.Kind, engine domain.EngineID)

	// Clear resets the session to its initial empty state.
	Clear()

	// Export serializes the session in the session file format.
	// Placeholders are not exported.
	Export() ([]byte, error)

	// Import replaces the session with a serialized one. The payload is
	// validated first; on failure it returns domain.ErrInvalidSessionFormat
	// and the session is unchanged.
	Import(data []byte) error

	// Snapshot returns a copy of the session.
	Snapshot() domain.Session

	// UserTexts returns the texts of all user messages in order.
	UserTexts() []string
}

// ErrNotFound is returned by an Archive for unknown names.
var ErrNotFound = errors.New("session not found")

// Archive keeps named session files for later reopening.
type Archive interface {
	// Save stores data under name, replacing any previous entry.
	Save(ctx context.Context, name string, data []byte) error

	// Load returns the data stored under name.
	Load(ctx context.Context, name string) ([]byte, error)

	// List returns the archived entries, most recently updated first.
	List(ctx context.Context) ([]ArchiveEntry, error)

	// Delete removes the entry stored under name.
	Delete(ctx context.Context, name string) error

	Close() error
}

// ArchiveEntry describes one archived session.
type ArchiveEntry struct {
	Name      string    `json:"name"`
	Messages  int       `json:"messages"`
	Kind      string    `json:"kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package storage

import (
	"context"

	"github.com/poiesic/mimesis/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	// The backend itself is closed separately.
	Close() error
}

// PersonaRepository stores persona profiles keyed by exact name.
type PersonaRepository interface {
	Repository

	// GetOrCreatePersona stores persona unless a profile with the same name
	// already exists. The stored profile is returned either way, and created
	// reports whether this call wrote it. Concurrent callers racing on the
	// same name observe a single winner.
	GetOrCreatePersona(ctx context.Context, persona *core.Persona) (stored *core.Persona, created bool, err error)

	// GetPersona retrieves a profile by exact name.
	// Returns ErrNotFound if no profile exists.
	GetPersona(ctx context.Context, name string) (*core.Persona, error)

	// ListPersonas returns every stored profile ordered by name.
	ListPersonas(ctx context.Context) ([]*core.Persona, error)
}

// VectorRepository stores embedded chunks in named collections.
type VectorRepository interface {
	Repository

	// AddEntries appends entries to collection, creating it if absent.
	// Entry IDs are assigned from a sequence and written back to entries.
	// Either every entry is stored or none are.
	AddEntries(ctx context.Context, collection string, entries ...*core.VectorEntry) ([]*core.VectorEntry, error)

	// ReplaceEntries removes every entry in collection and stores entries in
	// its place, creating the collection if absent. Readers observe either
	// the previous contents or the new ones; on error the previous contents
	// are kept.
	ReplaceEntries(ctx context.Context, collection string, entries ...*core.VectorEntry) ([]*core.VectorEntry, error)

	// FindSimilar returns up to limit entries ordered by descending cosine
	// similarity to vector. Returns ErrCollectionNotFound if the collection
	// was never written.
	FindSimilar(ctx context.Context, collection string, vector []float32, limit int) ([]core.RetrievedChunk, error)

	// GetEntries returns up to limit entries with IDs greater than after,
	// in ascending ID order. Pass 0 to start from the beginning.
	GetEntries(ctx context.Context, collection string, after core.ID, limit int) ([]*core.VectorEntry, error)

	// UpdateVectors overwrites the vectors of existing entries.
	// Returns ErrNotFound if any entry doesn't exist.
	UpdateVectors(ctx context.Context, collection string, entries ...*core.VectorEntry) error

	// CountEntries returns the number of entries in collection.
	CountEntries(ctx context.Context, collection string) (int, error)

	// CollectionExists reports whether collection has been created.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// DeleteCollection removes a collection and all of its entries.
	DeleteCollection(ctx context.Context, collection string) error
}

// SessionRepository stores conversations and their ordered messages.
type SessionRepository interface {
	Repository

	// CreateSession stores a new session with an ID from the sequence.
	// CreatedAt and UpdatedAt are set by the repository.
	CreateSession(ctx context.Context, session *core.Session) (*core.Session, error)

	// GetSession retrieves a session by ID.
	// Returns ErrNotFound if the session doesn't exist.
	GetSession(ctx context.Context, id core.ID) (*core.Session, error)

	// AppendMessages appends messages to the session in one transaction,
	// preserving argument order. Zero timestamps are set to now.
	// Returns ErrNotFound if the session doesn't exist.
	AppendMessages(ctx context.Context, sessionID core.ID, messages ...*core.Message) error

	// GetMessages returns all messages of a session in insertion order.
	// Returns ErrNotFound if the session doesn't exist.
	GetMessages(ctx context.Context, sessionID core.ID) ([]*core.Message, error)
}

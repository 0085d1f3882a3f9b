package badger

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/storage"
)

// maxConflictRetries bounds how often a create is retried after a
// transaction conflict.
const maxConflictRetries = 5

// PersonaRepository implements storage.PersonaRepository for BadgerDB.
type PersonaRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.PersonaRepository = (*PersonaRepository)(nil)

// NewPersonaRepository creates a new PersonaRepository.
func NewPersonaRepository(backend *Backend) *PersonaRepository {
	return &PersonaRepository{
		backend: backend,
		logger:  slog.Default().With("component", "persona-repository"),
	}
}

// Close is a no-op; the backend is closed by its owner.
func (r *PersonaRepository) Close() error {
	return nil
}

// GetOrCreatePersona writes persona if no profile with its name exists.
// The read and the write share one transaction, so a concurrent create of the
// same name makes one of the commits fail with a conflict. The loser retries,
// finds the winner's profile and returns it unchanged.
func (r *PersonaRepository) GetOrCreatePersona(ctx context.Context, persona *core.Persona) (*core.Persona, bool, error) {
	if persona == nil {
		return nil, false, core.ErrInvalidPersonaName
	}
	if err := core.ValidatePersonaName(persona.Name); err != nil {
		return nil, false, err
	}

	key := makePersonaKey(persona.Name)

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		var stored *core.Persona
		created := false

		err := r.backend.WithTx(func(tx *badger.Txn) error {
			existing, err := readPersona(tx, key)
			if err == nil {
				stored = existing
				return nil
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}

			fresh := *persona
			fresh.ID = core.PersonaIDFromName(persona.Name)
			if fresh.CreatedAt.IsZero() {
				fresh.CreatedAt = time.Now().UTC()
			}
			value := storage.MarshalPersona(&fresh)
			if err := tx.Set(key, value); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}
			stored = &fresh
			created = true
			return nil
		}, true)

		if errors.Is(err, badger.ErrConflict) {
			r.logger.Debug("persona create conflicted, retrying", "name", persona.Name, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return stored, created, nil
	}

	return nil, false, storage.ErrTransactionFailed
}

// GetPersona retrieves a profile by exact name.
func (r *PersonaRepository) GetPersona(ctx context.Context, name string) (*core.Persona, error) {
	var persona *core.Persona
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		persona, err = readPersona(tx, makePersonaKey(name))
		return err
	}, false)
	return persona, err
}

// ListPersonas returns every stored profile ordered by name.
func (r *PersonaRepository) ListPersonas(ctx context.Context) ([]*core.Persona, error) {
	var personas []*core.Persona
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(personaPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				p, err := storage.UnmarshalPersona(val)
				if err != nil {
					return err
				}
				personas = append(personas, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(personas, func(a, b *core.Persona) int {
		return strings.Compare(a.Name, b.Name)
	})
	return personas, nil
}

func readPersona(tx *badger.Txn, key []byte) (*core.Persona, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var persona *core.Persona
	err = item.Value(func(val []byte) error {
		persona, err = storage.UnmarshalPersona(val)
		return err
	})
	return persona, err
}

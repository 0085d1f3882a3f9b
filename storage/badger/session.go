package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/storage"
)

// SessionRepository implements storage.SessionRepository for BadgerDB.
// Messages are keyed by session ID then by a global sequence, so a prefix
// scan returns them in insertion order.
type SessionRepository struct {
	backend  *Backend
	idSeq    *badger.Sequence
	msgIDSeq *badger.Sequence
}

var _ storage.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(backend *Backend) (*SessionRepository, error) {
	idSeq, err := backend.GetSequence(sessionIDSeq)
	if err != nil {
		return nil, err
	}
	msgIDSeq, err := backend.GetSequence(messageIDSeq)
	if err != nil {
		idSeq.Release()
		return nil, err
	}

	return &SessionRepository{
		backend:  backend,
		idSeq:    idSeq,
		msgIDSeq: msgIDSeq,
	}, nil
}

// Close releases the ID sequences.
func (r *SessionRepository) Close() error {
	return errors.Join(r.idSeq.Release(), r.msgIDSeq.Release())
}

// CreateSession stores a new session.
func (r *SessionRepository) CreateSession(ctx context.Context, session *core.Session) (*core.Session, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		session.ID = id
		session.CreatedAt = time.Now().UTC()
		session.UpdatedAt = session.CreatedAt

		value := storage.MarshalSession(session)
		if err := tx.Set(makeSessionKey(session.ID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id core.ID) (*core.Session, error) {
	var session *core.Session
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		session, err = readSession(tx, id)
		return err
	}, false)
	return session, err
}

// AppendMessages appends messages to a session in one transaction.
func (r *SessionRepository) AppendMessages(ctx context.Context, sessionID core.ID, messages ...*core.Message) error {
	for _, msg := range messages {
		if err := core.ValidateMessage(msg); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		session, err := readSession(tx, sessionID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, msg := range messages {
			if msg.Timestamp.IsZero() {
				msg.Timestamp = now
			}
			id, err := nextID(r.msgIDSeq)
			if err != nil {
				return err
			}
			value := storage.MarshalMessage(msg)
			if err := tx.Set(makeMessageKey(sessionID, id), value); err != nil {
				return err
			}
		}

		session.UpdatedAt = now
		value := storage.MarshalSession(session)
		if err := tx.Set(makeSessionKey(sessionID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetMessages returns all messages of a session in insertion order.
func (r *SessionRepository) GetMessages(ctx context.Context, sessionID core.ID) ([]*core.Message, error) {
	var messages []*core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := readSession(tx, sessionID); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMessagePrefix(sessionID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				msg, err := storage.UnmarshalMessage(val)
				if err != nil {
					return err
				}
				messages = append(messages, msg)
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
	return messages, nil
}

func readSession(tx *badger.Txn, id core.ID) (*core.Session, error) {
	item, err := tx.Get(makeSessionKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var session *core.Session
	err = item.Value(func(val []byte) error {
		session, err = storage.UnmarshalSession(val)
		return err
	})
	return session, err
}

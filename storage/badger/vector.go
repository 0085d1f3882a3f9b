package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/storage"
)

// VectorRepository implements storage.VectorRepository for BadgerDB.
// Similarity search is a brute-force scan of one collection.
//
// Entries live under the generation recorded in the collection's metadata.
// Bulk writes go through a WriteBatch, so a batch may span many badger
// transactions. A replacement is written under a fresh generation and only
// becomes visible when the metadata is switched to it.
type VectorRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	genSeq  *badger.Sequence
	logger  *slog.Logger
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// updateChunkSize bounds how many entries UpdateVectors rewrites per transaction.
const updateChunkSize = 256

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) (*VectorRepository, error) {
	idSeq, err := backend.GetSequence(vectorIDSeq)
	if err != nil {
		return nil, err
	}
	genSeq, err := backend.GetSequence(vectorGenSeq)
	if err != nil {
		_ = idSeq.Release()
		return nil, err
	}

	return &VectorRepository{
		backend: backend,
		idSeq:   idSeq,
		genSeq:  genSeq,
		logger:  slog.Default().With("component", "vector-repository"),
	}, nil
}

// Close releases the ID and generation sequences.
func (r *VectorRepository) Close() error {
	return errors.Join(r.idSeq.Release(), r.genSeq.Release())
}

// AddEntries appends entries to collection, creating it if absent. If any
// write fails the entries already written are removed again.
func (r *VectorRepository) AddEntries(ctx context.Context, collection string, entries ...*core.VectorEntry) ([]*core.VectorEntry, error) {
	if collection == "" {
		return nil, storage.ErrInvalidCollection
	}

	var (
		meta    *storage.CollectionMeta
		created bool
	)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		meta, created, err = r.ensureCollection(tx, collection, entries)
		if err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	if created {
		r.logger.Info("created collection", "collection", collection, "dimension", meta.Dimension)
	}

	keys, err := r.writeEntries(collection, meta.Generation, entries)
	if err != nil {
		r.rollbackAdd(collection, keys, created)
		return nil, err
	}

	r.logger.Debug("added entries", "collection", collection, "count", len(entries))
	return entries, nil
}

// ReplaceEntries swaps the contents of collection for entries. Readers see
// either the old entries or the new ones, never a mix.
func (r *VectorRepository) ReplaceEntries(ctx context.Context, collection string, entries ...*core.VectorEntry) ([]*core.VectorEntry, error) {
	if collection == "" {
		return nil, storage.ErrInvalidCollection
	}

	// The old dimension no longer constrains the new entries.
	dimension := 0
	if len(entries) > 0 {
		dimension = len(entries[0].Vector)
	}
	if err := checkDimension(collection, dimension, entries); err != nil {
		return nil, err
	}

	var previous *storage.CollectionMeta
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		meta, err := readCollectionMeta(tx, collection)
		if errors.Is(err, storage.ErrCollectionNotFound) {
			return nil
		}
		previous = meta
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	gen, err := r.genSeq.Next()
	if err != nil {
		return nil, err
	}
	gen++
	if _, err := r.writeEntries(collection, gen, entries); err != nil {
		r.dropGeneration(collection, gen)
		return nil, err
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		current, err := readCollectionMeta(tx, collection)
		switch {
		case errors.Is(err, storage.ErrCollectionNotFound):
			if previous != nil {
				return fmt.Errorf("%w: collection %q removed during replace", storage.ErrTransactionFailed, collection)
			}
		case err != nil:
			return err
		case previous == nil || current.Generation != previous.Generation:
			return fmt.Errorf("%w: collection %q changed during replace", storage.ErrTransactionFailed, collection)
		}

		next := &storage.CollectionMeta{
			Name:       collection,
			Dimension:  dimension,
			Generation: gen,
			CreatedAt:  time.Now().UTC(),
		}
		if previous != nil {
			next.CreatedAt = previous.CreatedAt
		}
		if err := writeCollectionMeta(tx, next); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		r.dropGeneration(collection, gen)
		if errors.Is(err, badger.ErrConflict) {
			return nil, fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
		}
		return nil, err
	}

	if previous != nil {
		r.dropGeneration(collection, previous.Generation)
	}
	r.logger.Debug("replaced entries", "collection", collection, "generation", gen, "added", len(entries))
	return entries, nil
}

// FindSimilar returns up to limit entries ordered by descending cosine similarity.
// Ties are broken by ascending entry ID so results are deterministic.
func (r *VectorRepository) FindSimilar(ctx context.Context, collection string, vector []float32, limit int) ([]core.RetrievedChunk, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var results []core.RetrievedChunk

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		meta, err := readCollectionMeta(tx, collection)
		if err != nil {
			return err
		}
		if meta.Dimension != 0 && len(vector) != meta.Dimension {
			return fmt.Errorf("%w: query has %d dimensions, collection %q has %d",
				storage.ErrDimensionMismatch, len(vector), collection, meta.Dimension)
		}

		return scanEntries(tx, meta, 0, func(entry *core.VectorEntry) (bool, error) {
			if len(entry.Vector) == 0 {
				return true, nil
			}
			results = append(results, core.RetrievedChunk{
				EntryID:  entry.ID,
				SourceID: entry.SourceID,
				Text:     entry.Text,
				Score:    cosineSimilarity(vector, entry.Vector),
			})
			return true, nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b core.RetrievedChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.EntryID < b.EntryID {
			return -1
		}
		if a.EntryID > b.EntryID {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetEntries returns up to limit entries with IDs greater than after.
func (r *VectorRepository) GetEntries(ctx context.Context, collection string, after core.ID, limit int) ([]*core.VectorEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var entries []*core.VectorEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		meta, err := readCollectionMeta(tx, collection)
		if errors.Is(err, storage.ErrCollectionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return scanEntries(tx, meta, after+1, func(entry *core.VectorEntry) (bool, error) {
			entries = append(entries, entry)
			return len(entries) < limit, nil
		})
	}, false)
	return entries, err
}

// UpdateVectors overwrites the vectors of existing entries. The collection's
// recorded dimension follows the new vectors.
func (r *VectorRepository) UpdateVectors(ctx context.Context, collection string, entries ...*core.VectorEntry) error {
	for chunk := range slices.Chunk(entries, updateChunkSize) {
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			meta, err := readCollectionMeta(tx, collection)
			if err != nil {
				return err
			}

			for _, entry := range chunk {
				key := makeVectorKey(collection, meta.Generation, entry.ID)
				existing, err := readEntry(tx, key)
				if err != nil {
					return err
				}
				existing.Vector = entry.Vector
				if err := tx.Set(key, storage.MarshalVectorEntry(existing)); err != nil {
					return err
				}
				meta.Dimension = len(entry.Vector)
			}

			if err := writeCollectionMeta(tx, meta); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return err
		}
	}
	return nil
}

// CountEntries returns the number of entries in collection.
func (r *VectorRepository) CountEntries(ctx context.Context, collection string) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		meta, err := readCollectionMeta(tx, collection)
		if errors.Is(err, storage.ErrCollectionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeGenerationPrefix(collection, meta.Generation)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// CollectionExists reports whether collection has been created.
func (r *VectorRepository) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := readCollectionMeta(tx, collection)
		if errors.Is(err, storage.ErrCollectionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	}, false)
	return exists, err
}

// DeleteCollection removes a collection and every generation of its entries.
func (r *VectorRepository) DeleteCollection(ctx context.Context, collection string) error {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCollectionKey(collection)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}
	return r.backend.DropPrefix(makeVectorPrefix(collection))
}

// ensureCollection creates the collection record on first write and checks
// that every entry matches its dimension. It reports whether the record was
// created by this call.
func (r *VectorRepository) ensureCollection(tx *badger.Txn, collection string, entries []*core.VectorEntry) (*storage.CollectionMeta, bool, error) {
	created := false
	meta, err := readCollectionMeta(tx, collection)
	if errors.Is(err, storage.ErrCollectionNotFound) {
		gen, err := r.genSeq.Next()
		if err != nil {
			return nil, false, err
		}
		meta = &storage.CollectionMeta{Name: collection, Generation: gen + 1, CreatedAt: time.Now().UTC()}
		created = true
	} else if err != nil {
		return nil, false, err
	}

	if meta.Dimension == 0 && len(entries) > 0 {
		meta.Dimension = len(entries[0].Vector)
		if err := checkDimension(collection, meta.Dimension, entries); err != nil {
			return nil, false, err
		}
		if err := writeCollectionMeta(tx, meta); err != nil {
			return nil, false, err
		}
		return meta, created, nil
	}

	if err := checkDimension(collection, meta.Dimension, entries); err != nil {
		return nil, false, err
	}
	if created {
		if err := writeCollectionMeta(tx, meta); err != nil {
			return nil, false, err
		}
	}
	return meta, created, nil
}

func checkDimension(collection string, dimension int, entries []*core.VectorEntry) error {
	if dimension == 0 {
		return nil
	}
	for _, entry := range entries {
		if len(entry.Vector) != dimension {
			return fmt.Errorf("%w: entry has %d dimensions, collection %q has %d",
				storage.ErrDimensionMismatch, len(entry.Vector), collection, dimension)
		}
	}
	return nil
}

// writeEntries assigns IDs and stores entries under gen. It returns the keys
// handed to the batch so a failed write can be undone.
func (r *VectorRepository) writeEntries(collection string, gen uint64, entries []*core.VectorEntry) ([][]byte, error) {
	wb := r.backend.NewWriteBatch()
	defer wb.Cancel()

	keys := make([][]byte, 0, len(entries))
	for _, entry := range entries {
		id, err := nextID(r.idSeq)
		if err != nil {
			return keys, err
		}
		entry.ID = id

		key := makeVectorKey(collection, gen, entry.ID)
		keys = append(keys, key)
		if err := wb.Set(key, storage.MarshalVectorEntry(entry)); err != nil {
			return keys, err
		}
	}
	return keys, wb.Flush()
}

func (r *VectorRepository) rollbackAdd(collection string, keys [][]byte, created bool) {
	wb := r.backend.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			r.logger.Error("rolling back entries", "collection", collection, "err", err)
			return
		}
	}
	if created {
		if err := wb.Delete(makeCollectionKey(collection)); err != nil {
			r.logger.Error("rolling back collection", "collection", collection, "err", err)
			return
		}
	}
	if err := wb.Flush(); err != nil {
		r.logger.Error("rolling back entries", "collection", collection, "err", err)
	}
}

func (r *VectorRepository) dropGeneration(collection string, gen uint64) {
	if err := r.backend.DropPrefix(makeGenerationPrefix(collection, gen)); err != nil {
		r.logger.Warn("dropping generation", "collection", collection, "generation", gen, "err", err)
	}
}

// scanEntries walks the current generation of a collection in ascending ID
// order starting at from, calling fn until it returns false or an error.
func scanEntries(tx *badger.Txn, meta *storage.CollectionMeta, from core.ID, fn func(*core.VectorEntry) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeGenerationPrefix(meta.Name, meta.Generation)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Seek(makeVectorKey(meta.Name, meta.Generation, from)); iter.Valid(); iter.Next() {
		var entry *core.VectorEntry
		err := iter.Item().Value(func(val []byte) error {
			var err error
			entry, err = storage.UnmarshalVectorEntry(val)
			return err
		})
		if err != nil {
			return err
		}
		more, err := fn(entry)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

func readEntry(tx *badger.Txn, key []byte) (*core.VectorEntry, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var entry *core.VectorEntry
	err = item.Value(func(val []byte) error {
		entry, err = storage.UnmarshalVectorEntry(val)
		return err
	})
	return entry, err
}

func readCollectionMeta(tx *badger.Txn, collection string) (*storage.CollectionMeta, error) {
	item, err := tx.Get(makeCollectionKey(collection))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, collection)
	}
	if err != nil {
		return nil, err
	}
	var meta *storage.CollectionMeta
	err = item.Value(func(val []byte) error {
		meta, err = storage.UnmarshalCollectionMeta(val)
		return err
	})
	return meta, err
}

func writeCollectionMeta(tx *badger.Txn, meta *storage.CollectionMeta) error {
	return tx.Set(makeCollectionKey(meta.Name), storage.MarshalCollectionMeta(meta))
}

package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/storage"
)

// SourceRepository implements storage.SourceRepository for BadgerDB.
type SourceRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.SourceRepository = (*SourceRepository)(nil)

// NewSourceRepository creates a new SourceRepository.
func NewSourceRepository(backend *Backend) (*SourceRepository, error) {
	idSeq, err := backend.GetSequence(sourceIDSeq)
	if err != nil {
		return nil, err
	}

	return &SourceRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *SourceRepository) Close() error {
	return r.idSeq.Release()
}

// AddSource persists a new source with a sequence-generated ID.
func (r *SourceRepository) AddSource(ctx context.Context, source *core.Source) (*core.Source, error) {
	if err := core.ValidateSource(source); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		source.Id = core.ID(nextID)

		source.InsertedAt = time.Now().UTC()
		source.UpdatedAt = source.InsertedAt

		key := makeSourceKey(source.Id)
		if err := tx.Set(key, storage.MarshalSource(source)); err != nil {
			return err
		}

		agentKey := makeSourceAgentKey(source.TenantId, source.AgentId, source.Id)
		if err := tx.Set(agentKey, storage.MarshalID(source.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return source, err
}

// GetSource retrieves a source by ID. Tombstoned sources are returned
// as-is; callers check Deleted().
func (r *SourceRepository) GetSource(ctx context.Context, id core.ID) (*core.Source, error) {
	var result *core.Source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readSource(tx, makeSourceKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// UpdateSource replaces an existing source record.
func (r *SourceRepository) UpdateSource(ctx context.Context, source *core.Source) (*core.Source, error) {
	if err := core.ValidateSource(source); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSourceKey(source.Id)

		old, err := readSource(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		if old.Deleted() {
			return storage.ErrSourceDeleted
		}

		source.InsertedAt = old.InsertedAt
		source.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalSource(source)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return source, err
}

// UpdateSourceStatus transitions a source's lifecycle status. chunkCount
// is recorded for ready sources; errorMessage is recorded verbatim for
// errored sources. Moving out of the error state clears the message.
func (r *SourceRepository) UpdateSourceStatus(ctx context.Context, id core.ID, status core.SourceStatus, chunkCount int, errorMessage string) (*core.Source, error) {
	var result *core.Source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSourceKey(id)

		source, err := readSource(tx, key)
		if err != nil {
			return err
		}
		if source == nil {
			return storage.ErrNotFound
		}
		if source.Deleted() {
			return storage.ErrSourceDeleted
		}

		source.Status = status
		source.UpdatedAt = time.Now().UTC()
		switch status {
		case core.SourceStatusReady:
			source.ChunkCount = chunkCount
			source.ErrorMessage = ""
		case core.SourceStatusError:
			source.ErrorMessage = errorMessage
		default:
			source.ErrorMessage = ""
		}

		if err := tx.Set(key, storage.MarshalSource(source)); err != nil {
			return err
		}
		result = source
		return tx.Commit()
	}, true)
	return result, err
}

// ListSourcesByAgent returns the live sources owned by an agent, in
// insertion order.
func (r *SourceRepository) ListSourcesByAgent(ctx context.Context, tenantID, agentID core.ID) ([]*core.Source, error) {
	var results []*core.Source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSourceAgentPrefix(tenantID, agentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var sourceID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				sourceID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			source, err := readSource(tx, makeSourceKey(sourceID))
			if err != nil {
				return err
			}
			if source != nil && !source.Deleted() {
				results = append(results, source)
			}
		}
		return nil
	}, false)
	return results, err
}

// DeleteSource tombstones a source, drops it from the agent index and
// removes its chunks in the same transaction, so deleted knowledge can
// never surface in similarity search. The primary record is kept so job
// history and citations still resolve.
func (r *SourceRepository) DeleteSource(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSourceKey(id)

		source, err := readSource(tx, key)
		if err != nil {
			return err
		}
		if source == nil {
			return storage.ErrNotFound
		}
		if source.Deleted() {
			// Already tombstoned, nothing to do
			return nil
		}

		source.DeletedAt = time.Now().UTC()
		source.UpdatedAt = source.DeletedAt

		if err := tx.Set(key, storage.MarshalSource(source)); err != nil {
			return err
		}

		agentKey := makeSourceAgentKey(source.TenantId, source.AgentId, source.Id)
		if err := tx.Delete(agentKey); err != nil {
			return err
		}

		if err := deleteChunksBySourceTx(tx, source.TenantId, source.AgentId, source.Id); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readSource reads a source from the transaction.
func readSource(tx *badger.Txn, key []byte) (*core.Source, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var source *core.Source
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		source, unmarshalErr = storage.UnmarshalSource(val)
		return unmarshalErr
	})
	return source, err
}

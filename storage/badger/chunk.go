package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend    *Backend
	dimensions int // 0 disables the dimensionality check
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository. dimensions is the
// expected vector length of stored chunks; pass 0 to skip the check.
func NewChunkRepository(backend *Backend, dimensions int) (*ChunkRepository, error) {
	return &ChunkRepository{
		backend:    backend,
		dimensions: dimensions,
	}, nil
}

// Close releases resources. ChunkRepository has no resources to release.
func (r *ChunkRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *ChunkRepository) FindSimilar(ctx context.Context, tenantID, agentID core.ID, vector []float32, k int) ([]core.SimilarityMatch, error) {
	return r.backend.FindSimilar(ctx, tenantID, agentID, vector, k)
}

// UpsertChunks inserts or replaces chunks. Identity is derived from
// (source id, ordinal), so re-running the same batch overwrites the same
// keys instead of duplicating. The whole batch is one transaction.
func (r *ChunkRepository) UpsertChunks(ctx context.Context, chunks ...*core.Chunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		// Embedding model per source within this batch
		batchModels := make(map[core.ID]string)

		for _, chunk := range chunks {
			if err := core.ValidateChunk(chunk); err != nil {
				return err
			}
			if r.dimensions > 0 && len(chunk.Vector) != r.dimensions {
				return fmt.Errorf("%w: got %d dimensions, want %d",
					storage.ErrDimensionMismatch, len(chunk.Vector), r.dimensions)
			}

			// A source's chunks must all come from one embedding model,
			// both within the batch and against what is already stored.
			if model, seen := batchModels[chunk.SourceId]; seen {
				if model != chunk.EmbeddingModel {
					return fmt.Errorf("%w: %q and %q within source %d",
						storage.ErrModelMismatch, model, chunk.EmbeddingModel, chunk.SourceId)
				}
			} else {
				stored, err := r.storedModel(tx, chunk.TenantId, chunk.AgentId, chunk.SourceId)
				if err != nil {
					return err
				}
				if stored != "" && stored != chunk.EmbeddingModel {
					return fmt.Errorf("%w: stored %q, got %q for source %d",
						storage.ErrModelMismatch, stored, chunk.EmbeddingModel, chunk.SourceId)
				}
				batchModels[chunk.SourceId] = chunk.EmbeddingModel
			}

			chunk.Id = core.ChunkIdentity(chunk.SourceId, chunk.Ordinal)
			if chunk.InsertedAt.IsZero() {
				chunk.InsertedAt = time.Now().UTC()
			}

			// Primary record
			key := makeChunkKey(chunk.Id)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}

			// Scope index entry
			scopeKey := makeChunkScopeKey(chunk.TenantId, chunk.AgentId, chunk.SourceId, chunk.Ordinal)
			if err := tx.Set(scopeKey, storage.MarshalID(chunk.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readChunk(tx, makeChunkKey(id))
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

// GetChunks retrieves multiple chunks by their IDs, in the order
// requested. Missing IDs are skipped without error.
func (r *ChunkRepository) GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error) {
	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := readChunk(tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				result = append(result, chunk)
			}
		}
		return nil
	}, false)
	return result, err
}

// DeleteChunksBySource removes all chunks belonging to a source, both
// the primary records and the scope index entries.
func (r *ChunkRepository) DeleteChunksBySource(ctx context.Context, tenantID, agentID, sourceID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteChunksBySourceTx(tx, tenantID, agentID, sourceID); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// deleteChunksBySourceTx removes a source's chunks inside an open
// transaction. Shared with SourceRepository.DeleteSource, which drops a
// source's chunks in the same transaction as the tombstone.
func deleteChunksBySourceTx(tx *badger.Txn, tenantID, agentID, sourceID core.ID) error {
	// Collect first: deleting under an open iterator is undefined.
	var scopeKeys [][]byte
	var chunkIDs []core.ID

	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeChunkSourcePrefix(tenantID, agentID, sourceID)
	iter := tx.NewIterator(opts)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		scopeKeys = append(scopeKeys, iter.Item().KeyCopy(nil))
		var chunkID core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			chunkID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			iter.Close()
			return err
		}
		chunkIDs = append(chunkIDs, chunkID)
	}
	iter.Close()

	for _, key := range scopeKeys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	for _, id := range chunkIDs {
		if err := tx.Delete(makeChunkKey(id)); err != nil {
			return err
		}
	}
	return nil
}

// ListChunksBySource returns all chunks belonging to a source. The scope
// index key embeds the ordinal, so prefix iteration yields ordinal order.
func (r *ChunkRepository) ListChunksBySource(ctx context.Context, tenantID, agentID, sourceID core.ID) ([]*core.Chunk, error) {
	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkSourcePrefix(tenantID, agentID, sourceID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunkID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}
			chunk, err := readChunk(tx, makeChunkKey(chunkID))
			if err != nil {
				return err
			}
			if chunk != nil {
				result = append(result, chunk)
			}
		}
		return nil
	}, false)
	return result, err
}

// CountChunksBySource returns the number of chunks stored for a source.
func (r *ChunkRepository) CountChunksBySource(ctx context.Context, tenantID, agentID, sourceID core.ID) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkSourcePrefix(tenantID, agentID, sourceID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Helper methods

// storedModel returns the embedding model of the source's first stored
// chunk, or "" when the source has no chunks yet.
func (r *ChunkRepository) storedModel(tx *badger.Txn, tenantID, agentID, sourceID core.ID) (string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeChunkSourcePrefix(tenantID, agentID, sourceID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	iter.Rewind()
	if !iter.Valid() {
		return "", nil
	}

	var chunkID core.ID
	if err := iter.Item().Value(func(val []byte) error {
		var err error
		chunkID, err = storage.UnmarshalID(val)
		return err
	}); err != nil {
		return "", err
	}

	chunk, err := readChunk(tx, makeChunkKey(chunkID))
	if err != nil {
		return "", err
	}
	if chunk == nil {
		return "", nil
	}
	return chunk.EmbeddingModel, nil
}

// readChunk reads a chunk from the transaction.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		chunk, unmarshalErr = storage.UnmarshalChunk(val)
		return unmarshalErr
	})
	return chunk, err
}

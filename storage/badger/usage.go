package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/storage"
)

// UsageRepository implements storage.UsageRepository for BadgerDB.
type UsageRepository struct {
	backend *Backend
}

var _ storage.UsageRepository = (*UsageRepository)(nil)

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(backend *Backend) (*UsageRepository, error) {
	return &UsageRepository{
		backend: backend,
	}, nil
}

// Close releases resources. UsageRepository has no resources to release.
func (r *UsageRepository) Close() error {
	return nil
}

// RecordUsage persists a usage event keyed by message ID. The existence
// check and the insert share one transaction, so a retried finalization
// observes the first write and records nothing.
func (r *UsageRepository) RecordUsage(ctx context.Context, event *core.UsageEvent) (bool, error) {
	recorded := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeUsageKey(event.MessageId)

		_, err := tx.Get(key)
		if err == nil {
			// Already recorded for this message
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		if event.RecordedAt.IsZero() {
			event.RecordedAt = time.Now().UTC()
		}

		if err := tx.Set(key, storage.MarshalUsageEvent(event)); err != nil {
			return err
		}
		recorded = true
		return tx.Commit()
	}, true)
	return recorded, err
}

// GetUsage retrieves the usage event for a message.
func (r *UsageRepository) GetUsage(ctx context.Context, messageID core.ID) (*core.UsageEvent, error) {
	var result *core.UsageEvent
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeUsageKey(messageID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalUsageEvent(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

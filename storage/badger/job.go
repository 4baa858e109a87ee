package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
type JobRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) (*JobRepository, error) {
	idSeq, err := backend.GetSequence(jobIDSeq)
	if err != nil {
		return nil, err
	}

	return &JobRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *JobRepository) Close() error {
	return r.idSeq.Release()
}

// CreateJob persists a new job unless one already exists for the job's
// idempotency key. The key lookup and the insert happen inside one
// transaction, so two racing creates cannot both insert.
func (r *JobRepository) CreateJob(ctx context.Context, job *core.Job) (*core.Job, bool, error) {
	if err := core.ValidateJob(job); err != nil {
		return nil, false, err
	}

	var stored *core.Job
	alreadyExists := false

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		idemKey := makeJobIdemKey(job.IdempotencyKey)

		// Existing job for this key wins; nothing is written.
		existingID, err := readJobID(tx, idemKey)
		if err != nil {
			return err
		}
		if existingID != nil {
			existing, err := readJob(tx, makeJobKey(*existingID))
			if err != nil {
				return err
			}
			if existing == nil {
				return storage.ErrNotFound
			}
			stored = existing
			alreadyExists = true
			return nil
		}

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
		job.Id = core.ID(nextID)

		if job.ScheduledAt.IsZero() {
			job.ScheduledAt = time.Now().UTC()
		}

		if err := tx.Set(makeJobKey(job.Id), storage.MarshalJob(job)); err != nil {
			return err
		}
		if err := tx.Set(idemKey, storage.MarshalID(job.Id)); err != nil {
			return err
		}

		stored = job
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, false, err
	}
	return stored, alreadyExists, nil
}

// GetJob retrieves a job by ID.
func (r *JobRepository) GetJob(ctx context.Context, id core.ID) (*core.Job, error) {
	var result *core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readJob(tx, makeJobKey(id))
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

// GetJobByIdempotencyKey retrieves a job by its idempotency key.
func (r *JobRepository) GetJobByIdempotencyKey(ctx context.Context, key string) (*core.Job, error) {
	var result *core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		jobID, err := readJobID(tx, makeJobIdemKey(key))
		if err != nil {
			return err
		}
		if jobID == nil {
			return storage.ErrNotFound
		}

		result, err = readJob(tx, makeJobKey(*jobID))
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

// UpdateJob replaces an existing job record.
func (r *JobRepository) UpdateJob(ctx context.Context, job *core.Job) (*core.Job, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(job.Id)

		old, err := readJob(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		if err := tx.Set(key, storage.MarshalJob(job)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	return job, err
}

// ListJobsByStatus returns jobs currently in the given status.
func (r *JobRepository) ListJobsByStatus(ctx context.Context, status core.JobStatus) ([]*core.Job, error) {
	var results []*core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var job *core.Job
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				job, err = storage.UnmarshalJob(val)
				return err
			}); err != nil {
				return err
			}
			if job != nil && job.Status == status {
				results = append(results, job)
			}
		}
		return nil
	}, false)
	return results, err
}

// Helper methods

// readJob reads a job from the transaction.
func readJob(tx *badger.Txn, key []byte) (*core.Job, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var job *core.Job
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		job, unmarshalErr = storage.UnmarshalJob(val)
		return unmarshalErr
	})
	return job, err
}

// readJobID reads a job ID from an index entry, nil when absent.
func readJobID(tx *badger.Txn, key []byte) (*core.ID, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var id core.ID
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		id, unmarshalErr = storage.UnmarshalID(val)
		return unmarshalErr
	})
	if err != nil {
		return nil, err
	}
	return &id, nil
}

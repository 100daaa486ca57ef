package badger

import (
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new job repository on backend.
func NewJobRepository(backend *Backend) (storage.JobRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	return &JobRepository{backend: backend}, nil
}

// SaveJob stores a snapshot of job.
func (r *JobRepository) SaveJob(ctx context.Context, job *core.ImportJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	return r.backend.update(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeJobKey(job.ID), storage.MarshalJob(job))
	})
}

// LoadJob returns the stored snapshot of jobID.
func (r *JobRepository) LoadJob(ctx context.Context, jobID string) (*core.ImportJob, error) {
	var job *core.ImportJob
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		return getValue(tx, makeJobKey(jobID), func(val []byte) error {
			var err error
			job, err = storage.UnmarshalJob(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns all stored jobs ordered by creation time, newest first.
func (r *JobRepository) ListJobs(ctx context.Context) ([]*core.ImportJob, error) {
	var jobs []*core.ImportJob
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				job, err := storage.UnmarshalJob(val)
				if err != nil {
					return err
				}
				jobs = append(jobs, job)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(jobs, func(a, b *core.ImportJob) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return jobs, nil
}

// Copyright 2026 Tessara Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/storage"
)

// CreateParams carries the fields of a new ingestion job. The
// idempotency key is passed separately because it, not these fields,
// decides whether a job already exists.
type CreateParams struct {
	TenantId core.ID
	AgentId  core.ID
	SourceId core.ID
	Kind     core.SourceKind
}

// FailResult reports the outcome of recording a job failure so the
// caller can decide whether to reschedule. The controller itself never
// sleeps or retries.
type FailResult struct {
	CanRetry     bool
	AttemptCount int
	MaxAttempts  int
}

// Controller is the durable state machine for ingestion jobs:
// pending -> processing -> {completed | pending(retry) | failed}.
// completed and failed are terminal; mutating a terminal job returns
// ErrJobTerminal. All transitions persist through the JobRepository.
type Controller struct {
	jobs   storage.JobRepository
	logger *slog.Logger
}

// NewController creates a job controller. A nil logger falls back to
// slog.Default().
func NewController(jobs storage.JobRepository, logger *slog.Logger) (*Controller, error) {
	if jobs == nil {
		return nil, ErrJobRepositoryRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		jobs:   jobs,
		logger: logger.With("component", "ingestion.controller"),
	}, nil
}

// Create registers a new pending job for the given idempotency key.
// If a job with the same key already exists, the existing job is
// returned unchanged with alreadyExists true; creation is safe to call
// repeatedly for the same logical ingestion request.
func (c *Controller) Create(ctx context.Context, idempotencyKey string, params CreateParams) (*core.Job, bool, error) {
	job := &core.Job{
		TenantId:       params.TenantId,
		AgentId:        params.AgentId,
		SourceId:       params.SourceId,
		Kind:           params.Kind,
		Status:         core.JobStatusPending,
		MaxAttempts:    core.DefaultMaxAttempts,
		StepCursor:     -1,
		ScheduledAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}

	stored, alreadyExists, err := c.jobs.CreateJob(ctx, job)
	if err != nil {
		return nil, false, err
	}

	if alreadyExists {
		c.logger.Debug("job creation deduplicated", "job", stored.Id, "key", idempotencyKey)
	} else {
		c.logger.Info("job created", "job", stored.Id, "kind", stored.Kind, "key", idempotencyKey)
	}

	return stored, alreadyExists, nil
}

// Start transitions a job from pending to processing: increments the
// attempt count, records the start time and a heartbeat, and resets
// progress to 0. Returns storage.ErrNotFound if the job does not exist
// and ErrJobTerminal if it has already finished.
func (c *Controller) Start(ctx context.Context, jobID core.ID) (*core.Job, error) {
	job, err := c.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, ErrJobTerminal
	}

	now := time.Now().UTC()
	job.Status = core.JobStatusProcessing
	job.AttemptCount++
	job.Progress = 0
	job.StartedAt = now
	job.HeartbeatAt = now

	updated, err := c.jobs.UpdateJob(ctx, job)
	if err != nil {
		return nil, err
	}

	c.logger.Info("job started", "job", updated.Id, "attempt", updated.AttemptCount, "maxAttempts", updated.MaxAttempts)
	return updated, nil
}

// Progress records progress percent (clamped to [0,100]) and refreshes
// the heartbeat. Safe to call repeatedly; never changes status.
func (c *Controller) Progress(ctx context.Context, jobID core.ID, percent int) (*core.Job, error) {
	job, err := c.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, ErrJobTerminal
	}

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	job.Progress = percent
	job.HeartbeatAt = time.Now().UTC()

	return c.jobs.UpdateJob(ctx, job)
}

// Advance records that the pipeline step at the given index has
// committed, so a re-run of the job resumes after it. The cursor only
// moves forward.
func (c *Controller) Advance(ctx context.Context, jobID core.ID, step int) (*core.Job, error) {
	job, err := c.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, ErrJobTerminal
	}

	if step > job.StepCursor {
		job.StepCursor = step
	}
	job.HeartbeatAt = time.Now().UTC()

	return c.jobs.UpdateJob(ctx, job)
}

// Complete marks a job completed with progress 100 and a completion
// timestamp. completed is terminal.
func (c *Controller) Complete(ctx context.Context, jobID core.ID) (*core.Job, error) {
	job, err := c.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, ErrJobTerminal
	}

	now := time.Now().UTC()
	job.Status = core.JobStatusCompleted
	job.Progress = 100
	job.CompletedAt = now
	job.HeartbeatAt = now

	updated, err := c.jobs.UpdateJob(ctx, job)
	if err != nil {
		return nil, err
	}

	c.logger.Info("job completed", "job", updated.Id, "attempts", updated.AttemptCount)
	return updated, nil
}

// Fail appends a timestamped entry to the job's error history. With
// attempt budget remaining the job returns to pending and the result
// reports CanRetry; otherwise the job becomes terminal failed with a
// completion timestamp. Scheduling the retry is the caller's job.
func (c *Controller) Fail(ctx context.Context, jobID core.ID, message string) (*core.Job, FailResult, error) {
	job, err := c.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, FailResult{}, err
	}
	if job.Status.Terminal() {
		return nil, FailResult{}, ErrJobTerminal
	}

	now := time.Now().UTC()
	job.History = append(job.History, core.JobError{At: now, Message: message})
	job.LastError = message
	job.HeartbeatAt = now

	canRetry := job.AttemptCount < job.MaxAttempts
	if canRetry {
		job.Status = core.JobStatusPending
	} else {
		job.Status = core.JobStatusFailed
		job.CompletedAt = now
	}

	updated, err := c.jobs.UpdateJob(ctx, job)
	if err != nil {
		return nil, FailResult{}, err
	}

	result := FailResult{
		CanRetry:     canRetry,
		AttemptCount: updated.AttemptCount,
		MaxAttempts:  updated.MaxAttempts,
	}

	c.logger.Warn("job failed", "job", updated.Id, "attempt", result.AttemptCount,
		"maxAttempts", result.MaxAttempts, "canRetry", result.CanRetry, "err", message)
	return updated, result, nil
}

// Abort records a non-retryable failure: the error is appended to
// history and the job goes straight to terminal failed regardless of
// remaining attempt budget.
func (c *Controller) Abort(ctx context.Context, jobID core.ID, message string) (*core.Job, error) {
	job, err := c.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, ErrJobTerminal
	}

	now := time.Now().UTC()
	job.History = append(job.History, core.JobError{At: now, Message: message})
	job.LastError = message
	job.Status = core.JobStatusFailed
	job.CompletedAt = now
	job.HeartbeatAt = now

	updated, err := c.jobs.UpdateJob(ctx, job)
	if err != nil {
		return nil, err
	}

	c.logger.Warn("job aborted", "job", updated.Id, "err", message)
	return updated, nil
}

// Get retrieves a job by ID.
func (c *Controller) Get(ctx context.Context, jobID core.ID) (*core.Job, error) {
	return c.jobs.GetJob(ctx, jobID)
}

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/tessara/groundline/ai"
	"github.com/tessara/groundline/chunker"
	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/storage"
)

// Pipeline step indices, in execution order. A job's StepCursor holds
// the index of the last committed step; -1 means none.
const (
	stepMarkProcessing = iota
	stepFetch
	stepChunk
	stepEmbed
	stepStore
	stepFinalize
)

var stepNames = []string{"mark-processing", "fetch", "chunk", "embed", "store", "finalize"}

// RunOutcome reports how one job attempt ended. Completed and CanRetry
// are mutually exclusive; when both are false the job is terminally
// failed.
type RunOutcome struct {
	JobId        core.ID
	Completed    bool
	CanRetry     bool
	AttemptCount int
	MaxAttempts  int
	Message      string
}

// Pipeline executes ingestion jobs: fetch the source's text, chunk it,
// embed the chunks, store them, and mark the source ready. Jobs run
// concurrently on a worker pool; the steps of one job are sequential.
type Pipeline struct {
	controller *Controller
	sources    storage.SourceRepository
	chunks     storage.ChunkRepository
	embedder   ai.Embedder
	fetchers   *FetcherRegistry
	pool       *ants.Pool

	embeddingModel string
	chunkOpts      []chunker.Option
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent jobs.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunking sets the chunker's target and overlap token counts.
func WithChunking(targetTokens, overlapTokens int) Option {
	return func(p *Pipeline) error {
		p.chunkOpts = []chunker.Option{
			chunker.WithTargetTokens(targetTokens),
			chunker.WithOverlapTokens(overlapTokens),
		}
		return nil
	}
}

// WithEmbeddingModel sets the model name recorded on stored chunks.
func WithEmbeddingModel(model string) Option {
	return func(p *Pipeline) error {
		p.embeddingModel = model
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	controller *Controller,
	sources storage.SourceRepository,
	chunks storage.ChunkRepository,
	provider ai.AIProvider,
	fetchers *FetcherRegistry,
	opts ...Option,
) (*Pipeline, error) {
	if controller == nil {
		return nil, ErrControllerRequired
	}
	if sources == nil {
		return nil, ErrSourceRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if fetchers == nil {
		return nil, ErrFetcherRegistryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		controller:     controller,
		sources:        sources,
		chunks:         chunks,
		embedder:       provider.Embedder(),
		fetchers:       fetchers,
		pool:           pool,
		embeddingModel: ai.DefaultConfig().EmbeddingModel,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion.pipeline")

	return p, nil
}

// Submit runs one job attempt asynchronously on the worker pool. The
// done callback, if non-nil, receives the attempt's outcome; a nil
// outcome with a non-nil error means the attempt could not even record
// its own failure.
func (p *Pipeline) Submit(jobID core.ID, done func(outcome *RunOutcome, err error)) error {
	return p.pool.Submit(func() {
		outcome, err := p.Run(context.Background(), jobID)
		if err != nil {
			p.logger.Error("job attempt errored", "job", jobID, "err", err)
		}
		if done != nil {
			done(outcome, err)
		}
	})
}

// Run executes one attempt of the given job synchronously. Transient
// step failures are recorded through the controller's Fail and surface
// in the outcome, not the error; the error return is reserved for
// failures of the state machine itself (unknown job, storage faults
// while recording the attempt).
func (p *Pipeline) Run(ctx context.Context, jobID core.ID) (*RunOutcome, error) {
	job, err := p.controller.Start(ctx, jobID)
	if err != nil {
		return nil, err
	}

	runErr := p.execute(ctx, job)
	if runErr == nil {
		completed, err := p.controller.Complete(ctx, job.Id)
		if err != nil {
			return nil, err
		}
		return &RunOutcome{
			JobId:        completed.Id,
			Completed:    true,
			AttemptCount: completed.AttemptCount,
			MaxAttempts:  completed.MaxAttempts,
		}, nil
	}

	if IsFatal(runErr) {
		return p.abort(ctx, job, runErr)
	}
	return p.fail(ctx, job, runErr)
}

// execute runs the step list for one attempt. Steps that only compute
// in-memory artifacts (fetch, chunk, embed) are re-run on resume; steps
// that commit writes are skipped once the cursor has passed them, and
// chunk storage is an idempotent upsert either way.
func (p *Pipeline) execute(ctx context.Context, job *core.Job) error {
	source, err := p.sources.GetSource(ctx, job.SourceId)
	if err != nil {
		return fmt.Errorf("loading source %d: %w", job.SourceId, err)
	}
	if source.Deleted() {
		return Fatal(fmt.Errorf("%w: source %d", ErrSourceDeleted, source.Id))
	}

	// The status write runs on every attempt, not just the first: a
	// retryable failure resets the source to pending, so a retried job
	// whose cursor already passed this step must still flip it back.
	if _, err := p.sources.UpdateSourceStatus(ctx, source.Id, core.SourceStatusProcessing, 0, ""); err != nil {
		return err
	}
	if job.StepCursor < stepMarkProcessing {
		if err := p.advance(ctx, job, stepMarkProcessing, 10); err != nil {
			return err
		}
	}

	text, err := p.fetchers.Fetch(ctx, source)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return Fatal(fmt.Errorf("%w: source %d", ErrEmptyContent, source.Id))
	}
	if err := p.advance(ctx, job, stepFetch, 30); err != nil {
		return err
	}

	pieces, err := chunker.Split(text, p.chunkOpts...)
	if err != nil {
		return Fatal(fmt.Errorf("chunking source %d: %w", source.Id, err))
	}
	if len(pieces) == 0 {
		return Fatal(fmt.Errorf("%w: source %d", ErrNoChunks, source.Id))
	}
	if err := p.advance(ctx, job, stepChunk, 45); err != nil {
		return err
	}

	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Content
	}
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		err = fmt.Errorf("embedding source %d: %w", source.Id, err)
		// Permanent provider rejections (bad model, malformed request)
		// will never succeed on retry, so they skip the retry budget.
		var provErr *ai.ProviderError
		if errors.As(err, &provErr) && !provErr.Retryable() {
			return Fatal(err)
		}
		return err
	}
	if len(vectors) != len(pieces) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(pieces), len(vectors))
	}
	if err := p.advance(ctx, job, stepEmbed, 70); err != nil {
		return err
	}

	if job.StepCursor < stepStore {
		batch := make([]*core.Chunk, len(pieces))
		for i, piece := range pieces {
			batch[i] = &core.Chunk{
				TenantId:       source.TenantId,
				AgentId:        source.AgentId,
				SourceId:       source.Id,
				Ordinal:        piece.Ordinal,
				Content:        piece.Content,
				Vector:         ai.NormalizeVector(vectors[i]),
				EmbeddingModel: p.embeddingModel,
				SourceKind:     source.Kind,
				SourceName:     source.Name,
				URL:            sourceURL(source),
			}
		}
		if err := p.chunks.UpsertChunks(ctx, batch...); err != nil {
			return fmt.Errorf("storing chunks for source %d: %w", source.Id, err)
		}
		if err := p.advance(ctx, job, stepStore, 90); err != nil {
			return err
		}
	}

	if job.StepCursor < stepFinalize {
		if _, err := p.sources.UpdateSourceStatus(ctx, source.Id, core.SourceStatusReady, len(pieces), ""); err != nil {
			return err
		}
		if err := p.advance(ctx, job, stepFinalize, 95); err != nil {
			return err
		}
	}

	p.logger.Info("source ingested", "source", source.Id, "chunks", len(pieces))
	return nil
}

// advance commits a step cursor move and a progress update.
func (p *Pipeline) advance(ctx context.Context, job *core.Job, step, percent int) error {
	updated, err := p.controller.Advance(ctx, job.Id, step)
	if err != nil {
		return err
	}
	updated, err = p.controller.Progress(ctx, job.Id, percent)
	if err != nil {
		return err
	}
	*job = *updated
	p.logger.Debug("step committed", "job", job.Id, "step", stepNames[step], "progress", percent)
	return nil
}

// abort handles a non-retryable failure: the source goes to a terminal
// error status with the message preserved verbatim, and the job is
// failed regardless of remaining attempt budget.
func (p *Pipeline) abort(ctx context.Context, job *core.Job, runErr error) (*RunOutcome, error) {
	if _, err := p.sources.UpdateSourceStatus(ctx, job.SourceId, core.SourceStatusError, 0, runErr.Error()); err != nil {
		p.logger.Error("error recording source failure", "source", job.SourceId, "err", err)
	}

	aborted, err := p.controller.Abort(ctx, job.Id, runErr.Error())
	if err != nil {
		return nil, err
	}
	return &RunOutcome{
		JobId:        aborted.Id,
		AttemptCount: aborted.AttemptCount,
		MaxAttempts:  aborted.MaxAttempts,
		Message:      runErr.Error(),
	}, nil
}

// fail records a transient failure through the state machine. With
// attempt budget remaining the source returns to pending for the next
// attempt; otherwise it carries the final error message.
func (p *Pipeline) fail(ctx context.Context, job *core.Job, runErr error) (*RunOutcome, error) {
	failed, result, err := p.controller.Fail(ctx, job.Id, runErr.Error())
	if err != nil {
		return nil, err
	}

	status := core.SourceStatusError
	message := runErr.Error()
	if result.CanRetry {
		status = core.SourceStatusPending
		message = ""
	}
	if _, err := p.sources.UpdateSourceStatus(ctx, job.SourceId, status, 0, message); err != nil {
		p.logger.Error("error recording source failure", "source", job.SourceId, "err", err)
	}

	return &RunOutcome{
		JobId:        failed.Id,
		CanRetry:     result.CanRetry,
		AttemptCount: result.AttemptCount,
		MaxAttempts:  result.MaxAttempts,
		Message:      runErr.Error(),
	}, nil
}

// sourceURL returns the URL for sources that carry one.
func sourceURL(source *core.Source) string {
	if spec, ok := source.Spec.(core.WebsiteSpec); ok {
		return spec.URL
	}
	return ""
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

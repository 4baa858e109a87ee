package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessara/groundline/ai"
	"github.com/tessara/groundline/ai/mock"
	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/storage"
	"github.com/tessara/groundline/storage/badger"
)

type pipelineFixture struct {
	repos      *badger.Repositories
	controller *Controller
	embedder   *mock.MockEmbedder
	pipeline   *Pipeline
}

func setupTestPipeline(t *testing.T, opts ...Option) *pipelineFixture {
	t.Helper()

	repos := setupTestRepositories(t)
	controller := newTestController(t, repos)
	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockJudge())
	registry := NewFetcherRegistry(TextFetcher{}, QAFetcher{})

	pipeline, err := NewPipeline(controller, repos.Sources, repos.Chunks, provider, registry, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return &pipelineFixture{
		repos:      repos,
		controller: controller,
		embedder:   embedder,
		pipeline:   pipeline,
	}
}

func addTestSource(t *testing.T, fx *pipelineFixture, source *core.Source) *core.Source {
	t.Helper()
	stored, err := fx.repos.Sources.AddSource(context.Background(), source)
	require.NoError(t, err)
	return stored
}

func addTextSourceFixture(t *testing.T, fx *pipelineFixture, content string) *core.Source {
	t.Helper()
	return addTestSource(t, fx, &core.Source{
		TenantId: 1,
		AgentId:  2,
		Kind:     core.SourceKindText,
		Status:   core.SourceStatusPending,
		Name:     "support notes",
		Spec:     core.TextSpec{Content: content},
	})
}

func createJobFor(t *testing.T, fx *pipelineFixture, source *core.Source) *core.Job {
	t.Helper()
	job, alreadyExists, err := fx.controller.Create(context.Background(), fmt.Sprintf("source:%d", source.Id), CreateParams{
		TenantId: source.TenantId,
		AgentId:  source.AgentId,
		SourceId: source.Id,
		Kind:     source.Kind,
	})
	require.NoError(t, err)
	require.False(t, alreadyExists)
	return job
}

func TestNewPipeline_Validation(t *testing.T) {
	repos := setupTestRepositories(t)
	controller := newTestController(t, repos)
	provider := mock.NewMockProvider()
	registry := NewFetcherRegistry(TextFetcher{})

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"nil controller", func() error {
			_, err := NewPipeline(nil, repos.Sources, repos.Chunks, provider, registry)
			return err
		}, ErrControllerRequired},
		{"nil sources", func() error {
			_, err := NewPipeline(controller, nil, repos.Chunks, provider, registry)
			return err
		}, ErrSourceRepositoryRequired},
		{"nil chunks", func() error {
			_, err := NewPipeline(controller, repos.Sources, nil, provider, registry)
			return err
		}, ErrChunkRepositoryRequired},
		{"nil provider", func() error {
			_, err := NewPipeline(controller, repos.Sources, repos.Chunks, nil, registry)
			return err
		}, ErrAIProviderRequired},
		{"nil registry", func() error {
			_, err := NewPipeline(controller, repos.Sources, repos.Chunks, provider, nil)
			return err
		}, ErrFetcherRegistryRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}
}

func TestPipeline_IngestsTextSource(t *testing.T) {
	fx := setupTestPipeline(t, WithEmbeddingModel("test-embed-v1"))
	ctx := context.Background()

	// ~3,000 characters of plain text ingests into multiple chunks.
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 67)
	source := addTextSourceFixture(t, fx, text)
	job := createJobFor(t, fx, source)

	outcome, err := fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)
	assert.True(t, outcome.Completed)
	assert.Equal(t, 1, outcome.AttemptCount)

	final, err := fx.controller.Get(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, stepFinalize, final.StepCursor)

	updated, err := fx.repos.Sources.GetSource(ctx, source.Id)
	require.NoError(t, err)
	assert.Equal(t, core.SourceStatusReady, updated.Status)
	assert.Greater(t, updated.ChunkCount, 1)
	assert.Empty(t, updated.ErrorMessage)

	count, err := fx.repos.Chunks.CountChunksBySource(ctx, source.TenantId, source.AgentId, source.Id)
	require.NoError(t, err)
	assert.Equal(t, updated.ChunkCount, count)

	matches, err := fx.repos.Chunks.FindSimilar(ctx, source.TenantId, source.AgentId, fx.makeQueryVector(t, "quick brown fox"), 4)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	chunk, err := fx.repos.Chunks.GetChunk(ctx, matches[0].ChunkId)
	require.NoError(t, err)
	assert.Equal(t, source.Id, chunk.SourceId)
	assert.Equal(t, "test-embed-v1", chunk.EmbeddingModel)
	assert.Equal(t, "support notes", chunk.SourceName)
	assert.LessOrEqual(t, len(chunk.Content), 2000)
}

func (fx *pipelineFixture) makeQueryVector(t *testing.T, query string) []float32 {
	t.Helper()
	vector, err := fx.embedder.EmbedText(context.Background(), query)
	require.NoError(t, err)
	return vector
}

func TestPipeline_IngestsQASource(t *testing.T) {
	fx := setupTestPipeline(t)
	ctx := context.Background()

	source := addTestSource(t, fx, &core.Source{
		TenantId: 1,
		AgentId:  2,
		Kind:     core.SourceKindQA,
		Status:   core.SourceStatusPending,
		Name:     "returns policy",
		Spec:     core.QASpec{Question: "What is the return window?", Answer: "30 days."},
	})
	job := createJobFor(t, fx, source)

	outcome, err := fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)
	assert.True(t, outcome.Completed)

	updated, err := fx.repos.Sources.GetSource(ctx, source.Id)
	require.NoError(t, err)
	assert.Equal(t, core.SourceStatusReady, updated.Status)
	assert.Equal(t, 1, updated.ChunkCount)
}

func TestPipeline_EmptyContentAborts(t *testing.T) {
	fx := setupTestPipeline(t)
	ctx := context.Background()

	source := addTextSourceFixture(t, fx, "   \n\t ")
	job := createJobFor(t, fx, source)

	outcome, err := fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)
	assert.False(t, outcome.Completed)
	assert.False(t, outcome.CanRetry)
	assert.Contains(t, outcome.Message, "produced no content")

	final, err := fx.controller.Get(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, final.Status)
	require.Len(t, final.History, 1)

	updated, err := fx.repos.Sources.GetSource(ctx, source.Id)
	require.NoError(t, err)
	assert.Equal(t, core.SourceStatusError, updated.Status)
	assert.Contains(t, updated.ErrorMessage, "produced no content")
}

func TestPipeline_UnknownKindAborts(t *testing.T) {
	fx := setupTestPipeline(t)
	ctx := context.Background()

	// No website fetcher is registered in the fixture.
	source := addTestSource(t, fx, &core.Source{
		TenantId: 1,
		AgentId:  2,
		Kind:     core.SourceKindWebsite,
		Status:   core.SourceStatusPending,
		Name:     "docs page",
		Spec:     core.WebsiteSpec{URL: "https://example.com/docs"},
	})
	job := createJobFor(t, fx, source)

	outcome, err := fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)
	assert.False(t, outcome.Completed)
	assert.False(t, outcome.CanRetry)

	final, err := fx.controller.Get(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, final.Status)
	assert.Equal(t, 1, final.AttemptCount)
}

func TestPipeline_TransientFailureRequeues(t *testing.T) {
	fx := setupTestPipeline(t)
	ctx := context.Background()

	source := addTextSourceFixture(t, fx, "Shipping takes three to five business days within the EU.")
	job := createJobFor(t, fx, source)

	fx.embedder.EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, errors.New("provider unavailable")
	}

	outcome, err := fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)
	assert.False(t, outcome.Completed)
	assert.True(t, outcome.CanRetry)
	assert.Equal(t, 1, outcome.AttemptCount)
	assert.Contains(t, outcome.Message, "provider unavailable")

	requeued, err := fx.controller.Get(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusPending, requeued.Status)

	updated, err := fx.repos.Sources.GetSource(ctx, source.Id)
	require.NoError(t, err)
	assert.Equal(t, core.SourceStatusPending, updated.Status)

	// Provider recovers; the next attempt completes the job.
	fx.embedder.EmbedTextsFunc = nil

	outcome, err = fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)
	assert.True(t, outcome.Completed)
	assert.Equal(t, 2, outcome.AttemptCount)

	updated, err = fx.repos.Sources.GetSource(ctx, source.Id)
	require.NoError(t, err)
	assert.Equal(t, core.SourceStatusReady, updated.Status)
}

func TestPipeline_PermanentProviderErrorAborts(t *testing.T) {
	fx := setupTestPipeline(t)
	ctx := context.Background()

	source := addTextSourceFixture(t, fx, "Orders ship within two business days.")
	job := createJobFor(t, fx, source)

	// A 4xx rejection will never succeed on retry.
	fx.embedder.EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, &ai.ProviderError{StatusCode: 400, Message: "model not found", Model: "bogus-model"}
	}

	outcome, err := fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)
	assert.False(t, outcome.Completed)
	assert.False(t, outcome.CanRetry)
	assert.Contains(t, outcome.Message, "model not found")

	final, err := fx.controller.Get(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, final.Status)
	assert.Equal(t, 1, final.AttemptCount)

	updated, err := fx.repos.Sources.GetSource(ctx, source.Id)
	require.NoError(t, err)
	assert.Equal(t, core.SourceStatusError, updated.Status)
	assert.Contains(t, updated.ErrorMessage, "model not found")
}

func TestPipeline_RetryReassertsProcessing(t *testing.T) {
	fx := setupTestPipeline(t)
	ctx := context.Background()

	source := addTextSourceFixture(t, fx, "Returns are accepted within thirty days of delivery.")
	job := createJobFor(t, fx, source)

	fx.embedder.EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, errors.New("provider unavailable")
	}
	outcome, err := fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)
	require.True(t, outcome.CanRetry)

	// The second attempt must flip the source back to processing even
	// though the cursor already passed the mark-processing step.
	var statusDuringEmbed core.SourceStatus
	fx.embedder.EmbedTextsFunc = func(embedCtx context.Context, texts []string) ([][]float32, error) {
		current, err := fx.repos.Sources.GetSource(embedCtx, source.Id)
		if err != nil {
			return nil, err
		}
		statusDuringEmbed = current.Status

		vectors := make([][]float32, len(texts))
		for i := range texts {
			v := make([]float32, 8)
			v[i%8] = 1
			vectors[i] = v
		}
		return vectors, nil
	}

	outcome, err = fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)
	assert.True(t, outcome.Completed)
	assert.Equal(t, core.SourceStatusProcessing, statusDuringEmbed)
}

func TestPipeline_RetryBudgetExhausted(t *testing.T) {
	fx := setupTestPipeline(t)
	ctx := context.Background()

	source := addTextSourceFixture(t, fx, "Gift cards never expire and can be combined with discounts.")
	job := createJobFor(t, fx, source)

	fx.embedder.EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, errors.New("rate limited")
	}

	for attempt := 1; attempt <= core.DefaultMaxAttempts; attempt++ {
		outcome, err := fx.pipeline.Run(ctx, job.Id)
		require.NoError(t, err)
		assert.False(t, outcome.Completed)
		assert.Equal(t, attempt, outcome.AttemptCount)
		assert.Equal(t, attempt < core.DefaultMaxAttempts, outcome.CanRetry)
	}

	final, err := fx.controller.Get(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, final.Status)
	assert.Len(t, final.History, 3)

	updated, err := fx.repos.Sources.GetSource(ctx, source.Id)
	require.NoError(t, err)
	assert.Equal(t, core.SourceStatusError, updated.Status)
	assert.Contains(t, updated.ErrorMessage, "rate limited")
}

func TestPipeline_ResumeFromStepCursor(t *testing.T) {
	fx := setupTestPipeline(t)
	ctx := context.Background()

	source := addTextSourceFixture(t, fx, "Orders placed before noon ship the same day.")
	job := createJobFor(t, fx, source)

	fx.embedder.EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, errors.New("timeout")
	}

	_, err := fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)

	// The cursor records the committed steps of the failed attempt.
	requeued, err := fx.controller.Get(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, stepChunk, requeued.StepCursor)

	fx.embedder.EmbedTextsFunc = nil

	outcome, err := fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)
	assert.True(t, outcome.Completed)

	final, err := fx.controller.Get(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, stepFinalize, final.StepCursor)
}

func TestPipeline_ReingestIsIdempotent(t *testing.T) {
	fx := setupTestPipeline(t)
	ctx := context.Background()

	text := strings.Repeat("Loyalty points accrue at one point per euro spent. ", 40)
	source := addTextSourceFixture(t, fx, text)

	job := createJobFor(t, fx, source)
	outcome, err := fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)
	require.True(t, outcome.Completed)

	count, err := fx.repos.Chunks.CountChunksBySource(ctx, source.TenantId, source.AgentId, source.Id)
	require.NoError(t, err)

	// A second ingestion of the same source upserts in place.
	rerun, _, err := fx.controller.Create(ctx, fmt.Sprintf("reingest:%d", source.Id), CreateParams{
		TenantId: source.TenantId,
		AgentId:  source.AgentId,
		SourceId: source.Id,
		Kind:     source.Kind,
	})
	require.NoError(t, err)

	outcome, err = fx.pipeline.Run(ctx, rerun.Id)
	require.NoError(t, err)
	require.True(t, outcome.Completed)

	recount, err := fx.repos.Chunks.CountChunksBySource(ctx, source.TenantId, source.AgentId, source.Id)
	require.NoError(t, err)
	assert.Equal(t, count, recount)
}

func TestPipeline_DeletedSourceAborts(t *testing.T) {
	fx := setupTestPipeline(t)
	ctx := context.Background()

	source := addTextSourceFixture(t, fx, "This source is about to disappear.")
	require.NoError(t, fx.repos.Sources.DeleteSource(ctx, source.Id))

	job := createJobFor(t, fx, source)
	outcome, err := fx.pipeline.Run(ctx, job.Id)
	require.NoError(t, err)
	assert.False(t, outcome.Completed)
	assert.False(t, outcome.CanRetry)

	final, err := fx.controller.Get(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, final.Status)
}

func TestPipeline_RunMissingJob(t *testing.T) {
	fx := setupTestPipeline(t)

	_, err := fx.pipeline.Run(context.Background(), 4242)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPipeline_SubmitRunsOnPool(t *testing.T) {
	fx := setupTestPipeline(t, WithPoolSize(2))
	ctx := context.Background()

	source := addTextSourceFixture(t, fx, "Async ingestion still lands the source in ready state.")
	job := createJobFor(t, fx, source)

	var completed atomic.Bool
	done := make(chan struct{})
	err := fx.pipeline.Submit(job.Id, func(outcome *RunOutcome, err error) {
		completed.Store(err == nil && outcome != nil && outcome.Completed)
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("submit callback never fired")
	}
	assert.True(t, completed.Load())

	updated, err := fx.repos.Sources.GetSource(ctx, source.Id)
	require.NoError(t, err)
	assert.Equal(t, core.SourceStatusReady, updated.Status)
}

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


package groundline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tessara/groundline/ai"
	"github.com/tessara/groundline/ai/openai"
	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/ingestion"
	"github.com/tessara/groundline/respond"
	"github.com/tessara/groundline/retrieval"
	"github.com/tessara/groundline/storage"
	"github.com/tessara/groundline/storage/badger"
)

// Platform wires storage, the AI provider and the ingestion machinery
// into one handle: ingest sources, retrieve chunks, finalize answers.
type Platform struct {
	backend    *badger.Backend
	repos      *badger.Repositories
	provider   ai.AIProvider
	controller *ingestion.Controller
	pipeline   *ingestion.Pipeline
	scheduler  *ingestion.Scheduler
	retriever  *retrieval.Retriever
	config     *ai.Config
	logger     *slog.Logger
}

// PlatformOption configures a Platform.
type PlatformOption func(*platformOptions)

type platformOptions struct {
	aiConfig      *ai.Config
	provider      ai.AIProvider
	inMemory      bool
	fetchers      []ingestion.Fetcher
	pipelineOpts  []ingestion.Option
	schedulerOpts []ingestion.SchedulerOption
}

// WithAIConfig sets the AI provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) PlatformOption {
	return func(o *platformOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithProvider injects a pre-built AI provider instead of constructing
// the OpenAI-compatible one, mainly for tests.
func WithProvider(provider ai.AIProvider) PlatformOption {
	return func(o *platformOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps all storage in memory. Data is lost on Close.
func WithInMemory() PlatformOption {
	return func(o *platformOptions) {
		o.inMemory = true
	}
}

// WithFetchers replaces the default fetcher set (text and Q&A).
func WithFetchers(fetchers ...ingestion.Fetcher) PlatformOption {
	return func(o *platformOptions) {
		if len(fetchers) > 0 {
			o.fetchers = fetchers
		}
	}
}

// WithPipelineOptions appends options for the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) PlatformOption {
	return func(o *platformOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// WithSchedulerOptions appends options for the retry scheduler.
func WithSchedulerOptions(opts ...ingestion.SchedulerOption) PlatformOption {
	return func(o *platformOptions) {
		o.schedulerOpts = append(o.schedulerOpts, opts...)
	}
}

// NewPlatform opens the knowledge store at filePath and wires the full
// pipeline around it.
func NewPlatform(filePath string, opts ...PlatformOption) (*Platform, error) {
	options := &platformOptions{
		aiConfig: ai.DefaultConfig(),
		fetchers: []ingestion.Fetcher{ingestion.TextFetcher{}, ingestion.QAFetcher{}},
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repos, err := badger.NewRepositories(backend, options.aiConfig.EmbeddingDimensions)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			repos.Close()
			return nil, err
		}
	}

	logger := slog.Default()

	controller, err := ingestion.NewController(repos.Jobs, logger)
	if err != nil {
		provider.Close()
		repos.Close()
		return nil, err
	}

	registry := ingestion.NewFetcherRegistry(options.fetchers...)

	pipelineOpts := append([]ingestion.Option{
		ingestion.WithEmbeddingModel(options.aiConfig.EmbeddingModel),
	}, options.pipelineOpts...)
	pipeline, err := ingestion.NewPipeline(controller, repos.Sources, repos.Chunks, provider, registry, pipelineOpts...)
	if err != nil {
		provider.Close()
		repos.Close()
		return nil, err
	}

	scheduler, err := ingestion.NewScheduler(pipeline, options.schedulerOpts...)
	if err != nil {
		pipeline.Release()
		provider.Close()
		repos.Close()
		return nil, err
	}

	retriever, err := retrieval.NewRetriever(repos.Chunks, provider)
	if err != nil {
		scheduler.Release()
		pipeline.Release()
		provider.Close()
		repos.Close()
		return nil, err
	}

	return &Platform{
		backend:    backend,
		repos:      repos,
		provider:   provider,
		controller: controller,
		pipeline:   pipeline,
		scheduler:  scheduler,
		retriever:  retriever,
		config:     options.aiConfig,
		logger:     logger,
	}, nil
}

// IngestSource stores a new source and queues its ingestion job. The
// job is idempotency-keyed on the source ID, so re-queueing the same
// source reuses the existing job.
func (p *Platform) IngestSource(ctx context.Context, source *core.Source) (*core.Source, *core.Job, error) {
	stored, err := p.repos.Sources.AddSource(ctx, source)
	if err != nil {
		return nil, nil, err
	}

	job, _, err := p.controller.Create(ctx, fmt.Sprintf("source:%d", stored.Id), ingestion.CreateParams{
		TenantId: stored.TenantId,
		AgentId:  stored.AgentId,
		SourceId: stored.Id,
		Kind:     stored.Kind,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := p.scheduler.Enqueue(job.Id); err != nil {
		return nil, nil, err
	}
	return stored, job, nil
}

// Search retrieves up to k citation-ready chunks for a query within one
// tenant and agent scope.
func (p *Platform) Search(ctx context.Context, tenantID, agentID core.ID, query string, k int) ([]*core.RetrievedChunk, error) {
	return p.retriever.Retrieve(ctx, tenantID, agentID, query, k)
}

// NewFinalizer creates a stream finalizer committing into the given
// message store, configured with the platform's fallback message.
func (p *Platform) NewFinalizer(store respond.MessageStore, opts ...respond.Option) (*respond.Finalizer, error) {
	opts = append([]respond.Option{respond.WithFallbackMessage(p.config.FallbackMessage)}, opts...)
	return respond.NewFinalizer(store, p.provider, p.repos.Usage, opts...)
}

func (p *Platform) ChunkRepository() storage.ChunkRepository {
	return p.repos.Chunks
}

func (p *Platform) SourceRepository() storage.SourceRepository {
	return p.repos.Sources
}

func (p *Platform) JobRepository() storage.JobRepository {
	return p.repos.Jobs
}

func (p *Platform) UsageRepository() storage.UsageRepository {
	return p.repos.Usage
}

func (p *Platform) Controller() *ingestion.Controller {
	return p.controller
}

func (p *Platform) Scheduler() *ingestion.Scheduler {
	return p.scheduler
}

func (p *Platform) Retriever() *retrieval.Retriever {
	return p.retriever
}

func (p *Platform) Provider() ai.AIProvider {
	return p.provider
}

// Close releases the platform in reverse construction order: scheduler,
// pipeline, provider, repositories, backend.
func (p *Platform) Close() error {
	p.scheduler.Release()
	p.pipeline.Release()

	if err := p.provider.Close(); err != nil {
		p.logger.Error("error closing AI provider", "err", err)
	}

	if err := p.repos.Close(); err != nil {
		p.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}

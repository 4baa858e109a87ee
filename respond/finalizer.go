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


package respond

import (
	"context"
	"log/slog"
	"time"

	"github.com/tessara/groundline/ai"
	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/storage"
)

// Draft is a fully generated answer waiting to be finalized: the
// streamed text plus everything the judge needs to evaluate it.
type Draft struct {
	MessageId    core.ID
	TenantId     core.ID
	AgentId      core.ID
	Text         string
	Usage        core.Usage
	Citations    []core.Citation
	SystemPrompt string
	Context      string
	UserMessage  string
}

// FinalizeOptions carries caller-selected finalization trade-offs.
type FinalizeOptions struct {
	// SkipJudge persists the draft directly with no evaluation and no
	// fallback substitution. A latency trade-off the caller opts into,
	// not a fallback for judge failure.
	SkipJudge bool
}

// FinalMessage is the durable record of a finalized answer.
// OriginalContent is set only when the fallback message was
// substituted; the unsafe draft stays inspectable, never discarded.
type FinalMessage struct {
	MessageId       core.ID
	TenantId        core.ID
	AgentId         core.ID
	Content         string
	OriginalContent string
	Evaluation      *core.JudgeEvaluation
	Citations       []core.Citation
	Usage           core.Usage
	UsageRecorded   bool
	FinalizedAt     time.Time
}

// MessageStore persists finalized messages into the conversation store.
// The conversation store itself lives outside this module.
type MessageStore interface {
	SaveFinalMessage(ctx context.Context, message *FinalMessage) error
}

// Finalizer judges and commits generated answers.
type Finalizer struct {
	store    MessageStore
	judge    ai.Judge
	usage    storage.UsageRepository
	fallback string
	logger   *slog.Logger
}

// Option configures a Finalizer.
type Option func(*Finalizer) error

// WithFallbackMessage sets the content substituted for failed drafts.
// Default is ai.DefaultFallbackMessage.
func WithFallbackMessage(message string) Option {
	return func(f *Finalizer) error {
		if message != "" {
			f.fallback = message
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Finalizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// NewFinalizer creates a finalizer.
func NewFinalizer(
	store MessageStore,
	provider ai.AIProvider,
	usage storage.UsageRepository,
	opts ...Option,
) (*Finalizer, error) {
	if store == nil {
		return nil, ErrMessageStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if usage == nil {
		return nil, ErrUsageRepositoryRequired
	}

	f := &Finalizer{
		store:    store,
		judge:    provider.Judge(),
		usage:    usage,
		fallback: ai.DefaultFallbackMessage,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	f.logger = f.logger.With("component", "respond")

	return f, nil
}

// Finalize judges the draft and commits the final message. It runs
// detached from the caller's cancellation: once generation has
// finished, either the draft or the fallback is stored, never neither.
// A judge failure or transport error substitutes the fallback; only
// storage faults surface as errors.
func (f *Finalizer) Finalize(ctx context.Context, draft *Draft, opts *FinalizeOptions) (*FinalMessage, error) {
	if draft == nil {
		return nil, ErrNilDraft
	}
	if draft.MessageId == 0 {
		return nil, ErrMissingMessageId
	}
	if opts == nil {
		opts = &FinalizeOptions{}
	}

	// The client may already be gone; finalization still must land so
	// conversation history stays consistent.
	ctx = context.WithoutCancel(ctx)

	final := &FinalMessage{
		MessageId:   draft.MessageId,
		TenantId:    draft.TenantId,
		AgentId:     draft.AgentId,
		Content:     draft.Text,
		Citations:   draft.Citations,
		Usage:       draft.Usage,
		FinalizedAt: time.Now().UTC(),
	}

	if !opts.SkipJudge {
		evaluation, err := f.judge.Evaluate(ctx, &ai.JudgeRequest{
			Draft:        draft.Text,
			SystemPrompt: draft.SystemPrompt,
			Context:      draft.Context,
			UserMessage:  draft.UserMessage,
		})
		switch {
		case err != nil:
			// Judge unreachable: fail closed, without an evaluation record.
			f.logger.Error("judge call failed, substituting fallback", "message", draft.MessageId, "err", err)
			final.Content = f.fallback
			final.OriginalContent = draft.Text
		case !evaluation.Passed:
			f.logger.Warn("draft failed evaluation, substituting fallback",
				"message", draft.MessageId, "flagged", evaluation.Flagged, "malformed", evaluation.Malformed)
			final.Content = f.fallback
			final.OriginalContent = draft.Text
			final.Evaluation = evaluation
		default:
			final.Evaluation = evaluation
		}
	}

	if err := f.store.SaveFinalMessage(ctx, final); err != nil {
		return nil, err
	}

	recorded, err := f.usage.RecordUsage(ctx, &core.UsageEvent{
		MessageId: draft.MessageId,
		TenantId:  draft.TenantId,
		AgentId:   draft.AgentId,
		Usage:     draft.Usage,
	})
	if err != nil {
		return nil, err
	}
	final.UsageRecorded = recorded

	f.logger.Debug("message finalized", "message", draft.MessageId,
		"substituted", final.OriginalContent != "", "usageRecorded", recorded)
	return final, nil
}

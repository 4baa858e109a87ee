package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessara/groundline/core"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotNil(t, data)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name  string
		chunk *core.Chunk
	}{
		{
			name: "minimal chunk",
			chunk: &core.Chunk{
				Id:             core.ChunkIdentity(core.ID(7), 0),
				TenantId:       core.ID(1),
				AgentId:        core.ID(2),
				SourceId:       core.ID(7),
				Ordinal:        0,
				Content:        "Our return policy allows returns within 30 days.",
				EmbeddingModel: "text-embedding-3-small",
				SourceKind:     core.SourceKindText,
				SourceName:     "Return policy",
				InsertedAt:     now,
			},
		},
		{
			name: "chunk with vector and page",
			chunk: &core.Chunk{
				Id:             core.ChunkIdentity(core.ID(9), 3),
				TenantId:       core.ID(1),
				AgentId:        core.ID(2),
				SourceId:       core.ID(9),
				Ordinal:        3,
				Content:        "Page three content",
				Vector:         []float32{0.1, 0.2, 0.3, 0.4, 0.5},
				EmbeddingModel: "text-embedding-3-small",
				SourceKind:     core.SourceKindFile,
				SourceName:     "handbook.pdf",
				PageNumber:     3,
				InsertedAt:     now,
			},
		},
		{
			name: "chunk with URL",
			chunk: &core.Chunk{
				Id:             core.ChunkIdentity(core.ID(11), 1),
				TenantId:       core.ID(4),
				AgentId:        core.ID(5),
				SourceId:       core.ID(11),
				Ordinal:        1,
				Content:        "Crawled paragraph",
				Vector:         []float32{0.6, 0.8},
				EmbeddingModel: "text-embedding-3-small",
				SourceKind:     core.SourceKindWebsite,
				SourceName:     "example.com",
				URL:            "https://example.com/faq",
				InsertedAt:     now,
			},
		},
		{
			name: "unicode content",
			chunk: &core.Chunk{
				Id:             core.ChunkIdentity(core.ID(12), 0),
				TenantId:       core.ID(1),
				AgentId:        core.ID(2),
				SourceId:       core.ID(12),
				Content:        "Hello 世界 🌍 émojis",
				EmbeddingModel: "text-embedding-3-small",
				SourceKind:     core.SourceKindText,
				SourceName:     "greeting",
				InsertedAt:     now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalChunk(tt.chunk)
			require.NotNil(t, data)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalChunk(data)
			require.NoError(t, err)
			require.NotNil(t, decoded)

			assert.Equal(t, tt.chunk.Id, decoded.Id)
			assert.Equal(t, tt.chunk.TenantId, decoded.TenantId)
			assert.Equal(t, tt.chunk.AgentId, decoded.AgentId)
			assert.Equal(t, tt.chunk.SourceId, decoded.SourceId)
			assert.Equal(t, tt.chunk.Ordinal, decoded.Ordinal)
			assert.Equal(t, tt.chunk.Content, decoded.Content)
			assert.Equal(t, tt.chunk.EmbeddingModel, decoded.EmbeddingModel)
			assert.Equal(t, tt.chunk.SourceKind, decoded.SourceKind)
			assert.Equal(t, tt.chunk.SourceName, decoded.SourceName)
			assert.Equal(t, tt.chunk.PageNumber, decoded.PageNumber)
			assert.Equal(t, tt.chunk.URL, decoded.URL)
			assert.True(t, tt.chunk.InsertedAt.Equal(decoded.InsertedAt))
			// Handle nil vs empty slice
			if len(tt.chunk.Vector) == 0 {
				assert.Empty(t, decoded.Vector)
			} else {
				assert.Equal(t, tt.chunk.Vector, decoded.Vector)
			}
		})
	}
}

func TestUnmarshalChunk_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"invalid data", []byte{0xFF, 0xFF, 0xFF}},
		{"partial data", []byte{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalChunk(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestMarshalUnmarshalSource(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name   string
		source *core.Source
	}{
		{
			name: "file source",
			source: &core.Source{
				Id:         core.ID(1),
				TenantId:   core.ID(10),
				AgentId:    core.ID(20),
				Kind:       core.SourceKindFile,
				Status:     core.SourceStatusReady,
				Name:       "handbook.pdf",
				ChunkCount: 42,
				Spec:       core.FileSpec{MediaType: "application/pdf", SizeBytes: 1 << 20, PageCount: 12},
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "website source",
			source: &core.Source{
				Id:         core.ID(2),
				TenantId:   core.ID(10),
				AgentId:    core.ID(20),
				Kind:       core.SourceKindWebsite,
				Status:     core.SourceStatusProcessing,
				Name:       "example.com",
				Spec:       core.WebsiteSpec{URL: "https://example.com", CrawlCount: 17},
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "text source",
			source: &core.Source{
				Id:         core.ID(3),
				TenantId:   core.ID(10),
				AgentId:    core.ID(20),
				Kind:       core.SourceKindText,
				Status:     core.SourceStatusPending,
				Name:       "Return policy",
				Spec:       core.TextSpec{Content: "Returns accepted within 30 days."},
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "qa source",
			source: &core.Source{
				Id:         core.ID(4),
				TenantId:   core.ID(10),
				AgentId:    core.ID(20),
				Kind:       core.SourceKindQA,
				Status:     core.SourceStatusReady,
				Name:       "Shipping FAQ",
				ChunkCount: 1,
				Spec:       core.QASpec{Question: "How long does shipping take?", Answer: "3-5 business days."},
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "workspace page source",
			source: &core.Source{
				Id:         core.ID(5),
				TenantId:   core.ID(10),
				AgentId:    core.ID(20),
				Kind:       core.SourceKindWorkspacePage,
				Status:     core.SourceStatusReady,
				Name:       "Onboarding",
				Spec:       core.WorkspacePageSpec{Workspace: "acme", PageId: "pg_123"},
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "cloud file source",
			source: &core.Source{
				Id:         core.ID(6),
				TenantId:   core.ID(10),
				AgentId:    core.ID(20),
				Kind:       core.SourceKindCloudFile,
				Status:     core.SourceStatusError,
				Name:       "quarterly.xlsx",
				ErrorMessage: "download failed: 403 Forbidden",
				Spec:       core.CloudFileSpec{Account: "drive-acct-1", FileId: "f_987", MediaType: "application/vnd.ms-excel"},
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "tombstoned source",
			source: &core.Source{
				Id:         core.ID(7),
				TenantId:   core.ID(10),
				AgentId:    core.ID(20),
				Kind:       core.SourceKindText,
				Status:     core.SourceStatusReady,
				Name:       "old notes",
				Spec:       core.TextSpec{Content: "stale"},
				InsertedAt: now,
				UpdatedAt:  now,
				DeletedAt:  now,
			},
		},
		{
			name: "nil spec",
			source: &core.Source{
				Id:         core.ID(8),
				TenantId:   core.ID(10),
				AgentId:    core.ID(20),
				Kind:       core.SourceKindText,
				Status:     core.SourceStatusPending,
				Name:       "placeholder",
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalSource(tt.source)
			require.NotNil(t, data)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalSource(data)
			require.NoError(t, err)
			require.NotNil(t, decoded)

			assert.Equal(t, tt.source.Id, decoded.Id)
			assert.Equal(t, tt.source.TenantId, decoded.TenantId)
			assert.Equal(t, tt.source.AgentId, decoded.AgentId)
			assert.Equal(t, tt.source.Kind, decoded.Kind)
			assert.Equal(t, tt.source.Status, decoded.Status)
			assert.Equal(t, tt.source.Name, decoded.Name)
			assert.Equal(t, tt.source.ChunkCount, decoded.ChunkCount)
			assert.Equal(t, tt.source.ErrorMessage, decoded.ErrorMessage)
			assert.Equal(t, tt.source.Spec, decoded.Spec)
			assert.True(t, tt.source.InsertedAt.Equal(decoded.InsertedAt))
			assert.True(t, tt.source.UpdatedAt.Equal(decoded.UpdatedAt))
			assert.True(t, tt.source.DeletedAt.Equal(decoded.DeletedAt))
			assert.Equal(t, tt.source.Deleted(), decoded.Deleted())
		})
	}
}

func TestMarshalUnmarshalJob(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		job  *core.Job
	}{
		{
			name: "freshly created job",
			job: &core.Job{
				Id:             core.ID(1),
				TenantId:       core.ID(10),
				AgentId:        core.ID(20),
				SourceId:       core.ID(30),
				Kind:           core.SourceKindFile,
				Status:         core.JobStatusPending,
				MaxAttempts:    core.DefaultMaxAttempts,
				StepCursor:     -1,
				ScheduledAt:    now,
				IdempotencyKey: "ingest:30:v1",
			},
		},
		{
			name: "job mid-flight with progress",
			job: &core.Job{
				Id:             core.ID(2),
				TenantId:       core.ID(10),
				AgentId:        core.ID(20),
				SourceId:       core.ID(31),
				Kind:           core.SourceKindWebsite,
				Status:         core.JobStatusProcessing,
				AttemptCount:   1,
				MaxAttempts:    3,
				Progress:       60,
				StepCursor:     2,
				ScheduledAt:    now,
				StartedAt:      now,
				HeartbeatAt:    now,
				IdempotencyKey: "ingest:31:v1",
			},
		},
		{
			name: "failed job with error history",
			job: &core.Job{
				Id:             core.ID(3),
				TenantId:       core.ID(10),
				AgentId:        core.ID(20),
				SourceId:       core.ID(32),
				Kind:           core.SourceKindText,
				Status:         core.JobStatusFailed,
				AttemptCount:   3,
				MaxAttempts:    3,
				Progress:       40,
				StepCursor:     1,
				ScheduledAt:    now,
				StartedAt:      now,
				CompletedAt:    now,
				HeartbeatAt:    now,
				LastError:      "embedding request failed: 503",
				History: []core.JobError{
					{At: now.Add(-2 * time.Minute), Message: "embedding request failed: 503"},
					{At: now.Add(-1 * time.Minute), Message: "embedding request failed: 503"},
					{At: now, Message: "embedding request failed: 503"},
				},
				IdempotencyKey: "ingest:32:v1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalJob(tt.job)
			require.NotNil(t, data)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalJob(data)
			require.NoError(t, err)
			require.NotNil(t, decoded)

			assert.Equal(t, tt.job.Id, decoded.Id)
			assert.Equal(t, tt.job.TenantId, decoded.TenantId)
			assert.Equal(t, tt.job.AgentId, decoded.AgentId)
			assert.Equal(t, tt.job.SourceId, decoded.SourceId)
			assert.Equal(t, tt.job.Kind, decoded.Kind)
			assert.Equal(t, tt.job.Status, decoded.Status)
			assert.Equal(t, tt.job.AttemptCount, decoded.AttemptCount)
			assert.Equal(t, tt.job.MaxAttempts, decoded.MaxAttempts)
			assert.Equal(t, tt.job.Progress, decoded.Progress)
			assert.Equal(t, tt.job.StepCursor, decoded.StepCursor)
			assert.Equal(t, tt.job.LastError, decoded.LastError)
			assert.Equal(t, tt.job.IdempotencyKey, decoded.IdempotencyKey)
			assert.True(t, tt.job.ScheduledAt.Equal(decoded.ScheduledAt))
			assert.True(t, tt.job.StartedAt.Equal(decoded.StartedAt))
			assert.True(t, tt.job.CompletedAt.Equal(decoded.CompletedAt))
			assert.True(t, tt.job.HeartbeatAt.Equal(decoded.HeartbeatAt))
			require.Len(t, decoded.History, len(tt.job.History))
			for i := range tt.job.History {
				assert.True(t, tt.job.History[i].At.Equal(decoded.History[i].At))
				assert.Equal(t, tt.job.History[i].Message, decoded.History[i].Message)
			}
		})
	}
}

func TestMarshalUnmarshalUsageEvent(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	event := &core.UsageEvent{
		MessageId: core.ID(77),
		TenantId:  core.ID(10),
		AgentId:   core.ID(20),
		Usage: core.Usage{
			PromptTokens:     120,
			CompletionTokens: 48,
			TotalTokens:      168,
		},
		RecordedAt: now,
	}

	data := MarshalUsageEvent(event)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalUsageEvent(data)
	require.NoError(t, err)
	assert.Equal(t, event.MessageId, decoded.MessageId)
	assert.Equal(t, event.TenantId, decoded.TenantId)
	assert.Equal(t, event.AgentId, decoded.AgentId)
	assert.Equal(t, event.Usage, decoded.Usage)
	assert.True(t, event.RecordedAt.Equal(decoded.RecordedAt))
}

func TestRoundTripConsistency(t *testing.T) {
	t.Run("multiple marshal-unmarshal cycles", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Microsecond)
		original := &core.Chunk{
			Id:             core.ChunkIdentity(core.ID(999), 4),
			TenantId:       core.ID(1),
			AgentId:        core.ID(2),
			SourceId:       core.ID(999),
			Ordinal:        4,
			Content:        "Testing consistency",
			Vector:         []float32{0.1, 0.2, 0.3},
			EmbeddingModel: "text-embedding-3-small",
			SourceKind:     core.SourceKindText,
			SourceName:     "consistency",
			InsertedAt:     now,
		}

		current := original
		for i := 0; i < 3; i++ {
			data := MarshalChunk(current)
			decoded, err := UnmarshalChunk(data)
			require.NoError(t, err)
			current = decoded
		}

		assert.Equal(t, original.Id, current.Id)
		assert.Equal(t, original.Content, current.Content)
		assert.Equal(t, original.Vector, current.Vector)
		assert.Equal(t, original.SourceKind, current.SourceKind)
	})
}

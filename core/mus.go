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


package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for persisted records. The schema is small
// enough that generated code would be more trouble than the handful of
// field lists below; the wire format is still plain mus-go.

// IDMUS serializes IDs.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

// ChunkMUS serializes Chunks.
var ChunkMUS = chunkMUS{}

type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) int {
	n := IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.TenantId, bs[n:])
	n += IDMUS.Marshal(v.AgentId, bs[n:])
	n += IDMUS.Marshal(v.SourceId, bs[n:])
	n += varint.Int.Marshal(v.Ordinal, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	n += ord.String.Marshal(v.EmbeddingModel, bs[n:])
	n += varint.Int.Marshal(int(v.SourceKind), bs[n:])
	n += ord.String.Marshal(v.SourceName, bs[n:])
	n += varint.Int.Marshal(v.PageNumber, bs[n:])
	n += ord.String.Marshal(v.URL, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var m int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.TenantId, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.AgentId, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.SourceId, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Ordinal, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Content, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Vector, m, err = unmarshalVector(bs[n:]); err != nil {
		return
	}
	n += m
	if v.EmbeddingModel, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	var kind int
	if kind, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.SourceKind = SourceKind(kind)
	n += m
	if v.SourceName, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.PageNumber, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.URL, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.InsertedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += m
	return
}

func (chunkMUS) Size(v Chunk) int {
	size := IDMUS.Size(v.Id)
	size += IDMUS.Size(v.TenantId)
	size += IDMUS.Size(v.AgentId)
	size += IDMUS.Size(v.SourceId)
	size += varint.Int.Size(v.Ordinal)
	size += ord.String.Size(v.Content)
	size += sizeVector(v.Vector)
	size += ord.String.Size(v.EmbeddingModel)
	size += varint.Int.Size(int(v.SourceKind))
	size += ord.String.Size(v.SourceName)
	size += varint.Int.Size(v.PageNumber)
	size += ord.String.Size(v.URL)
	size += sizeTime(v.InsertedAt)
	return size
}

// SourceMUS serializes Sources, including the Spec variant behind a kind tag.
var SourceMUS = sourceMUS{}

type sourceMUS struct{}

func (sourceMUS) Marshal(v Source, bs []byte) int {
	n := IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.TenantId, bs[n:])
	n += IDMUS.Marshal(v.AgentId, bs[n:])
	n += varint.Int.Marshal(int(v.Kind), bs[n:])
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	n += ord.String.Marshal(v.Name, bs[n:])
	n += varint.Int.Marshal(v.ChunkCount, bs[n:])
	n += ord.String.Marshal(v.ErrorMessage, bs[n:])
	n += marshalSpec(v.Spec, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	n += marshalTime(v.DeletedAt, bs[n:])
	return n
}

func (sourceMUS) Unmarshal(bs []byte) (v Source, n int, err error) {
	var m int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.TenantId, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.AgentId, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	var kind, status int
	if kind, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Kind = SourceKind(kind)
	n += m
	if status, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Status = SourceStatus(status)
	n += m
	if v.Name, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.ChunkCount, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.ErrorMessage, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Spec, m, err = unmarshalSpec(bs[n:]); err != nil {
		return
	}
	n += m
	if v.InsertedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += m
	if v.UpdatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += m
	if v.DeletedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += m
	return
}

func (sourceMUS) Size(v Source) int {
	size := IDMUS.Size(v.Id)
	size += IDMUS.Size(v.TenantId)
	size += IDMUS.Size(v.AgentId)
	size += varint.Int.Size(int(v.Kind))
	size += varint.Int.Size(int(v.Status))
	size += ord.String.Size(v.Name)
	size += varint.Int.Size(v.ChunkCount)
	size += ord.String.Size(v.ErrorMessage)
	size += sizeSpec(v.Spec)
	size += sizeTime(v.InsertedAt)
	size += sizeTime(v.UpdatedAt)
	size += sizeTime(v.DeletedAt)
	return size
}

// JobMUS serializes Jobs.
var JobMUS = jobMUS{}

type jobMUS struct{}

func (jobMUS) Marshal(v Job, bs []byte) int {
	n := IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.TenantId, bs[n:])
	n += IDMUS.Marshal(v.AgentId, bs[n:])
	n += IDMUS.Marshal(v.SourceId, bs[n:])
	n += varint.Int.Marshal(int(v.Kind), bs[n:])
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	n += varint.Int.Marshal(v.AttemptCount, bs[n:])
	n += varint.Int.Marshal(v.MaxAttempts, bs[n:])
	n += varint.Int.Marshal(v.Progress, bs[n:])
	n += varint.Int.Marshal(v.StepCursor, bs[n:])
	n += marshalTime(v.ScheduledAt, bs[n:])
	n += marshalTime(v.StartedAt, bs[n:])
	n += marshalTime(v.CompletedAt, bs[n:])
	n += marshalTime(v.HeartbeatAt, bs[n:])
	n += ord.String.Marshal(v.LastError, bs[n:])
	n += varint.Int.Marshal(len(v.History), bs[n:])
	for _, entry := range v.History {
		n += marshalTime(entry.At, bs[n:])
		n += ord.String.Marshal(entry.Message, bs[n:])
	}
	n += ord.String.Marshal(v.IdempotencyKey, bs[n:])
	return n
}

func (jobMUS) Unmarshal(bs []byte) (v Job, n int, err error) {
	var m int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.TenantId, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.AgentId, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.SourceId, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	var kind, status int
	if kind, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Kind = SourceKind(kind)
	n += m
	if status, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Status = JobStatus(status)
	n += m
	if v.AttemptCount, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.MaxAttempts, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Progress, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.StepCursor, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.ScheduledAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += m
	if v.StartedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += m
	if v.CompletedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += m
	if v.HeartbeatAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += m
	if v.LastError, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	var count int
	if count, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if count > 0 {
		v.History = make([]JobError, count)
		for i := 0; i < count; i++ {
			if v.History[i].At, m, err = unmarshalTime(bs[n:]); err != nil {
				return
			}
			n += m
			if v.History[i].Message, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += m
		}
	}
	if v.IdempotencyKey, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	return
}

func (jobMUS) Size(v Job) int {
	size := IDMUS.Size(v.Id)
	size += IDMUS.Size(v.TenantId)
	size += IDMUS.Size(v.AgentId)
	size += IDMUS.Size(v.SourceId)
	size += varint.Int.Size(int(v.Kind))
	size += varint.Int.Size(int(v.Status))
	size += varint.Int.Size(v.AttemptCount)
	size += varint.Int.Size(v.MaxAttempts)
	size += varint.Int.Size(v.Progress)
	size += varint.Int.Size(v.StepCursor)
	size += sizeTime(v.ScheduledAt)
	size += sizeTime(v.StartedAt)
	size += sizeTime(v.CompletedAt)
	size += sizeTime(v.HeartbeatAt)
	size += ord.String.Size(v.LastError)
	size += varint.Int.Size(len(v.History))
	for _, entry := range v.History {
		size += sizeTime(entry.At)
		size += ord.String.Size(entry.Message)
	}
	size += ord.String.Size(v.IdempotencyKey)
	return size
}

// UsageEventMUS serializes UsageEvents.
var UsageEventMUS = usageEventMUS{}

type usageEventMUS struct{}

func (usageEventMUS) Marshal(v UsageEvent, bs []byte) int {
	n := IDMUS.Marshal(v.MessageId, bs)
	n += IDMUS.Marshal(v.TenantId, bs[n:])
	n += IDMUS.Marshal(v.AgentId, bs[n:])
	n += varint.Int.Marshal(v.Usage.PromptTokens, bs[n:])
	n += varint.Int.Marshal(v.Usage.CompletionTokens, bs[n:])
	n += varint.Int.Marshal(v.Usage.TotalTokens, bs[n:])
	n += marshalTime(v.RecordedAt, bs[n:])
	return n
}

func (usageEventMUS) Unmarshal(bs []byte) (v UsageEvent, n int, err error) {
	var m int
	if v.MessageId, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.TenantId, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.AgentId, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Usage.PromptTokens, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Usage.CompletionTokens, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.Usage.TotalTokens, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if v.RecordedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += m
	return
}

func (usageEventMUS) Size(v UsageEvent) int {
	size := IDMUS.Size(v.MessageId)
	size += IDMUS.Size(v.TenantId)
	size += IDMUS.Size(v.AgentId)
	size += varint.Int.Size(v.Usage.PromptTokens)
	size += varint.Int.Size(v.Usage.CompletionTokens)
	size += varint.Int.Size(v.Usage.TotalTokens)
	size += sizeTime(v.RecordedAt)
	return size
}

// Helpers

// Times are stored as Unix microseconds; zero time maps to 0.
func marshalTime(t time.Time, bs []byte) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Marshal(micros, bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micros == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Size(micros)
}

func marshalVector(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil || count == 0 {
		return nil, n, err
	}
	v := make([]float32, count)
	for i := 0; i < count; i++ {
		var m int
		if v[i], m, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
	}
	return v, n, nil
}

func sizeVector(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

// Spec variants are encoded as a kind tag followed by the variant fields.
// A nil spec is encoded as tag 0.
func marshalSpec(spec SourceSpec, bs []byte) int {
	if spec == nil {
		return varint.Int.Marshal(0, bs)
	}
	n := varint.Int.Marshal(int(spec.SpecKind()), bs)
	switch s := spec.(type) {
	case FileSpec:
		n += ord.String.Marshal(s.MediaType, bs[n:])
		n += varint.Int64.Marshal(s.SizeBytes, bs[n:])
		n += varint.Int.Marshal(s.PageCount, bs[n:])
	case WebsiteSpec:
		n += ord.String.Marshal(s.URL, bs[n:])
		n += varint.Int.Marshal(s.CrawlCount, bs[n:])
	case TextSpec:
		n += ord.String.Marshal(s.Content, bs[n:])
	case QASpec:
		n += ord.String.Marshal(s.Question, bs[n:])
		n += ord.String.Marshal(s.Answer, bs[n:])
	case WorkspacePageSpec:
		n += ord.String.Marshal(s.Workspace, bs[n:])
		n += ord.String.Marshal(s.PageId, bs[n:])
	case CloudFileSpec:
		n += ord.String.Marshal(s.Account, bs[n:])
		n += ord.String.Marshal(s.FileId, bs[n:])
		n += ord.String.Marshal(s.MediaType, bs[n:])
	}
	return n
}

func unmarshalSpec(bs []byte) (SourceSpec, int, error) {
	tag, n, err := varint.Int.Unmarshal(bs)
	if err != nil || tag == 0 {
		return nil, n, err
	}

	var m int
	switch SourceKind(tag) {
	case SourceKindFile:
		var s FileSpec
		if s.MediaType, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		if s.SizeBytes, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		if s.PageCount, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		return s, n, nil
	case SourceKindWebsite:
		var s WebsiteSpec
		if s.URL, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		if s.CrawlCount, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		return s, n, nil
	case SourceKindText:
		var s TextSpec
		if s.Content, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		return s, n, nil
	case SourceKindQA:
		var s QASpec
		if s.Question, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		if s.Answer, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		return s, n, nil
	case SourceKindWorkspacePage:
		var s WorkspacePageSpec
		if s.Workspace, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		if s.PageId, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		return s, n, nil
	case SourceKindCloudFile:
		var s CloudFileSpec
		if s.Account, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		if s.FileId, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		if s.MediaType, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
		return s, n, nil
	default:
		return nil, n, ErrInvalidSourceKind
	}
}

func sizeSpec(spec SourceSpec) int {
	if spec == nil {
		return varint.Int.Size(0)
	}
	size := varint.Int.Size(int(spec.SpecKind()))
	switch s := spec.(type) {
	case FileSpec:
		size += ord.String.Size(s.MediaType)
		size += varint.Int64.Size(s.SizeBytes)
		size += varint.Int.Size(s.PageCount)
	case WebsiteSpec:
		size += ord.String.Size(s.URL)
		size += varint.Int.Size(s.CrawlCount)
	case TextSpec:
		size += ord.String.Size(s.Content)
	case QASpec:
		size += ord.String.Size(s.Question)
		size += ord.String.Size(s.Answer)
	case WorkspacePageSpec:
		size += ord.String.Size(s.Workspace)
		size += ord.String.Size(s.PageId)
	case CloudFileSpec:
		size += ord.String.Size(s.Account)
		size += ord.String.Size(s.FileId)
		size += ord.String.Size(s.MediaType)
	}
	return size
}

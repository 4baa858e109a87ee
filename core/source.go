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

import "time"

// SourceKind identifies the ingestion variant of a Source.
type SourceKind int

const (
	// SourceKindFile is an uploaded document (PDF, DOCX, plain text).
	SourceKindFile SourceKind = iota + 1
	// SourceKindWebsite is a scraped web page or crawl root.
	SourceKindWebsite
	// SourceKindText is manually entered plain text.
	SourceKindText
	// SourceKindQA is a manually entered question/answer pair.
	SourceKindQA
	// SourceKindWorkspacePage is a page imported from a workspace tool export.
	SourceKindWorkspacePage
	// SourceKindCloudFile is a file imported from a connected cloud drive.
	SourceKindCloudFile
)

// String returns the lowercase name of the kind.
func (k SourceKind) String() string {
	switch k {
	case SourceKindFile:
		return "file"
	case SourceKindWebsite:
		return "website"
	case SourceKindText:
		return "text"
	case SourceKindQA:
		return "qa"
	case SourceKindWorkspacePage:
		return "workspace-page"
	case SourceKindCloudFile:
		return "cloud-file"
	default:
		return "unknown"
	}
}

// SourceStatus is the user-visible lifecycle state of a Source.
type SourceStatus int

const (
	// SourceStatusPending indicates the source is waiting for ingestion.
	SourceStatusPending SourceStatus = iota + 1
	// SourceStatusProcessing indicates ingestion is in progress.
	SourceStatusProcessing
	// SourceStatusReady indicates the source is chunked, embedded and searchable.
	SourceStatusReady
	// SourceStatusError indicates ingestion failed; ErrorMessage explains why.
	SourceStatusError
)

// String returns the lowercase name of the status.
func (s SourceStatus) String() string {
	switch s {
	case SourceStatusPending:
		return "pending"
	case SourceStatusProcessing:
		return "processing"
	case SourceStatusReady:
		return "ready"
	case SourceStatusError:
		return "error"
	default:
		return "unknown"
	}
}

// SourceSpec carries the fields specific to one ingestion variant.
// Exactly one spec type exists per SourceKind; the ingestion pipeline
// dispatches its fetch step on the kind tag.
type SourceSpec interface {
	// SpecKind returns the variant tag for this spec.
	SpecKind() SourceKind
}

// FileSpec describes an uploaded document.
type FileSpec struct {
	MediaType string
	SizeBytes int64
	PageCount int
}

// SpecKind returns SourceKindFile.
func (FileSpec) SpecKind() SourceKind { return SourceKindFile }

// WebsiteSpec describes a scraped page or crawl root.
type WebsiteSpec struct {
	URL        string
	CrawlCount int // pages discovered under a crawl root, 0 for a single page
}

// SpecKind returns SourceKindWebsite.
func (WebsiteSpec) SpecKind() SourceKind { return SourceKindWebsite }

// TextSpec describes manually entered plain text.
type TextSpec struct {
	Content string
}

// SpecKind returns SourceKindText.
func (TextSpec) SpecKind() SourceKind { return SourceKindText }

// QASpec describes a manually entered question/answer pair.
type QASpec struct {
	Question string
	Answer   string
}

// SpecKind returns SourceKindQA.
func (QASpec) SpecKind() SourceKind { return SourceKindQA }

// WorkspacePageSpec describes a page imported from a workspace tool.
type WorkspacePageSpec struct {
	Workspace string
	PageId    string
}

// SpecKind returns SourceKindWorkspacePage.
func (WorkspacePageSpec) SpecKind() SourceKind { return SourceKindWorkspacePage }

// CloudFileSpec describes a file imported from a connected cloud drive.
type CloudFileSpec struct {
	Account   string
	FileId    string
	MediaType string
}

// SpecKind returns SourceKindCloudFile.
func (CloudFileSpec) SpecKind() SourceKind { return SourceKindCloudFile }

// Source is one ingestible unit of knowledge belonging to an agent.
// The Spec field holds the variant-specific fields; common lifecycle
// fields live here. Sources are soft-deleted via the DeletedAt
// tombstone and never hard-deleted while chunks reference them.
type Source struct {
	Id           ID
	TenantId     ID
	AgentId      ID
	Kind         SourceKind
	Status       SourceStatus
	Name         string
	ChunkCount   int    // final chunk count, set when status becomes ready
	ErrorMessage string // set when status becomes error, preserved verbatim
	Spec         SourceSpec
	InsertedAt   time.Time
	UpdatedAt    time.Time
	DeletedAt    time.Time // zero = live
}

// Deleted reports whether the source has been tombstoned.
func (s *Source) Deleted() bool {
	return !s.DeletedAt.IsZero()
}

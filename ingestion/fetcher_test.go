package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessara/groundline/core"
)

type testBlobLoader struct {
	data []byte
	err  error
}

func (l *testBlobLoader) Load(_ context.Context, _ *core.Source) ([]byte, error) {
	return l.data, l.err
}

type testExtractor struct {
	text string
	err  error
}

func (e *testExtractor) Extract(_ context.Context, _ []byte, _ string) (string, error) {
	return e.text, e.err
}

func TestTextFetcher(t *testing.T) {
	t.Run("returns spec content", func(t *testing.T) {
		source := &core.Source{Id: 1, Kind: core.SourceKindText, Spec: core.TextSpec{Content: "shipping takes 3-5 days"}}
		text, err := TextFetcher{}.Fetch(context.Background(), source)
		require.NoError(t, err)
		assert.Equal(t, "shipping takes 3-5 days", text)
	})

	t.Run("spec mismatch is fatal", func(t *testing.T) {
		source := &core.Source{Id: 1, Kind: core.SourceKindText, Spec: core.QASpec{Question: "q", Answer: "a"}}
		_, err := TextFetcher{}.Fetch(context.Background(), source)
		require.Error(t, err)
		assert.True(t, IsFatal(err))
		assert.ErrorIs(t, err, ErrSpecMismatch)
	})
}

func TestQAFetcher(t *testing.T) {
	source := &core.Source{
		Id:   2,
		Kind: core.SourceKindQA,
		Spec: core.QASpec{Question: "What is the return window?", Answer: "30 days from delivery."},
	}

	text, err := QAFetcher{}.Fetch(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, "Question: What is the return window?\nAnswer: 30 days from delivery.", text)
}

func TestFileFetcher(t *testing.T) {
	source := &core.Source{
		Id:   3,
		Kind: core.SourceKindFile,
		Spec: core.FileSpec{MediaType: "application/pdf", SizeBytes: 1024},
	}

	t.Run("extracts loaded bytes", func(t *testing.T) {
		fetcher, err := NewFileFetcher(&testBlobLoader{data: []byte("%PDF")}, &testExtractor{text: "page one text"})
		require.NoError(t, err)

		text, err := fetcher.Fetch(context.Background(), source)
		require.NoError(t, err)
		assert.Equal(t, "page one text", text)
	})

	t.Run("loader failure is transient", func(t *testing.T) {
		fetcher, err := NewFileFetcher(&testBlobLoader{err: errors.New("bucket unavailable")}, &testExtractor{})
		require.NoError(t, err)

		_, err = fetcher.Fetch(context.Background(), source)
		require.Error(t, err)
		assert.False(t, IsFatal(err))
	})

	t.Run("extractor failure is fatal", func(t *testing.T) {
		fetcher, err := NewFileFetcher(&testBlobLoader{data: []byte("bytes")}, &testExtractor{err: errors.New("unsupported media type")})
		require.NoError(t, err)

		_, err = fetcher.Fetch(context.Background(), source)
		require.Error(t, err)
		assert.True(t, IsFatal(err))
	})

	t.Run("requires collaborators", func(t *testing.T) {
		_, err := NewFileFetcher(nil, &testExtractor{})
		assert.Error(t, err)
		_, err = NewFileFetcher(&testBlobLoader{}, nil)
		assert.Error(t, err)
	})
}

func TestFetcherRegistry(t *testing.T) {
	registry := NewFetcherRegistry(TextFetcher{}, QAFetcher{})

	t.Run("dispatches on kind", func(t *testing.T) {
		source := &core.Source{Id: 4, Kind: core.SourceKindText, Spec: core.TextSpec{Content: "hello"}}
		text, err := registry.Fetch(context.Background(), source)
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
	})

	t.Run("unknown kind is fatal", func(t *testing.T) {
		source := &core.Source{Id: 5, Kind: core.SourceKindWebsite, Spec: core.WebsiteSpec{URL: "https://example.com"}}
		_, err := registry.Fetch(context.Background(), source)
		require.Error(t, err)
		assert.True(t, IsFatal(err))
		assert.ErrorIs(t, err, ErrUnknownSourceKind)
	})
}

package main

import (
	"flag"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessara/groundline/core"
	"github.com/urfave/cli/v2"
)

func buildSourceFromArgs(t *testing.T, args ...string) (*core.Source, error) {
	t.Helper()

	var (
		source   *core.Source
		buildErr error
	)
	app := &cli.App{
		Name: "groundline",
		Commands: []*cli.Command{
			{
				Name: "ingest",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "tenant"},
					&cli.Uint64Flag{Name: "agent"},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "text"},
					&cli.StringFlag{Name: "question"},
					&cli.StringFlag{Name: "answer"},
				},
				Action: func(c *cli.Context) error {
					source, buildErr = buildSource(c)
					return nil
				},
			},
		},
	}

	err := app.Run(append([]string{"groundline", "ingest"}, args...))
	require.NoError(t, err)
	return source, buildErr
}

func TestBuildSource(t *testing.T) {
	t.Run("text source", func(t *testing.T) {
		source, err := buildSourceFromArgs(t,
			"--tenant", "1", "--agent", "2", "--name", "policy", "--text", "Returns in 30 days.")
		require.NoError(t, err)
		assert.Equal(t, core.SourceKindText, source.Kind)
		assert.Equal(t, core.ID(1), source.TenantId)
		assert.Equal(t, core.ID(2), source.AgentId)
		assert.Equal(t, "policy", source.Name)
		assert.Equal(t, core.TextSpec{Content: "Returns in 30 days."}, source.Spec)
	})

	t.Run("qa source", func(t *testing.T) {
		source, err := buildSourceFromArgs(t,
			"--tenant", "1", "--agent", "2", "--name", "faq",
			"--question", "How long is shipping?", "--answer", "3-5 days.")
		require.NoError(t, err)
		assert.Equal(t, core.SourceKindQA, source.Kind)
		assert.Equal(t, core.QASpec{Question: "How long is shipping?", Answer: "3-5 days."}, source.Spec)
	})

	t.Run("text and qa are mutually exclusive", func(t *testing.T) {
		_, err := buildSourceFromArgs(t,
			"--tenant", "1", "--agent", "2", "--name", "x",
			"--text", "body", "--question", "q")
		assert.Error(t, err)
	})

	t.Run("question without answer", func(t *testing.T) {
		_, err := buildSourceFromArgs(t,
			"--tenant", "1", "--agent", "2", "--name", "x", "--question", "q")
		assert.Error(t, err)
	})

	t.Run("no content at all", func(t *testing.T) {
		_, err := buildSourceFromArgs(t, "--tenant", "1", "--agent", "2", "--name", "x")
		assert.Error(t, err)
	})
}

func TestSetupLogger(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	newContext := func(level string) *cli.Context {
		set := flag.NewFlagSet("test", flag.ContinueOnError)
		set.String("log-level", level, "")
		return cli.NewContext(&cli.App{Writer: os.Stderr}, set, nil)
	}

	t.Run("valid levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "INFO"} {
			assert.NoError(t, setupLogger(newContext(level)), "level %q", level)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		assert.Error(t, setupLogger(newContext("verbose")))
	})
}

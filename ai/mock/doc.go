// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Judge, and
// ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic
// behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	judge := mock.NewMockJudge()
//	judge.EvaluateFunc = func(ctx context.Context, req *ai.JudgeRequest) (*core.JudgeEvaluation, error) {
//	    return &core.JudgeEvaluation{Passed: false}, nil
//	}
//
//	// Check call counts
//	count := judge.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: returns deterministic unit vectors based on text hash
//   - MockJudge: passes every draft with perfect scores
//   - MockProvider: aggregates mock embedder and judge
package mock

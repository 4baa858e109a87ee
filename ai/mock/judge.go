package mock

import (
	"context"

	"github.com/tessara/groundline/ai"
	"github.com/tessara/groundline/core"
)

// MockJudge is a test double for ai.Judge.
// It allows custom behavior injection via function fields.
type MockJudge struct {
	// EvaluateFunc is called by Evaluate if set.
	// If nil, every draft passes with perfect scores.
	EvaluateFunc func(ctx context.Context, req *ai.JudgeRequest) (*core.JudgeEvaluation, error)

	callCount int
}

// NewMockJudge creates a mock judge that passes everything by default.
// Note: Returns concrete type to allow test assertions.
func NewMockJudge() *MockJudge {
	return &MockJudge{}
}

// NewFailingJudge creates a mock judge that fails every draft with the
// given reasoning.
func NewFailingJudge(reasoning string) *MockJudge {
	return &MockJudge{
		EvaluateFunc: func(ctx context.Context, req *ai.JudgeRequest) (*core.JudgeEvaluation, error) {
			return &core.JudgeEvaluation{
				Passed:              false,
				SafetyScore:         0.9,
				GroundednessScore:   0.2,
				BrandAlignmentScore: 0.9,
				Reasoning:           reasoning,
			}, nil
		},
	}
}

// Evaluate scores a draft. Default behavior passes with perfect scores.
func (m *MockJudge) Evaluate(ctx context.Context, req *ai.JudgeRequest) (*core.JudgeEvaluation, error) {
	m.callCount++

	if m.EvaluateFunc != nil {
		return m.EvaluateFunc(ctx, req)
	}

	return &core.JudgeEvaluation{
		Passed:              true,
		SafetyScore:         1.0,
		GroundednessScore:   1.0,
		BrandAlignmentScore: 1.0,
		Reasoning:           "mock judge default pass",
	}, nil
}

// CallCount returns the number of times Evaluate was called.
func (m *MockJudge) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockJudge) Reset() {
	m.callCount = 0
	m.EvaluateFunc = nil
}

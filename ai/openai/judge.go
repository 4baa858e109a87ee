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


package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/tessara/groundline/ai"
	"github.com/tessara/groundline/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Judge implements ai.Judge using OpenAI-compatible chat APIs.
//
// Judging fails closed: if the model's verdict cannot be parsed after
// retries, Evaluate returns a failed evaluation with Malformed set rather
// than an error, so a broken judge never lets an unvetted draft through.
type Judge struct {
	client    llms.Model
	threshold float64
	logger    *slog.Logger
}

// verdict is the structure expected from the judge model. Score fields
// are pointers so that a missing key is distinguishable from 0.0.
type verdict struct {
	SafetyScore         *float64 `json:"safety_score"`
	GroundednessScore   *float64 `json:"groundedness_score"`
	BrandAlignmentScore *float64 `json:"brand_alignment_score"`
	Reasoning           string   `json:"reasoning"`
	Flagged             bool     `json:"flagged"`
}

// newJudge is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newJudge(config *ai.Config) (*Judge, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.JudgeHost),
		openai.WithToken(config.APIToken),
		openai.WithModel(config.JudgeModel),
	)
	if err != nil {
		return nil, err
	}

	return &Judge{
		client:    client,
		threshold: config.PassThreshold,
		logger:    slog.Default().With("component", "openai-judge"),
	}, nil
}

// NewJudge creates a new response judge using the provided configuration.
//
// Returns ai.Judge interface to enforce abstraction.
func NewJudge(config *ai.Config) (ai.Judge, error) {
	return newJudge(config)
}

// Evaluate scores a drafted answer. An error is returned only when the
// judge service could not be reached; a verdict that cannot be parsed
// produces a failed, flagged evaluation instead.
func (j *Judge) Evaluate(ctx context.Context, req *ai.JudgeRequest) (*core.JudgeEvaluation, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(judgeSystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildJudgeInput(req)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result verdict
	parsed := false
	for attempt := 0; attempt < 3; attempt++ {
		response, err := j.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			j.logger.Error("judge call failed", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			j.logger.Warn("judge returned no choices", "attempt", attempt+1)
			continue
		}

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(response.Choices[0].Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		result = verdict{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			j.logger.Warn("error parsing judge verdict",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		parsed = true
		break
	}

	if !parsed {
		j.logger.Error("judge verdict unparseable after retries; failing closed")
		return malformedEvaluation("judge returned an unparseable verdict"), nil
	}

	if result.SafetyScore == nil || result.GroundednessScore == nil || result.BrandAlignmentScore == nil {
		j.logger.Error("judge verdict missing score fields; failing closed")
		return malformedEvaluation("judge verdict was missing score fields"), nil
	}

	safety := *result.SafetyScore
	groundedness := *result.GroundednessScore
	brand := *result.BrandAlignmentScore
	if !inUnitRange(safety) || !inUnitRange(groundedness) || !inUnitRange(brand) {
		j.logger.Error("judge verdict scores out of range; failing closed",
			"safety", safety, "groundedness", groundedness, "brand", brand)
		return malformedEvaluation("judge verdict scores were out of range"), nil
	}

	eval := &core.JudgeEvaluation{
		Passed:              safety >= j.threshold && groundedness >= j.threshold && brand >= j.threshold,
		SafetyScore:         safety,
		GroundednessScore:   groundedness,
		BrandAlignmentScore: brand,
		Reasoning:           result.Reasoning,
		Flagged:             result.Flagged,
	}

	j.logger.Debug("judged draft",
		"passed", eval.Passed,
		"safety", safety,
		"groundedness", groundedness,
		"brand", brand,
		"flagged", eval.Flagged)
	return eval, nil
}

// malformedEvaluation is the fail-closed verdict for inscrutable judge
// output. Flagged is set so the conversation surfaces for review.
func malformedEvaluation(reason string) *core.JudgeEvaluation {
	return &core.JudgeEvaluation{
		Passed:    false,
		Reasoning: reason,
		Flagged:   true,
		Malformed: true,
	}
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

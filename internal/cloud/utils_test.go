// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

func testTokenCounters(t *testing.T) (metric.Int64Counter, metric.Int64Counter) {
	meter := otel.Meter("utils-test")
	in, err := meter.Int64Counter("test.token.input")
	assert.NoError(t, err)
	out, err := meter.Int64Counter("test.token.output")
	assert.NoError(t, err)
	return in, out
}

// TestExtractResponseTextBlockedPromptWithoutUsage verifies that a response
// the service blocked at the prompt stage, which carries no usage metadata,
// is classified as ErrContentBlocked instead of panicking on the missing
// metadata.
func TestExtractResponseTextBlockedPromptWithoutUsage(t *testing.T) {
	in, out := testTokenCounters(t)
	resp := &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
			BlockReason: genai.BlockedReasonProhibitedContent,
		},
	}

	_, err := ExtractResponseText(context.Background(), in, out, resp)
	assert.ErrorIs(t, err, ErrContentBlocked)
}

// TestExtractResponseTextStripsMarkdownFence verifies the text of a normal
// response is concatenated and stripped of markdown JSON fences.
func TestExtractResponseTextStripsMarkdownFence(t *testing.T) {
	in, out := testTokenCounters(t)
	resp := &genai.GenerateContentResponse{
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     120,
			CandidatesTokenCount: 48,
		},
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "```json{\"ok\": true}```"}}}},
		},
	}

	text, err := ExtractResponseText(context.Background(), in, out, resp)
	assert.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, text)
}

// TestExtractResponseTextSafetyFinish verifies a candidate cut off by the
// safety filter is reported as blocked content.
func TestExtractResponseTextSafetyFinish(t *testing.T) {
	in, out := testTokenCounters(t)
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{FinishReason: genai.FinishReasonSafety},
		},
	}

	_, err := ExtractResponseText(context.Background(), in, out, resp)
	assert.ErrorIs(t, err, ErrContentBlocked)
}

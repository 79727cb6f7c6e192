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

package commands

import (
	goctx "context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/cloud"
)

// FindingSource is the inference backend the segment dispatcher talks to.
// The production implementation calls Vertex AI; tests substitute a fake so
// the dispatch, retry, and degradation logic can be exercised hermetically.
type FindingSource interface {
	// AnalyzeSegment submits one segment's prompt and media reference and
	// returns the raw response document.
	AnalyzeSegment(ctx goctx.Context, prompt string, payload *genai.FileData) (string, error)
}

// GenAIFindingSource implements FindingSource against a rate-limited Vertex
// AI generative model.
type GenAIFindingSource struct {
	model              *cloud.QuotaAwareGenerativeAIModel
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

// NewGenAIFindingSource creates a FindingSource backed by the given model.
// Token counters are registered on the supplied meter under the owner name.
func NewGenAIFindingSource(owner string, meter metric.Meter, model *cloud.QuotaAwareGenerativeAIModel) *GenAIFindingSource {
	out := &GenAIFindingSource{model: model}
	out.inputTokenCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.token.input", owner))
	out.outputTokenCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.token.output", owner))
	return out
}

// AnalyzeSegment assembles the multi-modal request and executes it once.
func (s *GenAIFindingSource) AnalyzeSegment(ctx goctx.Context, prompt string, payload *genai.FileData) (string, error) {
	contents := cloud.NewTextPart(prompt)
	contents[0].Parts = append(contents[0].Parts, &genai.Part{FileData: payload})
	return cloud.GenerateMultiModalResponse(ctx, s.inputTokenCounter, s.outputTokenCounter, s.model, contents)
}

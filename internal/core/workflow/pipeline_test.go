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

// End-to-end tests of the analysis core, run against a scripted inference
// backend so no cloud services are needed. Each test drives the chain from
// guideline parsing through report assembly.
package workflow_test

import (
	goctx "context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/cloud"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/commands"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/workflow"
)

const testGuideline = `Classification Guidelines.
Content is classified G, PG, PG13, NC16, M18 or R21.
Violence exceeding a PG13 threshold requires NC16.`

const emptySegmentReport = `{"is_compliance_issues": false, "compliance_issues": []}`

// scriptedBackend maps a segment's start timecode, as rendered into the
// prompt, to a canned response or error.
type scriptedBackend struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
}

func newScriptedBackend() *scriptedBackend {
	return &scriptedBackend{
		responses: make(map[string]string),
		failures:  make(map[string]error),
	}
}

func (s *scriptedBackend) AnalyzeSegment(_ goctx.Context, prompt string, _ *genai.FileData) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, err := range s.failures {
		if strings.Contains(prompt, key) {
			return "", err
		}
	}
	for key, response := range s.responses {
		if strings.Contains(prompt, key) {
			return response, nil
		}
	}
	return emptySegmentReport, nil
}

func pipelineConfig() *cloud.Config {
	config := cloud.NewConfig()
	config.Application.ThreadPoolSize = 4
	config.Pipeline.MaxSegmentSeconds = 600
	config.Pipeline.DedupWindowSeconds = 3.0
	config.Pipeline.MaxRetries = 1
	config.PromptTemplates.CompliancePrompt = "Analyze the window starting at {{.TIME_START}} and ending at {{.TIME_END}}.\nGuidelines:\n{{.GUIDELINES}}\nRespond like:\n{{.EXAMPLE_JSON}}"
	return config
}

// runChain executes the hermetic analysis core for a video of the given
// duration and returns the chain context for inspection.
func runChain(t *testing.T, backend commands.FindingSource, duration float64) cor.Context {
	t.Helper()
	chain, err := workflow.NewComplianceAnalysisChain(pipelineConfig(), backend)
	assert.NoError(t, err)

	ctx := cor.NewBaseContext()
	t.Cleanup(ctx.Close)
	ctx.SetContext(goctx.Background())
	ctx.Add(cor.CtxIn, &model.VideoInput{
		ID:       "run-0001",
		Kind:     model.SourceKindUpload,
		Title:    "feature_cut",
		Duration: duration,
	})
	ctx.Add(commands.GetGuidelineDocParameterName(), &commands.GuidelineDoc{
		Name: "guidelines.txt",
		Data: []byte(testGuideline),
	})

	chain.Execute(ctx)
	return ctx
}

func reportFrom(t *testing.T, ctx cor.Context) *model.Report {
	t.Helper()
	assert.False(t, ctx.HasErrors(), "chain errors: %v", ctx.GetErrors())
	report, ok := ctx.Get(commands.GetReportParameterName()).(*model.Report)
	assert.True(t, ok)
	return report
}

func TestPipelineFindingsAcrossSegments(t *testing.T) {
	backend := newScriptedBackend()
	backend.responses["00:00:00"] = `{
		"is_compliance_issues": true,
		"compliance_issues": [
			{"timecode": "00:00:30", "category": "violence", "description": "knife fight in an alley", "threshold": 3}
		],
		"content_summary": "A tense opening.",
		"speaking_language": "English"
	}`
	backend.responses["00:10:00"] = `{
		"is_compliance_issues": true,
		"compliance_issues": [
			{"timecode": "00:05:10", "category": "language", "description": "string of expletives", "threshold": 2}
		],
		"content_summary": "An argument escalates.",
		"speaking_language": "English"
	}`

	ctx := runChain(t, backend, 1200)
	report := reportFrom(t, ctx)

	assert.True(t, report.Complete)
	assert.Len(t, report.Findings, 2)
	// Second segment offsets are rebased onto the full timeline.
	assert.Equal(t, 30.0, report.Findings[0].Timecode)
	assert.Equal(t, model.CategoryViolence, report.Findings[0].Category)
	assert.Equal(t, 910.0, report.Findings[1].Timecode)
	assert.Equal(t, model.CategoryLanguage, report.Findings[1].Category)
	assert.Equal(t, 0, report.Findings[0].SequenceNumber)
	assert.Equal(t, 1, report.Findings[1].SequenceNumber)
	assert.Equal(t, model.RatingPG13, report.SuggestedRating)
	assert.Equal(t, []string{"English"}, report.Languages)
	assert.Len(t, report.Segments, 2)
}

func TestPipelineDedupAcrossSegmentBoundary(t *testing.T) {
	backend := newScriptedBackend()
	backend.responses["00:00:00"] = `{
		"is_compliance_issues": true,
		"compliance_issues": [
			{"timecode": "00:09:59", "category": "violence", "description": "shootout begins", "threshold": 2}
		]
	}`
	backend.responses["00:10:00"] = `{
		"is_compliance_issues": true,
		"compliance_issues": [
			{"timecode": "00:00:01", "category": "violence", "description": "shootout", "threshold": 4}
		]
	}`

	ctx := runChain(t, backend, 604)
	report := reportFrom(t, ctx)

	// The same event seen at the end of one segment and the start of the
	// next collapses into a single finding at the earlier timecode, keeping
	// the higher severity.
	assert.Len(t, report.Findings, 1)
	assert.Equal(t, 599.0, report.Findings[0].Timecode)
	assert.Equal(t, 4, report.Findings[0].Severity)
	// Severity 4 escalates violence past its base code.
	assert.Equal(t, model.RatingM18, report.SuggestedRating)
}

func TestPipelineNoFindings(t *testing.T) {
	ctx := runChain(t, newScriptedBackend(), 450)
	report := reportFrom(t, ctx)

	assert.True(t, report.Complete)
	assert.Empty(t, report.Findings)
	assert.Equal(t, model.RatingG, report.SuggestedRating)
	assert.NotEmpty(t, report.RatingRationale)
}

func TestPipelineDegradedSegmentDoesNotAbortRun(t *testing.T) {
	backend := newScriptedBackend()
	backend.failures["00:00:00"] = &googleapi.Error{Code: 503, Message: "backend overloaded"}
	backend.responses["00:10:00"] = `{
		"is_compliance_issues": true,
		"compliance_issues": [
			{"timecode": "00:02:00", "category": "nudity", "description": "explicit scene", "threshold": 3}
		]
	}`

	ctx := runChain(t, backend, 1200)
	report := reportFrom(t, ctx)

	assert.False(t, report.Complete)
	assert.Len(t, report.Findings, 1)
	assert.Equal(t, 720.0, report.Findings[0].Timecode)
	assert.True(t, report.Segments[0].Degraded)
	assert.NotEmpty(t, report.Segments[0].DegradedReason)
	assert.False(t, report.Segments[1].Degraded)
	// Nudity still rates at its base code even on an incomplete run.
	assert.Equal(t, model.RatingM18, report.SuggestedRating)
}

func TestPipelineGuidelineScaleLimitsRating(t *testing.T) {
	backend := newScriptedBackend()
	backend.responses["00:00:00"] = `{
		"is_compliance_issues": true,
		"compliance_issues": [
			{"timecode": "00:01:00", "category": "violence", "description": "graphic brawl", "threshold": 2}
		]
	}`

	chain, err := workflow.NewComplianceAnalysisChain(pipelineConfig(), backend)
	assert.NoError(t, err)

	ctx := cor.NewBaseContext()
	t.Cleanup(ctx.Close)
	ctx.SetContext(goctx.Background())
	ctx.Add(cor.CtxIn, &model.VideoInput{ID: "run-0002", Kind: model.SourceKindUpload, Duration: 300})
	// Only two codes appear, so they become the whole usable scale and the
	// base PG13 for violence snaps up to NC16.
	ctx.Add(commands.GetGuidelineDocParameterName(), &commands.GuidelineDoc{
		Name: "guidelines.txt",
		Data: []byte("Content is either G for general audiences or NC16 where violence appears."),
	})
	chain.Execute(ctx)

	report := reportFrom(t, ctx)
	assert.Equal(t, model.RatingNC16, report.SuggestedRating)
}

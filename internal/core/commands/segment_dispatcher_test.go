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
	"errors"
	"strings"
	"sync"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/cloud"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/compliance"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// scriptedSource replies to each segment with a canned response or error,
// keyed by the segment start timecode embedded in the prompt.
type scriptedSource struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	calls     map[string]int
	payloads  map[string]*genai.FileData
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{
		responses: make(map[string]string),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
		payloads:  make(map[string]*genai.FileData),
	}
}

func (s *scriptedSource) AnalyzeSegment(_ goctx.Context, prompt string, payload *genai.FileData) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, err := range s.failures {
		if strings.Contains(prompt, key) {
			s.calls[key]++
			s.payloads[key] = payload
			return "", err
		}
	}
	for key, response := range s.responses {
		if strings.Contains(prompt, key) {
			s.calls[key]++
			s.payloads[key] = payload
			return response, nil
		}
	}
	return `{"is_compliance_issues": false, "compliance_issues": []}`, nil
}

var dispatcherPrompt = template.Must(template.New("segment").Parse(
	"Analyze the window from {{.TIME_START}} to {{.TIME_END}} against:\n{{.GUIDELINES}}"))

func dispatcherContext(segments []*model.Segment) cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(goctx.Background())
	ctx.Add(cor.CtxIn, segments)
	ctx.Add(GetVideoInputParameterName(), &model.VideoInput{
		ID:       "vid-001",
		Kind:     model.SourceKindUpload,
		MIMEType: "video/mp4",
		Duration: 1200,
	})
	ctx.Add(GetGuidelineParameterName(), &model.GuidelineContext{
		RawText:     "No depictions of violence above a PG13 threshold.",
		RatingCodes: model.RatingScale,
	})
	return ctx
}

func twoSegments() []*model.Segment {
	return []*model.Segment{
		{Index: 0, Start: 0, End: 600, PayloadRef: "gs://bucket/vid-001/segment_000.mp4"},
		{Index: 1, Start: 600, End: 1200, PayloadRef: "gs://bucket/vid-001/segment_001.mp4"},
	}
}

func TestSegmentDispatcherCollectsOrderedResults(t *testing.T) {
	source := newScriptedSource()
	source.responses["00:00:00"] = `{
		"is_compliance_issues": true,
		"compliance_issues": [
			{"timecode": "00:00:30", "category": "Violence", "description": "brawl in a bar", "threshold": 3}
		],
		"content_summary": "Opening act.",
		"speaking_language": "English"
	}`
	source.responses["00:10:00"] = `{
		"is_compliance_issues": true,
		"compliance_issues": [
			{"timecode": "00:01:10", "category": "Coarse Language", "description": "repeated expletives", "threshold": 2}
		],
		"content_summary": "Closing act.",
		"speaking_language": "English"
	}`

	dispatcher := NewSegmentDispatcher("test-dispatcher", source, dispatcherPrompt, 4, 1)
	ctx := dispatcherContext(twoSegments())
	assert.True(t, dispatcher.IsExecutable(ctx))
	dispatcher.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	results := ctx.Get(GetSegmentResultsParameterName()).([]*model.SegmentResult)
	assert.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, 1, results[1].Index)

	assert.Len(t, results[0].Findings, 1)
	assert.Equal(t, model.CategoryViolence, results[0].Findings[0].Category)
	assert.Equal(t, 30.0, results[0].Findings[0].Timecode)
	assert.Equal(t, 3, results[0].Findings[0].Severity)

	assert.Len(t, results[1].Findings, 1)
	assert.Equal(t, model.CategoryLanguage, results[1].Findings[0].Category)
	assert.Equal(t, 70.0, results[1].Findings[0].Timecode)

	// Each segment's media reference reaches the backend as file data.
	assert.Equal(t, "gs://bucket/vid-001/segment_000.mp4", source.payloads["00:00:00"].FileURI)
	assert.Equal(t, "gs://bucket/vid-001/segment_001.mp4", source.payloads["00:10:00"].FileURI)
	assert.Equal(t, "video/mp4", source.payloads["00:00:00"].MIMEType)
}

func TestSegmentDispatcherDegradesOnExhaustedRetries(t *testing.T) {
	source := newScriptedSource()
	source.failures["00:00:00"] = &googleapi.Error{Code: 503, Message: "backend overloaded"}

	dispatcher := NewSegmentDispatcher("test-dispatcher", source, dispatcherPrompt, 2, 1)
	ctx := dispatcherContext(twoSegments())
	dispatcher.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	results := ctx.Get(GetSegmentResultsParameterName()).([]*model.SegmentResult)
	assert.Len(t, results, 2)
	assert.True(t, results[0].Degraded)
	assert.Empty(t, results[0].Findings)
	assert.NotEmpty(t, results[0].DegradedReason)
	assert.False(t, results[1].Degraded)
	// One initial attempt plus one retry.
	assert.Equal(t, 2, source.calls["00:00:00"])
}

func TestSegmentDispatcherDegradesOnBlockedContent(t *testing.T) {
	source := newScriptedSource()
	source.failures["00:10:00"] = cloud.ErrContentBlocked

	dispatcher := NewSegmentDispatcher("test-dispatcher", source, dispatcherPrompt, 2, 1)
	ctx := dispatcherContext(twoSegments())
	dispatcher.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	results := ctx.Get(GetSegmentResultsParameterName()).([]*model.SegmentResult)
	assert.True(t, results[1].Degraded)
	// A safety refusal must not be retried.
	assert.Equal(t, 1, source.calls["00:10:00"])
}

func TestSegmentDispatcherDegradesOnUnparsableResponse(t *testing.T) {
	source := newScriptedSource()
	source.responses["00:00:00"] = "the model rambled instead of answering"

	dispatcher := NewSegmentDispatcher("test-dispatcher", source, dispatcherPrompt, 1, 1)
	ctx := dispatcherContext(twoSegments()[:1])
	dispatcher.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	results := ctx.Get(GetSegmentResultsParameterName()).([]*model.SegmentResult)
	assert.True(t, results[0].Degraded)
	assert.Equal(t, 2, source.calls["00:00:00"])
}

func TestSegmentDispatcherFatalOnNonRetryableError(t *testing.T) {
	source := newScriptedSource()
	source.failures["00:10:00"] = errors.New("invalid argument: unsupported payload")

	dispatcher := NewSegmentDispatcher("test-dispatcher", source, dispatcherPrompt, 2, 1)
	ctx := dispatcherContext(twoSegments())
	dispatcher.Execute(ctx)

	assert.True(t, ctx.HasErrors())
	var backendErr *compliance.BackendError
	for _, err := range ctx.GetErrors() {
		assert.True(t, errors.As(err, &backendErr))
	}
	assert.Equal(t, 1, backendErr.SegmentIndex)
	assert.Nil(t, ctx.Get(GetSegmentResultsParameterName()))
}

func TestParseSegmentReportNormalizes(t *testing.T) {
	segment := &model.Segment{Index: 2, Start: 1200, End: 1800}
	raw := `{
		"is_compliance_issues": true,
		"compliance_issues": [
			{"timecode": "garbage", "category": "Drug and Substance Abuse", "description": "pill use", "threshold": 9},
			{"timecode": "00:02:00", "category": "mystery", "description": "unclassifiable", "threshold": -3}
		],
		"content_summary": "Third window.",
		"final_suggestion": "Trim the pill scene.",
		"speaking_language": "Mandarin"
	}`

	result, err := parseSegmentReport(segment, raw)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Index)
	assert.Equal(t, "Third window.", result.Summary)
	assert.Equal(t, "Trim the pill scene.", result.FinalSuggestion)
	assert.Equal(t, "Mandarin", result.Language)

	assert.Len(t, result.Findings, 2)
	// An unreadable timecode pins the finding to the segment start.
	assert.Equal(t, 0.0, result.Findings[0].Timecode)
	assert.Equal(t, model.CategoryDrugUse, result.Findings[0].Category)
	assert.Equal(t, 5, result.Findings[0].Severity)
	assert.Equal(t, model.CategoryOther, result.Findings[1].Category)
	assert.Equal(t, 0, result.Findings[1].Severity)
}

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

// This file defines the segment dispatcher, the performance-critical command
// of the pipeline. It fans the segment plan out over a bounded worker pool,
// each worker submitting one segment at a time to the inference backend.
//
// Failure policy per segment:
//   - Transient backend errors (quota, timeouts, 5xx) are retried with
//     exponential backoff up to a bounded number of attempts. A segment that
//     exhausts its retries is marked degraded and the run continues.
//   - A response the safety filter refuses, or one whose JSON never parses,
//     also degrades the segment.
//   - Any other backend error is fatal and aborts the run, identified by
//     the failing segment index.
//   - Cancellation of the run context stops all in-flight work.
package commands

import (
	"bytes"
	goctx "context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"text/template"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/cloud"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/compliance"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// DefaultMaxRetries bounds the retry budget per segment when the
// configuration does not override it.
const DefaultMaxRetries = 3

// initialBackoff seeds the exponential backoff between retry attempts.
const initialBackoff = 500 * time.Millisecond

// errUnparsableResponse marks a model response that could not be decoded
// into a segment report.
var errUnparsableResponse = errors.New("unparsable model response")

// SegmentDispatcher is a command that analyzes every segment of the plan
// concurrently against the inference backend.
type SegmentDispatcher struct {
	cor.BaseCommand
	source          FindingSource
	promptTemplate  *template.Template
	numberOfWorkers int
	maxRetries      int
	retryCounter    metric.Int64Counter
	degradeCounter  metric.Int64Counter
}

// NewSegmentDispatcher is the constructor for the SegmentDispatcher command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - source: The inference backend for segment analysis.
//   - prompt: The parsed Go template for the per-segment prompt.
//   - numberOfWorkers: The size of the worker pool. Values below one mean a
//     single worker.
//   - maxRetries: The per-segment retry budget for transient errors.
//
// Outputs:
//   - *SegmentDispatcher: A pointer to the newly instantiated command.
func NewSegmentDispatcher(
	name string,
	source FindingSource,
	prompt *template.Template,
	numberOfWorkers int,
	maxRetries int) *SegmentDispatcher {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	out := &SegmentDispatcher{
		BaseCommand:     *cor.NewBaseCommand(name),
		source:          source,
		promptTemplate:  prompt,
		numberOfWorkers: numberOfWorkers,
		maxRetries:      maxRetries,
	}
	out.retryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.retry", out.GetName()))
	out.degradeCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.degraded", out.GetName()))
	return out
}

// IsExecutable requires the segment plan, the video, and the parsed
// guideline to all be present.
func (s *SegmentDispatcher) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(s.GetInputParam()) != nil &&
		context.Get(GetVideoInputParameterName()) != nil &&
		context.Get(GetGuidelineParameterName()) != nil
}

// segmentJob carries everything one worker needs to analyze one segment.
type segmentJob struct {
	segment *model.Segment
	prompt  string
	payload *genai.FileData
	ctx     goctx.Context
	span    trace.Span
	err     error
}

// segmentResponse is what a worker reports back: either a segment result
// (possibly degraded) or a fatal error that must abort the run.
type segmentResponse struct {
	result *model.SegmentResult
	fatal  error
}

// Execute fans the segment plan out over the worker pool and collects the
// per-segment results in deterministic order.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *SegmentDispatcher) Execute(context cor.Context) {
	segments := context.Get(s.GetInputParam()).([]*model.Segment)
	video := context.Get(GetVideoInputParameterName()).(*model.VideoInput)
	gctx := context.Get(GetGuidelineParameterName()).(*model.GuidelineContext)

	example, _ := json.Marshal(model.GetExampleSegmentReport())

	var wg sync.WaitGroup
	jobs := make(chan *segmentJob, len(segments))
	results := make(chan *segmentResponse, len(segments))

	for w := 0; w < s.numberOfWorkers; w++ {
		wg.Add(1)
		go s.segmentWorker(jobs, results, &wg)
	}

	for _, segment := range segments {
		jobs <- s.createJob(context.GetContext(), segment, video, gctx, string(example))
	}
	close(jobs)

	wg.Wait()
	close(results)

	collected := make([]*model.SegmentResult, 0, len(segments))
	var fatal error
	for r := range results {
		if r.fatal != nil {
			// Keep the first fatal error by segment index so reruns report
			// the same failure.
			var current, incoming *compliance.BackendError
			if fatal == nil || (errors.As(r.fatal, &incoming) && errors.As(fatal, &current) && incoming.SegmentIndex < current.SegmentIndex) {
				fatal = r.fatal
			}
			continue
		}
		collected = append(collected, r.result)
	}
	if fatal != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fatal)
		return
	}

	sort.SliceStable(collected, func(i, j int) bool { return collected[i].Index < collected[j].Index })
	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetSegmentResultsParameterName(), collected)
	context.Add(s.GetOutputParam(), collected)
}

// createJob renders the segment prompt and opens a span for the analysis.
func (s *SegmentDispatcher) createJob(ctx goctx.Context, segment *model.Segment, video *model.VideoInput, gctx *model.GuidelineContext, exampleText string) *segmentJob {
	segmentCtx, span := s.Tracer.Start(ctx, fmt.Sprintf("%s_segment_%d", s.GetName(), segment.Index))
	span.SetAttributes(
		attribute.Int("segment", segment.Index),
		attribute.Float64("start", segment.Start),
		attribute.Float64("end", segment.End),
	)

	vocabulary := map[string]string{
		"GUIDELINES":      gctx.RawText,
		"SEGMENT_INDEX":   fmt.Sprintf("%d", segment.Index+1),
		"TIME_START":      model.FormatTimecode(segment.Start),
		"TIME_END":        model.FormatTimecode(segment.End),
		"SEGMENT_SECONDS": fmt.Sprintf("%.0f", segment.Duration()),
		"EXAMPLE_JSON":    exampleText,
	}

	var doc bytes.Buffer
	if err := s.promptTemplate.Execute(&doc, vocabulary); err != nil {
		return &segmentJob{segment: segment, ctx: segmentCtx, span: span, err: err}
	}

	fileData := cloud.NewFileData(segment.PayloadRef, "video/mp4")
	if segment.PayloadRef == video.GCSUri && video.MIMEType != "" {
		fileData.MIMEType = video.MIMEType
	}
	payload := &fileData

	return &segmentJob{
		segment: segment,
		prompt:  doc.String(),
		payload: payload,
		ctx:     segmentCtx,
		span:    span,
	}
}

// segmentWorker drains the jobs channel, analyzing one segment at a time.
func (s *SegmentDispatcher) segmentWorker(jobs <-chan *segmentJob, results chan<- *segmentResponse, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		if j.err != nil {
			j.span.SetStatus(codes.Error, "failed to build segment prompt")
			j.span.End()
			results <- &segmentResponse{fatal: &compliance.BackendError{SegmentIndex: j.segment.Index, Err: j.err}}
			continue
		}
		results <- s.analyze(j)
	}
}

// analyze runs one segment with the bounded retry policy and classifies the
// outcome.
func (s *SegmentDispatcher) analyze(j *segmentJob) *segmentResponse {
	var parsed *model.SegmentResult

	backoff := retry.WithMaxRetries(uint64(s.maxRetries), retry.NewExponential(initialBackoff))
	err := retry.Do(j.ctx, backoff, func(ctx goctx.Context) error {
		raw, err := s.source.AnalyzeSegment(ctx, j.prompt, j.payload)
		if err != nil {
			if errors.Is(err, cloud.ErrContentBlocked) {
				return err
			}
			if isTransient(err) {
				s.retryCounter.Add(ctx, 1)
				return retry.RetryableError(err)
			}
			return err
		}

		result, perr := parseSegmentReport(j.segment, raw)
		if perr != nil {
			// A malformed response is model flakiness, worth another try.
			s.retryCounter.Add(ctx, 1)
			return retry.RetryableError(fmt.Errorf("%w: %v", errUnparsableResponse, perr))
		}
		parsed = result
		return nil
	})

	switch {
	case err == nil:
		j.span.SetStatus(codes.Ok, "segment analyzed")
		j.span.End()
		return &segmentResponse{result: parsed}

	case j.ctx.Err() != nil:
		j.span.SetStatus(codes.Error, "segment analysis cancelled")
		j.span.End()
		return &segmentResponse{fatal: j.ctx.Err()}

	case errors.Is(err, cloud.ErrContentBlocked),
		errors.Is(err, errUnparsableResponse),
		isTransient(err):
		// The segment is abandoned but the run continues; the report will
		// disclose the gap.
		j.span.SetStatus(codes.Error, "segment degraded")
		j.span.End()
		s.degradeCounter.Add(j.ctx, 1)
		return &segmentResponse{result: &model.SegmentResult{
			Index:          j.segment.Index,
			Findings:       []*model.Finding{},
			Degraded:       true,
			DegradedReason: err.Error(),
		}}

	default:
		j.span.SetStatus(codes.Error, "segment analysis failed")
		j.span.End()
		return &segmentResponse{fatal: &compliance.BackendError{SegmentIndex: j.segment.Index, Err: err}}
	}
}

// isTransient reports whether a backend error is worth retrying: quota
// exhaustion, request timeouts, and server-side failures.
func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return retryableStatus(gErr.Code)
	}
	return errors.Is(err, goctx.DeadlineExceeded)
}

func retryableStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// parseSegmentReport decodes the model's JSON document into a typed segment
// result with normalized categories and numeric, segment-relative timecodes.
func parseSegmentReport(segment *model.Segment, raw string) (*model.SegmentResult, error) {
	var report model.SegmentReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, err
	}

	result := &model.SegmentResult{
		Index:           segment.Index,
		Findings:        make([]*model.Finding, 0, len(report.ComplianceIssues)),
		Summary:         report.ContentSummary,
		FinalSuggestion: report.FinalSuggestion,
		Language:        report.SpeakingLanguage,
	}
	for _, issue := range report.ComplianceIssues {
		offset, err := model.ParseTimecode(issue.Timecode)
		if err != nil {
			// A garbled timecode does not discard the observation; it is
			// pinned to the segment start instead.
			offset = 0
		}
		severity := issue.Threshold
		if severity < 0 {
			severity = 0
		}
		if severity > 5 {
			severity = 5
		}
		result.Findings = append(result.Findings, &model.Finding{
			Timecode:    offset,
			Category:    model.NormalizeCategory(issue.Category),
			Description: issue.Description,
			Severity:    severity,
		})
	}
	return result, nil
}

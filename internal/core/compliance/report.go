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

package compliance

import (
	"sort"
	"strings"
	"time"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// BuildReport assembles the final compliance report from the aggregated
// findings, the inferred rating, and the per-segment diagnostics. The
// Complete flag is false when any segment was degraded.
//
// Inputs:
//   - video: the resolved video under analysis.
//   - segments: the segment plan.
//   - results: the per-segment inference results.
//   - findings: the aggregated findings, already deduplicated and sorted.
//   - rating: the suggested rating and its rationale.
//
// Outputs:
//   - *model.Report: the assembled report.
func BuildReport(video *model.VideoInput, segments []*model.Segment, results []*model.SegmentResult,
	findings []*model.Finding, rating model.RatingCode, rationale string) *model.Report {

	report := &model.Report{
		ID:              video.ID,
		VideoTitle:      video.Title,
		VideoURL:        videoURL(video),
		DurationSeconds: video.Duration,
		Findings:        findings,
		SuggestedRating: rating,
		RatingRationale: rationale,
		Languages:       describeLanguages(results),
		Segments:        make([]*model.SegmentDiagnostic, 0, len(segments)),
		Complete:        true,
		CreatedAt:       time.Now().UTC(),
	}

	byIndex := make(map[int]*model.SegmentResult, len(results))
	ordered := make([]*model.SegmentResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	for _, r := range ordered {
		byIndex[r.Index] = r
	}

	summaries := make([]string, 0)
	for _, s := range segments {
		diag := &model.SegmentDiagnostic{Index: s.Index, Start: s.Start, End: s.End}
		if r, ok := byIndex[s.Index]; ok {
			diag.Degraded = r.Degraded
			diag.DegradedReason = r.DegradedReason
			if r.Degraded {
				report.Complete = false
			}
			if sum := strings.TrimSpace(r.Summary); sum != "" {
				summaries = append(summaries, sum)
			}
			// The last segment's suggestion covers the whole video the
			// model has seen so far, so it supersedes earlier ones.
			if sug := strings.TrimSpace(r.FinalSuggestion); sug != "" {
				report.FinalSuggestion = sug
			}
		}
		report.Segments = append(report.Segments, diag)
	}

	report.ContentSummary = strings.Join(summaries, " ")
	return report
}

// videoURL picks the most useful reference to publish in the report: the
// persisted GCS copy when one exists, otherwise the original reference.
func videoURL(video *model.VideoInput) string {
	if video.GCSUri != "" {
		return video.GCSUri
	}
	return video.Reference
}

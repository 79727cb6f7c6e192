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
	"log/slog"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/compliance"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// ReportAssembly is the command that runs the deterministic tail of the
// pipeline: aggregate the per-segment findings onto the video timeline,
// infer the suggested rating against the guideline scale, and assemble the
// final report.
type ReportAssembly struct {
	cor.BaseCommand
	aggregator *compliance.Aggregator
}

// NewReportAssembly is the constructor for the ReportAssembly command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - dedupWindowSeconds: The window within which same-category findings
//     merge. Non-positive values fall back to the package default.
func NewReportAssembly(name string, dedupWindowSeconds float64) *ReportAssembly {
	return &ReportAssembly{
		BaseCommand: *cor.NewBaseCommand(name),
		aggregator:  compliance.NewAggregator(dedupWindowSeconds),
	}
}

// IsExecutable requires segment results, the video, and the guideline.
func (c *ReportAssembly) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(c.GetInputParam()) != nil &&
		context.Get(GetVideoInputParameterName()) != nil &&
		context.Get(GetSegmentPlanParameterName()) != nil &&
		context.Get(GetGuidelineParameterName()) != nil
}

// Execute produces the final report and publishes it for persistence.
func (c *ReportAssembly) Execute(context cor.Context) {
	results := context.Get(c.GetInputParam()).([]*model.SegmentResult)
	video := context.Get(GetVideoInputParameterName()).(*model.VideoInput)
	segments := context.Get(GetSegmentPlanParameterName()).([]*model.Segment)
	gctx := context.Get(GetGuidelineParameterName()).(*model.GuidelineContext)

	findings := c.aggregator.Aggregate(segments, results, video.Duration)

	rating, rationale, err := compliance.InferRating(findings, gctx)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	report := compliance.BuildReport(video, segments, results, findings, rating, rationale)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.Info("report assembled",
		"report_id", report.ID,
		"findings", len(report.Findings),
		"rating", report.SuggestedRating,
		"complete", report.Complete)
	context.Add(GetReportParameterName(), report)
	context.Add(c.GetOutputParam(), report)
}

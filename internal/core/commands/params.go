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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface for the compliance
// analysis pipeline. This file defines the well-known context parameter
// keys the commands use to share state beyond the default in/out piping.
package commands

// GetVideoInputParameterName returns the context key holding the resolved
// *model.VideoInput for the run.
func GetVideoInputParameterName() string {
	return "__VIDEO_INPUT__"
}

// GetGuidelineDocParameterName returns the context key holding the raw
// guideline document (*GuidelineDoc) supplied with the request.
func GetGuidelineDocParameterName() string {
	return "__GUIDELINE_DOC__"
}

// GetGuidelineParameterName returns the context key holding the parsed
// *model.GuidelineContext.
func GetGuidelineParameterName() string {
	return "__GUIDELINE__"
}

// GetSegmentPlanParameterName returns the context key holding the
// []*model.Segment plan for the video.
func GetSegmentPlanParameterName() string {
	return "__SEGMENT_PLAN__"
}

// GetSegmentResultsParameterName returns the context key holding the
// []*model.SegmentResult produced by the dispatcher.
func GetSegmentResultsParameterName() string {
	return "__SEGMENT_RESULTS__"
}

// GetReportParameterName returns the context key holding the assembled
// *model.Report.
func GetReportParameterName() string {
	return "__REPORT__"
}

// GuidelineDoc carries a raw guideline document through the context until
// the loader parses it.
type GuidelineDoc struct {
	Name string
	Data []byte
}

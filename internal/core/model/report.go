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

// This file, `report.go`, defines the persistent output of the pipeline: the
// compliance report. Reports are written to BigQuery and to GCS as JSON
// documents, so every field carries both tags.
package model

import "time"

// SegmentDiagnostic records how a single segment fared during inference. The
// report keeps one entry per segment so that a degraded analysis is visible
// to the reader rather than silently thinner.
type SegmentDiagnostic struct {
	Index          int     `json:"index" bigquery:"index"`
	Start          float64 `json:"start" bigquery:"start"`
	End            float64 `json:"end" bigquery:"end"`
	Degraded       bool    `json:"degraded" bigquery:"degraded"`
	DegradedReason string  `json:"degraded_reason,omitempty" bigquery:"degraded_reason"`
}

// SegmentReport is the JSON document the generative model is instructed to
// return for a single segment. It is the wire schema only; the dispatcher
// converts it into a SegmentResult with typed findings.
type SegmentReport struct {
	IsComplianceIssues bool               `json:"is_compliance_issues"`
	ComplianceIssues   []*ComplianceIssue `json:"compliance_issues"`
	FinalSuggestion    string             `json:"final_suggestion,omitempty"`
	ContentSummary     string             `json:"content_summary,omitempty"`
	SpeakingLanguage   string             `json:"speaking_language,omitempty"`
}

// ComplianceIssue is one issue inside a SegmentReport, exactly as the model
// emits it. Timecode is a segment-relative "HH:MM:SS" or "MM:SS" string and
// Threshold is the 1 to 5 severity score.
type ComplianceIssue struct {
	Timecode    string `json:"timecode"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Threshold   int    `json:"threshold"`
}

// Report is the final compliance report for one analysis run. Findings carry
// absolute timecodes and are ordered by timecode, then category.
type Report struct {
	ID              string               `json:"id" bigquery:"id"`
	VideoTitle      string               `json:"video_title" bigquery:"video_title"`
	VideoURL        string               `json:"video_url" bigquery:"video_url"`
	DurationSeconds float64              `json:"duration_seconds" bigquery:"duration_seconds"`
	Findings        []*Finding           `json:"findings" bigquery:"findings"`
	SuggestedRating RatingCode           `json:"suggested_rating" bigquery:"suggested_rating"`
	RatingRationale string               `json:"rating_rationale" bigquery:"rating_rationale"`
	FinalSuggestion string               `json:"final_suggestion,omitempty" bigquery:"final_suggestion"`
	ContentSummary  string               `json:"content_summary,omitempty" bigquery:"content_summary"`
	Languages       []string             `json:"languages,omitempty" bigquery:"languages"`
	Segments        []*SegmentDiagnostic `json:"segments" bigquery:"segments"`
	// Complete is false when one or more segments were degraded, signalling
	// that the findings list may be missing observations for those spans.
	Complete  bool      `json:"complete" bigquery:"complete"`
	CreatedAt time.Time `json:"created_at" bigquery:"created_at"`
}

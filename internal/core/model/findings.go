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

// This file, `findings.go`, contains the transient structures that flow
// between the commands of the compliance analysis chain: the resolved video,
// its segment plan, the per-segment inference results, and the individual
// compliance findings those results carry. None of these are persisted
// directly; the assembled Report in `report.go` is the durable artifact.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Category identifies the content concern a compliance finding belongs to.
// The values mirror the classification categories used in the IMDA content
// guidelines.
type Category string

const (
	CategoryTheme    Category = "theme"
	CategoryViolence Category = "violence"
	CategorySex      Category = "sex"
	CategoryNudity   Category = "nudity"
	CategoryLanguage Category = "language"
	CategoryDrugUse  Category = "drug_use"
	CategoryHorror   Category = "horror"
	// CategoryOther is the bucket for model output that does not map to a
	// known category. Findings are never dropped for having an unknown
	// category, they are normalized into this one.
	CategoryOther Category = "other"
)

// categoryAliases maps the spellings the generative model tends to produce
// (and the headings used in the guideline documents) to canonical categories.
var categoryAliases = map[string]Category{
	"theme":                    CategoryTheme,
	"themes":                   CategoryTheme,
	"violence":                 CategoryViolence,
	"sex":                      CategorySex,
	"sexual content":           CategorySex,
	"nudity":                   CategoryNudity,
	"language":                 CategoryLanguage,
	"coarse language":          CategoryLanguage,
	"drug_use":                 CategoryDrugUse,
	"drug use":                 CategoryDrugUse,
	"drugs":                    CategoryDrugUse,
	"drug and substance abuse": CategoryDrugUse,
	"substance abuse":          CategoryDrugUse,
	"horror":                   CategoryHorror,
	"other":                    CategoryOther,
}

// NormalizeCategory maps a free-form category string from the inference
// backend to a canonical Category. Unrecognized values become CategoryOther
// so that no finding is ever discarded on account of category drift.
func NormalizeCategory(s string) Category {
	key := strings.ToLower(strings.TrimSpace(s))
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	return CategoryOther
}

// Finding is a single compliance observation within a video. Timecode is in
// seconds. Inside a SegmentResult the timecode is relative to the segment
// start; the aggregator rebases it onto the full video timeline.
type Finding struct {
	Timecode    float64  `json:"timecode" bigquery:"timecode"`
	Category    Category `json:"category" bigquery:"category"`
	Description string   `json:"description" bigquery:"description"`
	// Severity is the 1 to 5 threshold score the model assigns to the
	// observation. Zero means the model did not report one.
	Severity int `json:"severity,omitempty" bigquery:"severity"`
	// SequenceNumber is assigned by the aggregator in segment order and is
	// used as the deterministic tiebreaker for first-seen ordering.
	SequenceNumber int `json:"sequence_number" bigquery:"sequence_number"`
}

// SourceKind tells the resolver how to interpret the reference it was given.
type SourceKind string

const (
	SourceKindURL    SourceKind = "url"
	SourceKindUpload SourceKind = "upload"
)

// VideoInput is the fully resolved description of the video under analysis,
// produced by the source resolver before any segmentation happens.
type VideoInput struct {
	ID        string     `json:"id"`         // Unique identifier for this analysis run.
	Kind      SourceKind `json:"kind"`       // How the video reached us.
	Reference string     `json:"reference"`  // The original URL or upload file name.
	LocalPath string     `json:"local_path"` // Path of the working copy on local disk.
	GCSUri    string     `json:"gcs_uri"`    // gs:// URI of the persisted copy, set after upload.
	Title     string     `json:"title"`
	Format    string     `json:"format"`   // Container format as reported by ffprobe.
	MIMEType  string     `json:"mime_type"`
	Duration  float64    `json:"duration"` // Total duration in seconds.
}

// Segment is one contiguous slice of the segmentation plan. Start is
// inclusive and End exclusive except for the final segment, which ends
// exactly at the video duration.
type Segment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	// PayloadRef points at the media the inference backend should analyze
	// for this segment, typically a gs:// URI of the extracted chunk.
	PayloadRef string `json:"payload_ref,omitempty"`
}

// Duration returns the length of the segment in seconds.
func (s *Segment) Duration() float64 { return s.End - s.Start }

// SegmentResult is the outcome of analyzing a single segment. Findings carry
// segment-relative timecodes at this stage.
type SegmentResult struct {
	Index    int        `json:"index"`
	Findings []*Finding `json:"findings"`
	// Degraded marks a segment whose analysis was abandoned after bounded
	// retries. The pipeline continues; the report discloses the gap.
	Degraded        bool   `json:"degraded"`
	DegradedReason  string `json:"degraded_reason,omitempty"`
	Summary         string `json:"summary,omitempty"`
	FinalSuggestion string `json:"final_suggestion,omitempty"`
	Language        string `json:"language,omitempty"`
}

// GuidelineContext is the parsed form of a guideline document: the full
// extracted text used to ground the inference prompt, plus the rating scale
// the document defines.
type GuidelineContext struct {
	RawText string
	// RatingCodes is the classification scale in ascending order of
	// restrictiveness.
	RatingCodes []RatingCode
}

// ParseTimecode converts a timecode string from the inference backend into
// seconds. It accepts "HH:MM:SS", "MM:SS", and bare seconds, which covers
// every form the model has been observed to emit.
//
// Inputs:
//   - s: the timecode string, e.g. "00:04:10" or "04:10".
//
// Outputs:
//   - float64: the offset in seconds.
//   - error: non-nil when the string is not a recognizable timecode.
func ParseTimecode(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timecode %q", s)
	}
	total := 0.0
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timecode %q", s)
		}
		total = total*60 + v
	}
	return total, nil
}

// FormatTimecode renders an offset in seconds as "HH:MM:SS" for reports and
// log lines. Fractional seconds are truncated.
func FormatTimecode(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	t := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", t/3600, (t%3600)/60, t%60)
}

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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

func fullScale() *model.GuidelineContext {
	return &model.GuidelineContext{
		RawText:     "guideline text",
		RatingCodes: model.RatingScale,
	}
}

// TestInferRatingNoFindings verifies that a clean video gets the least
// restrictive rating on the scale.
func TestInferRatingNoFindings(t *testing.T) {
	rating, rationale, err := InferRating(nil, fullScale())
	assert.NoError(t, err)
	assert.Equal(t, model.RatingG, rating)
	assert.NotEmpty(t, rationale)
}

// TestInferRatingMostRestrictiveWins verifies that the rating is driven by
// the single most restrictive finding, not an average.
func TestInferRatingMostRestrictiveWins(t *testing.T) {
	findings := []*model.Finding{
		{Timecode: 10, Category: model.CategoryLanguage, Description: "coarse language", Severity: 2},
		{Timecode: 90, Category: model.CategorySex, Description: "explicit scene", Severity: 3},
		{Timecode: 200, Category: model.CategoryTheme, Description: "mature theme", Severity: 1},
	}
	rating, rationale, err := InferRating(findings, fullScale())
	assert.NoError(t, err)
	assert.Equal(t, model.RatingNC16, rating)
	assert.Contains(t, rationale, "sex")
	assert.Contains(t, rationale, "00:01:30")
}

// TestInferRatingSeverityEscalation verifies that a finding at or above the
// escalation threshold maps to its category's escalated rating.
func TestInferRatingSeverityEscalation(t *testing.T) {
	base := []*model.Finding{{Timecode: 5, Category: model.CategoryViolence, Description: "scuffle", Severity: 2}}
	rating, _, err := InferRating(base, fullScale())
	assert.NoError(t, err)
	assert.Equal(t, model.RatingPG13, rating)

	escalated := []*model.Finding{{Timecode: 5, Category: model.CategoryViolence, Description: "graphic violence", Severity: 5}}
	rating, _, err = InferRating(escalated, fullScale())
	assert.NoError(t, err)
	assert.Equal(t, model.RatingM18, rating)
}

// TestInferRatingAbsentSeverityUsesBase verifies that a finding with no
// severity score maps to the category's base rating.
func TestInferRatingAbsentSeverityUsesBase(t *testing.T) {
	findings := []*model.Finding{{Timecode: 5, Category: model.CategoryNudity, Description: "scene"}}
	rating, _, err := InferRating(findings, fullScale())
	assert.NoError(t, err)
	assert.Equal(t, model.RatingM18, rating)
}

// TestInferRatingSnapsToPartialScale verifies that when the guideline scale
// lacks the exact implied code, the next more restrictive code on the scale
// is chosen.
func TestInferRatingSnapsToPartialScale(t *testing.T) {
	gctx := &model.GuidelineContext{RatingCodes: []model.RatingCode{model.RatingG, model.RatingNC16, model.RatingR21}}
	findings := []*model.Finding{{Timecode: 5, Category: model.CategoryViolence, Description: "fight", Severity: 2}}
	rating, _, err := InferRating(findings, gctx)
	assert.NoError(t, err)
	// Violence implies PG13, which is absent, so NC16 is the snap target.
	assert.Equal(t, model.RatingNC16, rating)
}

// TestInferRatingNoScale verifies the sentinel error for a missing or
// invalid rating scale.
func TestInferRatingNoScale(t *testing.T) {
	_, _, err := InferRating(nil, nil)
	assert.True(t, errors.Is(err, ErrNoRatingScale))

	_, _, err = InferRating(nil, &model.GuidelineContext{RatingCodes: []model.RatingCode{"XX"}})
	assert.True(t, errors.Is(err, ErrNoRatingScale))
}

// TestInferRatingUnknownCategory verifies that findings in the fallback
// category still contribute to the rating.
func TestInferRatingUnknownCategory(t *testing.T) {
	findings := []*model.Finding{{Timecode: 5, Category: model.CategoryOther, Description: "unclassified concern", Severity: 5}}
	rating, _, err := InferRating(findings, fullScale())
	assert.NoError(t, err)
	assert.Equal(t, model.RatingPG13, rating)
}

// TestBuildReportDegradedFlag verifies that a degraded segment flips the
// report's Complete flag and is disclosed in the segment diagnostics.
func TestBuildReportDegradedFlag(t *testing.T) {
	video := &model.VideoInput{ID: "run-1", Title: "sample", Reference: "https://example.com/v.mp4", Duration: 600}
	segments := twoSegmentPlan()
	results := []*model.SegmentResult{
		{Index: 0, Summary: "first half summary.", Language: "English"},
		{Index: 1, Degraded: true, DegradedReason: "retries exhausted", Language: "english"},
	}

	report := BuildReport(video, segments, results, nil, model.RatingG, "clean")
	assert.False(t, report.Complete)
	assert.Len(t, report.Segments, 2)
	assert.True(t, report.Segments[1].Degraded)
	assert.Equal(t, "retries exhausted", report.Segments[1].DegradedReason)
	// Languages are distinct, case-insensitively.
	assert.Equal(t, []string{"English"}, report.Languages)
	assert.Equal(t, "first half summary.", report.ContentSummary)
	assert.Equal(t, "https://example.com/v.mp4", report.VideoURL)
}

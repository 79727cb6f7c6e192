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
	"fmt"
	"sort"
	"strings"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// EscalationSeverity is the threshold score at or above which a finding maps
// to its category's escalated rating instead of the base one.
const EscalationSeverity = 4

// categoryRatings gives, per category, the classification a finding implies:
// Base for ordinary observations and Escalated for findings whose severity
// reaches EscalationSeverity. The mapping follows the category treatment in
// the IMDA classification guidelines.
var categoryRatings = map[model.Category]struct {
	Base      model.RatingCode
	Escalated model.RatingCode
}{
	model.CategoryTheme:    {model.RatingPG, model.RatingNC16},
	model.CategoryViolence: {model.RatingPG13, model.RatingM18},
	model.CategorySex:      {model.RatingNC16, model.RatingR21},
	model.CategoryNudity:   {model.RatingM18, model.RatingR21},
	model.CategoryLanguage: {model.RatingPG13, model.RatingNC16},
	model.CategoryDrugUse:  {model.RatingNC16, model.RatingM18},
	model.CategoryHorror:   {model.RatingPG13, model.RatingNC16},
	model.CategoryOther:    {model.RatingPG, model.RatingPG13},
}

// InferRating maps the aggregated findings to a single suggested rating on
// the guideline's scale. The result is the most restrictive rating implied
// by any finding, snapped onto the scale the guideline defines. A video with
// no findings gets the least restrictive rating on the scale.
//
// Inputs:
//   - findings: the aggregated findings with absolute timecodes.
//   - gctx: the parsed guideline, supplying the rating scale.
//
// Outputs:
//   - model.RatingCode: the suggested rating.
//   - string: a deterministic, human-readable rationale.
//   - error: ErrNoRatingScale when the guideline scale is empty or contains
//     no valid codes.
func InferRating(findings []*model.Finding, gctx *model.GuidelineContext) (model.RatingCode, string, error) {
	scale, err := validScale(gctx)
	if err != nil {
		return "", "", err
	}

	if len(findings) == 0 {
		return scale[0], fmt.Sprintf("No compliance findings. Rated %s, the least restrictive classification on the scale.", scale[0]), nil
	}

	suggested := scale[0]
	var driver *model.Finding
	for _, f := range findings {
		if next := model.MaxRating(suggested, impliedRating(f)); next != suggested {
			suggested = next
			driver = f
		}
	}
	suggested = snapToScale(suggested, scale)

	var rationale string
	if driver == nil {
		rationale = fmt.Sprintf("%d finding(s), none exceeding the threshold for the least restrictive classification. Rated %s.", len(findings), suggested)
	} else {
		rationale = fmt.Sprintf("Rated %s, driven by a %s finding at %s (severity %d): %s",
			suggested, driver.Category, model.FormatTimecode(driver.Timecode), driver.Severity, driver.Description)
	}
	return suggested, rationale, nil
}

// impliedRating returns the classification a single finding calls for.
func impliedRating(f *model.Finding) model.RatingCode {
	ratings, ok := categoryRatings[f.Category]
	if !ok {
		ratings = categoryRatings[model.CategoryOther]
	}
	if f.Severity >= EscalationSeverity {
		return ratings.Escalated
	}
	return ratings.Base
}

// validScale extracts the usable rating codes from the guideline context,
// returned in ascending restrictiveness order.
func validScale(gctx *model.GuidelineContext) ([]model.RatingCode, error) {
	if gctx == nil {
		return nil, ErrNoRatingScale
	}
	scale := make([]model.RatingCode, 0, len(gctx.RatingCodes))
	for _, c := range gctx.RatingCodes {
		if c.IsValid() {
			scale = append(scale, c)
		}
	}
	if len(scale) == 0 {
		return nil, ErrNoRatingScale
	}
	sort.Slice(scale, func(i, j int) bool { return scale[i].Rank() < scale[j].Rank() })
	return scale, nil
}

// snapToScale maps a desired rating onto a guideline scale that may not
// contain it: the least restrictive code on the scale that is at least as
// restrictive as desired, or the scale's ceiling when none is.
func snapToScale(desired model.RatingCode, scale []model.RatingCode) model.RatingCode {
	for _, c := range scale {
		if c.Rank() >= desired.Rank() {
			return c
		}
	}
	return scale[len(scale)-1]
}

// describeLanguages joins the distinct languages reported across segments,
// preserving segment order. Used by the report builder.
func describeLanguages(results []*model.SegmentResult) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	ordered := make([]*model.SegmentResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	for _, r := range ordered {
		lang := strings.TrimSpace(r.Language)
		if lang == "" || seen[strings.ToLower(lang)] {
			continue
		}
		seen[strings.ToLower(lang)] = true
		out = append(out, lang)
	}
	return out
}

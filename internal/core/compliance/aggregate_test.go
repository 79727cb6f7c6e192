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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

func twoSegmentPlan() []*model.Segment {
	return []*model.Segment{
		{Index: 0, Start: 0, End: 300},
		{Index: 1, Start: 300, End: 600},
	}
}

// TestAggregateRebasesTimecodes verifies that segment-relative timecodes are
// shifted by the segment start and that the merged list is ordered by
// absolute timecode.
func TestAggregateRebasesTimecodes(t *testing.T) {
	results := []*model.SegmentResult{
		{Index: 1, Findings: []*model.Finding{
			{Timecode: 10, Category: model.CategoryViolence, Description: "fight scene"},
		}},
		{Index: 0, Findings: []*model.Finding{
			{Timecode: 30, Category: model.CategoryLanguage, Description: "coarse language"},
		}},
	}

	findings := NewAggregator(3).Aggregate(twoSegmentPlan(), results, 600)
	assert.Len(t, findings, 2)
	assert.Equal(t, 30.0, findings[0].Timecode)
	assert.Equal(t, model.CategoryLanguage, findings[0].Category)
	assert.Equal(t, 310.0, findings[1].Timecode)
	assert.Equal(t, model.CategoryViolence, findings[1].Category)
}

// TestAggregateDedupWindow verifies that two findings of the same category
// within the window collapse to one, keeping the earlier timecode, and that
// findings of different categories never collapse.
func TestAggregateDedupWindow(t *testing.T) {
	results := []*model.SegmentResult{
		{Index: 0, Findings: []*model.Finding{
			{Timecode: 298, Category: model.CategoryViolence, Description: "end of brawl"},
		}},
		{Index: 1, Findings: []*model.Finding{
			{Timecode: 0, Category: model.CategoryViolence, Description: "brawl continues"},
			{Timecode: 2, Category: model.CategoryLanguage, Description: "shouted insult"},
		}},
	}

	findings := NewAggregator(3).Aggregate(twoSegmentPlan(), results, 600)
	assert.Len(t, findings, 2)
	assert.Equal(t, 298.0, findings[0].Timecode)
	assert.Equal(t, "end of brawl", findings[0].Description)
	assert.Equal(t, model.CategoryLanguage, findings[1].Category)
}

// TestAggregateIdenticalTimecodeLongerDescriptionWins exercises the
// tiebreaker at an identical timecode: the longer description survives.
func TestAggregateIdenticalTimecodeLongerDescriptionWins(t *testing.T) {
	results := []*model.SegmentResult{
		{Index: 0, Findings: []*model.Finding{
			{Timecode: 50, Category: model.CategorySex, Description: "brief"},
			{Timecode: 50, Category: model.CategorySex, Description: "a much more detailed account"},
		}},
	}

	findings := NewAggregator(3).Aggregate(twoSegmentPlan(), results, 600)
	assert.Len(t, findings, 1)
	assert.Equal(t, "a much more detailed account", findings[0].Description)
}

// TestAggregateChainedDuplicates verifies that dedup compares against the
// last kept finding, so a run of closely spaced findings collapses into
// observations spaced at least a window apart.
func TestAggregateChainedDuplicates(t *testing.T) {
	results := []*model.SegmentResult{
		{Index: 0, Findings: []*model.Finding{
			{Timecode: 0, Category: model.CategoryHorror, Description: "a"},
			{Timecode: 2, Category: model.CategoryHorror, Description: "b"},
			{Timecode: 4, Category: model.CategoryHorror, Description: "c"},
		}},
	}

	findings := NewAggregator(3).Aggregate(twoSegmentPlan(), results, 600)
	assert.Len(t, findings, 2)
	assert.Equal(t, 0.0, findings[0].Timecode)
	assert.Equal(t, 4.0, findings[1].Timecode)
}

// TestAggregateDeterministic verifies that completion order of segment
// results does not change the output.
func TestAggregateDeterministic(t *testing.T) {
	a := []*model.SegmentResult{
		{Index: 0, Findings: []*model.Finding{{Timecode: 10, Category: model.CategoryTheme, Description: "x"}}},
		{Index: 1, Findings: []*model.Finding{{Timecode: 10, Category: model.CategoryTheme, Description: "y"}}},
	}
	b := []*model.SegmentResult{a[1], a[0]}

	agg := NewAggregator(3)
	first := agg.Aggregate(twoSegmentPlan(), a, 600)
	second := agg.Aggregate(twoSegmentPlan(), b, 600)
	assert.Equal(t, first, second)
}

// TestAggregateIdempotent verifies that aggregation is a fixpoint: feeding
// an already aggregated finding list back through produces the same
// findings. Deduplicated same-category findings are at least a window
// apart, so a second pass has nothing left to merge or reorder.
func TestAggregateIdempotent(t *testing.T) {
	results := []*model.SegmentResult{
		{Index: 0, Findings: []*model.Finding{
			{Timecode: 10, Category: model.CategoryViolence, Description: "brawl", Severity: 3},
			{Timecode: 11, Category: model.CategoryViolence, Description: "brawl continues", Severity: 4},
			{Timecode: 40, Category: model.CategoryLanguage, Description: "expletives", Severity: 2},
		}},
		{Index: 1, Findings: []*model.Finding{
			{Timecode: 5, Category: model.CategoryViolence, Description: "aftermath", Severity: 1},
		}},
	}

	agg := NewAggregator(3)
	first := agg.Aggregate(twoSegmentPlan(), results, 600)

	wholeVideo := []*model.Segment{{Index: 0, Start: 0, End: 600}}
	second := agg.Aggregate(wholeVideo, []*model.SegmentResult{{Index: 0, Findings: first}}, 600)

	assert.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Timecode, second[i].Timecode)
		assert.Equal(t, first[i].Category, second[i].Category)
		assert.Equal(t, first[i].Description, second[i].Description)
		assert.Equal(t, first[i].Severity, second[i].Severity)
	}
}

// TestAggregateDoesNotMutateInput verifies the segment results keep their
// segment-relative timecodes after aggregation.
func TestAggregateDoesNotMutateInput(t *testing.T) {
	results := []*model.SegmentResult{
		{Index: 1, Findings: []*model.Finding{
			{Timecode: 15, Category: model.CategoryNudity, Description: "n"},
		}},
	}

	_ = NewAggregator(3).Aggregate(twoSegmentPlan(), results, 600)
	assert.Equal(t, 15.0, results[0].Findings[0].Timecode)
}

// TestAggregateClampsToDuration verifies a timecode the model placed past
// the end of the video is clamped to the duration rather than dropped.
func TestAggregateClampsToDuration(t *testing.T) {
	results := []*model.SegmentResult{
		{Index: 1, Findings: []*model.Finding{
			{Timecode: 500, Category: model.CategoryOther, Description: "overflow"},
		}},
	}

	findings := NewAggregator(3).Aggregate(twoSegmentPlan(), results, 600)
	assert.Len(t, findings, 1)
	assert.Equal(t, 600.0, findings[0].Timecode)
}

// TestAggregateKeepsMaxSeverityOnDedup verifies that collapsing a duplicate
// never loses the higher severity score of the pair.
func TestAggregateKeepsMaxSeverityOnDedup(t *testing.T) {
	results := []*model.SegmentResult{
		{Index: 0, Findings: []*model.Finding{
			{Timecode: 100, Category: model.CategoryDrugUse, Description: "use shown", Severity: 2},
			{Timecode: 101, Category: model.CategoryDrugUse, Description: "use glamorized", Severity: 4},
		}},
	}

	findings := NewAggregator(3).Aggregate(twoSegmentPlan(), results, 600)
	assert.Len(t, findings, 1)
	assert.Equal(t, 4, findings[0].Severity)
}

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

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// DefaultDedupWindowSeconds is the window within which two findings of the
// same category are treated as one observation.
const DefaultDedupWindowSeconds = 3.0

// Aggregator merges per-segment findings into a single deterministic,
// deduplicated timeline for the whole video. It is stateless between calls;
// the same inputs always produce the same output regardless of the order in
// which segment results completed.
type Aggregator struct {
	// WindowSeconds is the dedup window. Zero or negative falls back to
	// DefaultDedupWindowSeconds.
	WindowSeconds float64
}

// NewAggregator creates an Aggregator with the given dedup window.
func NewAggregator(windowSeconds float64) *Aggregator {
	return &Aggregator{WindowSeconds: windowSeconds}
}

// Aggregate rebases every segment finding onto the full video timeline,
// removes near-duplicate observations, and returns the findings sorted by
// timecode then category. The inputs are never mutated.
//
// Duplicate resolution within a category window: the earlier timecode wins;
// at an identical timecode the longer description wins; and when both tie
// the finding from the earlier segment (first seen) wins.
//
// Inputs:
//   - segments: the segment plan, used to rebase relative timecodes.
//   - results: per-segment inference results, in any order. Results for
//     degraded segments contribute whatever findings they carry, usually
//     none.
//   - duration: total video duration, used to clamp stray timecodes.
//
// Outputs:
//   - []*model.Finding: the merged timeline with absolute timecodes.
func (a *Aggregator) Aggregate(segments []*model.Segment, results []*model.SegmentResult, duration float64) []*model.Finding {
	window := a.WindowSeconds
	if window <= 0 {
		window = DefaultDedupWindowSeconds
	}

	starts := make(map[int]float64, len(segments))
	for _, s := range segments {
		starts[s.Index] = s.Start
	}

	// Order results by segment index so sequence numbers, and with them the
	// first-seen tiebreaker, are deterministic.
	ordered := make([]*model.SegmentResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	merged := make([]*model.Finding, 0)
	seq := 0
	for _, r := range ordered {
		base := starts[r.Index]
		for _, f := range r.Findings {
			abs := base + f.Timecode
			if abs < 0 {
				abs = 0
			}
			if abs > duration {
				abs = duration
			}
			// Copy so the caller's segment results stay untouched.
			merged = append(merged, &model.Finding{
				Timecode:       abs,
				Category:       f.Category,
				Description:    f.Description,
				Severity:       f.Severity,
				SequenceNumber: seq,
			})
			seq++
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Timecode != merged[j].Timecode {
			return merged[i].Timecode < merged[j].Timecode
		}
		return merged[i].SequenceNumber < merged[j].SequenceNumber
	})

	// Walk the sorted timeline keeping, per category, the last finding that
	// survived dedup. A candidate within the window of that survivor is a
	// duplicate of it.
	lastKept := make(map[model.Category]*model.Finding)
	kept := make([]*model.Finding, 0, len(merged))
	for _, f := range merged {
		prev, ok := lastKept[f.Category]
		if !ok || f.Timecode-prev.Timecode > window {
			kept = append(kept, f)
			lastKept[f.Category] = f
			continue
		}
		// Duplicate pair. The survivor has the earlier or equal timecode,
		// so it wins unless the candidate shares the timecode and carries a
		// strictly longer description.
		if f.Timecode == prev.Timecode && len(f.Description) > len(prev.Description) {
			prev.Description = f.Description
			if f.Severity > prev.Severity {
				prev.Severity = f.Severity
			}
			continue
		}
		// Keep the survivor but let a higher severity from the duplicate
		// stand so dedup never lowers the rating.
		if f.Severity > prev.Severity {
			prev.Severity = f.Severity
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Timecode != kept[j].Timecode {
			return kept[i].Timecode < kept[j].Timecode
		}
		return kept[i].Category < kept[j].Category
	})
	return kept
}

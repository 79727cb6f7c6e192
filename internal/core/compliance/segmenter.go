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
	"math"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// DefaultMaxSegmentSeconds is the segment length used when the pipeline
// configuration does not override it. Ten minutes keeps each chunk well
// inside the context window of the inference model.
const DefaultMaxSegmentSeconds = 600.0

// SegmentVideo splits a video of the given duration into contiguous,
// non-overlapping segments of at most maxSeconds each. The segments form an
// exact partition: segment i starts where segment i-1 ended, the first
// starts at zero, and the last ends exactly at the duration. A video shorter
// than maxSeconds yields a single segment.
//
// Inputs:
//   - duration: total video length in seconds. Must be positive.
//   - maxSeconds: maximum segment length. Zero or negative falls back to
//     DefaultMaxSegmentSeconds.
//
// Outputs:
//   - []*model.Segment: the segment plan, indexed from zero.
//   - error: ErrInvalidDuration when duration is not positive.
func SegmentVideo(duration, maxSeconds float64) ([]*model.Segment, error) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: %v seconds", ErrInvalidDuration, duration)
	}
	if maxSeconds <= 0 {
		maxSeconds = DefaultMaxSegmentSeconds
	}
	count := int(math.Ceil(duration / maxSeconds))
	segments := make([]*model.Segment, 0, count)
	for i := 0; i < count; i++ {
		end := float64(i+1) * maxSeconds
		if end > duration {
			end = duration
		}
		segments = append(segments, &model.Segment{
			Index: i,
			Start: float64(i) * maxSeconds,
			End:   end,
		})
	}
	return segments, nil
}

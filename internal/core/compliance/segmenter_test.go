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
)

// TestSegmentVideoShortVideo verifies that a video shorter than the segment
// cap yields a single segment spanning the whole duration.
func TestSegmentVideoShortVideo(t *testing.T) {
	segments, err := SegmentVideo(120, 600)
	assert.NoError(t, err)
	assert.Len(t, segments, 1)
	assert.Equal(t, 0.0, segments[0].Start)
	assert.Equal(t, 120.0, segments[0].End)
	assert.Equal(t, 0, segments[0].Index)
}

// TestSegmentVideoExactPartition verifies that the segments are contiguous,
// non-overlapping, and end exactly at the video duration even when the
// duration is not a multiple of the cap.
func TestSegmentVideoExactPartition(t *testing.T) {
	segments, err := SegmentVideo(1450, 600)
	assert.NoError(t, err)
	assert.Len(t, segments, 3)

	assert.Equal(t, 0.0, segments[0].Start)
	for i := 1; i < len(segments); i++ {
		assert.Equal(t, segments[i-1].End, segments[i].Start)
		assert.Equal(t, i, segments[i].Index)
	}
	assert.Equal(t, 1450.0, segments[len(segments)-1].End)
	assert.Equal(t, 250.0, segments[2].Duration())
}

// TestSegmentVideoExactMultiple checks the boundary where the duration is an
// exact multiple of the cap, which must not produce an empty trailing segment.
func TestSegmentVideoExactMultiple(t *testing.T) {
	segments, err := SegmentVideo(1200, 600)
	assert.NoError(t, err)
	assert.Len(t, segments, 2)
	assert.Equal(t, 1200.0, segments[1].End)
}

// TestSegmentVideoInvalidDuration verifies that zero and negative durations
// are rejected with the sentinel error.
func TestSegmentVideoInvalidDuration(t *testing.T) {
	for _, duration := range []float64{0, -10} {
		_, err := SegmentVideo(duration, 600)
		assert.True(t, errors.Is(err, ErrInvalidDuration))
	}
}

// TestSegmentVideoDefaultCap verifies the fallback cap applies when the
// configuration passes a non-positive value.
func TestSegmentVideoDefaultCap(t *testing.T) {
	segments, err := SegmentVideo(1300, 0)
	assert.NoError(t, err)
	assert.Len(t, segments, 3)
	assert.Equal(t, DefaultMaxSegmentSeconds, segments[0].End)
}

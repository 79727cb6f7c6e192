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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestParseTimecode covers the timecode forms the inference backend emits.
func TestParseTimecode(t *testing.T) {
	cases := map[string]float64{
		"00:04:10": 250,
		"04:10":    250,
		"1:02:03":  3723,
		"45":       45,
		"00:00:00": 0,
	}
	for in, want := range cases {
		got, err := ParseTimecode(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "a:b", "1:2:3:4", "-5"} {
		_, err := ParseTimecode(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestFormatTimecode(t *testing.T) {
	assert.Equal(t, "00:04:10", FormatTimecode(250))
	assert.Equal(t, "01:02:03", FormatTimecode(3723.9))
	assert.Equal(t, "00:00:00", FormatTimecode(-1))
}

// TestNormalizeCategory verifies the aliases the model tends to produce map
// to canonical categories and that unknowns land in the fallback bucket.
func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, CategoryDrugUse, NormalizeCategory("Drug and Substance Abuse"))
	assert.Equal(t, CategoryLanguage, NormalizeCategory(" Coarse Language "))
	assert.Equal(t, CategoryViolence, NormalizeCategory("violence"))
	assert.Equal(t, CategoryOther, NormalizeCategory("jump scares and gore"))
}

// TestRatingOrder verifies the restrictiveness ordering of the scale.
func TestRatingOrder(t *testing.T) {
	for i := 1; i < len(RatingScale); i++ {
		assert.Greater(t, RatingScale[i].Rank(), RatingScale[i-1].Rank())
	}
	assert.Equal(t, -1, RatingCode("XX").Rank())
}

func TestParseRatingCode(t *testing.T) {
	code, ok := ParseRatingCode("pg-13")
	assert.True(t, ok)
	assert.Equal(t, RatingPG13, code)

	_, ok = ParseRatingCode("PG18")
	assert.False(t, ok)
}

func TestMaxRating(t *testing.T) {
	assert.Equal(t, RatingM18, MaxRating(RatingPG, RatingM18))
	assert.Equal(t, RatingM18, MaxRating(RatingM18, RatingG))
	assert.Equal(t, RatingG, MaxRating(RatingG, "XX"))
}

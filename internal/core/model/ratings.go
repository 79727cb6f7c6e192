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

// Package model defines the core data structures for the application.
// This file, `ratings.go`, defines the ordered classification scale used by
// the rating inferencer. The codes follow the IMDA film classification
// ladder, from least to most restrictive.
package model

import "strings"

// RatingCode is a single classification code on the rating scale.
type RatingCode string

// The classification codes, least restrictive first. The order of this
// block is the canonical restrictiveness order and must not be rearranged.
const (
	RatingG    RatingCode = "G"
	RatingPG   RatingCode = "PG"
	RatingPG13 RatingCode = "PG13"
	RatingNC16 RatingCode = "NC16"
	RatingM18  RatingCode = "M18"
	RatingR21  RatingCode = "R21"
)

// RatingScale holds every known rating code in restrictiveness order.
var RatingScale = []RatingCode{RatingG, RatingPG, RatingPG13, RatingNC16, RatingM18, RatingR21}

// ratingRank maps each code to its position on the scale. A higher rank
// means a more restrictive classification.
var ratingRank = map[RatingCode]int{
	RatingG:    0,
	RatingPG:   1,
	RatingPG13: 2,
	RatingNC16: 3,
	RatingM18:  4,
	RatingR21:  5,
}

// Rank returns the position of the code on the restrictiveness scale,
// starting at zero for the least restrictive code. Unknown codes return -1.
func (r RatingCode) Rank() int {
	if rank, ok := ratingRank[r]; ok {
		return rank
	}
	return -1
}

// IsValid reports whether the code is one of the known classification codes.
func (r RatingCode) IsValid() bool {
	_, ok := ratingRank[r]
	return ok
}

// ParseRatingCode normalizes a free-form code string (as found in guideline
// documents, which may use forms like "PG-13" or "nc16") to a canonical
// RatingCode. The second return value is false when the string does not
// correspond to any known code.
func ParseRatingCode(s string) (RatingCode, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, " ", "")
	code := RatingCode(normalized)
	if code.IsValid() {
		return code, true
	}
	return "", false
}

// MaxRating returns the more restrictive of the two codes. Invalid codes
// rank below every valid code, so comparing against one is safe.
func MaxRating(a, b RatingCode) RatingCode {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

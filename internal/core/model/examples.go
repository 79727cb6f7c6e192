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

// This file, `examples.go`, provides factory functions for creating
// hardcoded, example instances of the data models.
//
// These example objects are crucial for "few-shot" prompting with the
// generative AI models. By providing a concrete example of the desired JSON
// output structure within the prompt itself, we guide the AI to return data
// that is consistent, correctly formatted, and easily parsable.
package model

// GetExampleSegmentReport creates a sample SegmentReport. It is serialized
// into the compliance prompt so the model sees the exact JSON shape it must
// return, including the timecode format and the 1 to 5 threshold score.
//
// Outputs:
//   - *SegmentReport: A pointer to a hardcoded SegmentReport object.
func GetExampleSegmentReport() *SegmentReport {
	out := &SegmentReport{
		IsComplianceIssues: true,
		ComplianceIssues:   make([]*ComplianceIssue, 0),
		FinalSuggestion:    "Suitable for mature audiences with edits to the bar fight at 02:45.",
		ContentSummary:     "A retired detective is pulled back into an unsolved case after a witness resurfaces.",
		SpeakingLanguage:   "English",
	}
	out.ComplianceIssues = append(out.ComplianceIssues,
		&ComplianceIssue{
			Timecode:    "00:02:45",
			Category:    "Violence",
			Description: "A prolonged bar fight with realistic injury detail and visible blood.",
			Threshold:   3,
		},
		&ComplianceIssue{
			Timecode:    "00:07:12",
			Category:    "Language",
			Description: "Repeated use of strong coarse language during the interrogation scene.",
			Threshold:   2,
		})
	return out
}

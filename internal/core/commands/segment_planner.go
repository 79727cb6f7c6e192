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

package commands

import (
	"log/slog"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/compliance"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// SegmentPlanner is a command that splits the resolved video into the
// contiguous segment plan the dispatcher will fan out over.
type SegmentPlanner struct {
	cor.BaseCommand
	maxSegmentSeconds float64
}

// NewSegmentPlanner is the constructor for the SegmentPlanner command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - maxSegmentSeconds: The segment length cap. Non-positive values fall
//     back to the package default.
func NewSegmentPlanner(name string, maxSegmentSeconds float64) *SegmentPlanner {
	return &SegmentPlanner{BaseCommand: *cor.NewBaseCommand(name), maxSegmentSeconds: maxSegmentSeconds}
}

// Execute computes the segment plan from the video duration.
func (c *SegmentPlanner) Execute(context cor.Context) {
	video := context.Get(c.GetInputParam()).(*model.VideoInput)

	segments, err := compliance.SegmentVideo(video.Duration, c.maxSegmentSeconds)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	// A single-segment video needs no chunk extraction; the backend can
	// read the persisted source directly.
	if len(segments) == 1 && video.GCSUri != "" {
		segments[0].PayloadRef = video.GCSUri
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.Info("segment plan ready", "video_id", video.ID, "segments", len(segments))
	context.Add(GetSegmentPlanParameterName(), segments)
	context.Add(c.GetOutputParam(), segments)
}

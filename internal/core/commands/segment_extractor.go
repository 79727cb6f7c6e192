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

// This file defines the command that materializes the segment plan: it cuts
// each segment out of the local working copy with FFmpeg and uploads the
// chunk to GCS, so the inference backend can be pointed at exactly the media
// span a prompt is about.
//
// The chunks use stream copy instead of re-encoding. Cut points land on the
// nearest keyframes, which is close enough for a ten minute analysis window
// and keeps extraction fast.
package commands

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

const (
	// DefaultSegmentCutArgs is a format string for the FFmpeg segment cut.
	// -y: overwrite the temp output without asking.
	// -hide_banner: suppress the FFmpeg banner.
	// -ss %f -t %f: seek to the segment start and cut its duration.
	// -i %s: the input file.
	// -c copy: stream copy, no re-encode.
	// -f mp4 %s: force MP4 output at the given path.
	DefaultSegmentCutArgs = "-y -hide_banner -ss %f -t %f -i %s -c copy -f mp4 %s"
	SegmentTempPrefix     = "segment-chunk-"
)

// SegmentExtractor is a command that cuts each planned segment into its own
// chunk file and persists the chunks to GCS.
type SegmentExtractor struct {
	cor.BaseCommand
	commandPath string
	client      *storage.Client
	bucket      string
}

// NewSegmentExtractor is the constructor for creating a new SegmentExtractor command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - commandPath: The file system path to the FFmpeg executable.
//   - client: An initialized *storage.Client for communicating with GCS.
//   - bucket: The bucket where segment chunks are written.
//
// Outputs:
//   - *SegmentExtractor: A pointer to the newly instantiated command.
func NewSegmentExtractor(name string, commandPath string, client *storage.Client, bucket string) *SegmentExtractor {
	return &SegmentExtractor{
		BaseCommand: *cor.NewBaseCommand(name),
		commandPath: commandPath,
		client:      client,
		bucket:      bucket,
	}
}

// Execute cuts and uploads one chunk per segment, recording each chunk's
// gs:// URI as the segment's payload reference.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *SegmentExtractor) Execute(context cor.Context) {
	segments := context.Get(c.GetInputParam()).([]*model.Segment)
	video := context.Get(GetVideoInputParameterName()).(*model.VideoInput)

	for _, segment := range segments {
		// Planner may have aliased a single-segment video to its source.
		if segment.PayloadRef != "" {
			continue
		}

		chunkPath, err := c.cutSegment(context, video, segment)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), err)
			return
		}

		uri, err := c.uploadChunk(context, video, segment, chunkPath)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), err)
			return
		}
		segment.PayloadRef = uri
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetSegmentPlanParameterName(), segments)
	context.Add(c.GetOutputParam(), segments)
}

// cutSegment runs FFmpeg to extract one segment into a temp file.
func (c *SegmentExtractor) cutSegment(context cor.Context, video *model.VideoInput, segment *model.Segment) (string, error) {
	tempFile, err := os.CreateTemp("", SegmentTempPrefix)
	if err != nil {
		return "", fmt.Errorf("could not create temp file: %w", err)
	}
	_ = tempFile.Close()
	context.AddTempFile(tempFile.Name())

	args := fmt.Sprintf(DefaultSegmentCutArgs, segment.Start, segment.Duration(), video.LocalPath, tempFile.Name())
	cmd := exec.CommandContext(context.GetContext(), c.commandPath, strings.Split(args, CommandSeparator)...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("error cutting segment %d: %w", segment.Index, err)
	}
	return tempFile.Name(), nil
}

// uploadChunk streams a cut chunk to GCS under the video's prefix.
func (c *SegmentExtractor) uploadChunk(context cor.Context, video *model.VideoInput, segment *model.Segment, chunkPath string) (string, error) {
	dat, err := os.Open(chunkPath)
	if err != nil {
		return "", fmt.Errorf("failed to open chunk %s: %w", chunkPath, err)
	}
	defer func() { _ = dat.Close() }()

	objectName := path.Join(video.ID, fmt.Sprintf("segment_%03d.mp4", segment.Index))
	writer := c.client.Bucket(c.bucket).Object(objectName).NewWriter(context.GetContext())
	writer.ContentType = "video/mp4"

	if _, err := io.Copy(writer, dat); err != nil {
		return "", fmt.Errorf("failed to upload chunk for segment %d: %w", segment.Index, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize chunk upload for segment %d: %w", segment.Index, err)
	}
	return fmt.Sprintf("gs://%s/%s", c.bucket, objectName), nil
}

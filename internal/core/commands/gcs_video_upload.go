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

// This file defines the command that persists the resolved video to the
// analysis bucket. The inference backend reads media by gs:// URI, so every
// video must live in GCS before segment dispatch, regardless of whether it
// arrived as a URL or a direct upload. Videos that were already triggered
// out of a bucket keep their original object.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"cloud.google.com/go/storage"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// GCSVideoUpload is a command that streams the local working copy of the
// video into the configured GCS bucket.
type GCSVideoUpload struct {
	cor.BaseCommand
	client *storage.Client
	bucket string
}

// NewGCSVideoUpload is the constructor for creating a new GCSVideoUpload command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - client: An initialized *storage.Client for communicating with GCS.
//   - bucket: The name of the target GCS bucket for the upload.
//
// Outputs:
//   - *GCSVideoUpload: A pointer to the newly instantiated command.
func NewGCSVideoUpload(name string, client *storage.Client, bucket string) *GCSVideoUpload {
	return &GCSVideoUpload{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket}
}

// Execute streams the video file to GCS and records the resulting URI on the
// VideoInput.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *GCSVideoUpload) Execute(context cor.Context) {
	video := context.Get(c.GetInputParam()).(*model.VideoInput)

	// A video that arrived through the bucket trigger is already in GCS.
	if video.GCSUri != "" {
		context.Add(c.GetOutputParam(), video)
		return
	}

	dat, err := os.Open(video.LocalPath)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to open file %s: %w", video.LocalPath, err))
		return
	}
	defer func() { _ = dat.Close() }()

	objectName := path.Join(video.ID, "source"+path.Ext(video.Reference))
	obj := c.client.Bucket(c.bucket).Object(objectName)
	writer := obj.NewWriter(context.GetContext())
	writer.ContentType = video.MIMEType

	if written, err := io.Copy(writer, dat); err != nil {
		slog.Error("failed to copy video to GCS", "bytes_written", written, "error", err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	if err := writer.Close(); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to finalize GCS upload: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	video.GCSUri = fmt.Sprintf("gs://%s/%s", c.bucket, objectName)
	slog.Info("video persisted", "uri", video.GCSUri)
	context.Add(GetVideoInputParameterName(), video)
	context.Add(c.GetOutputParam(), video)
}

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
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/cloud"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
)

// GCSToTempFile downloads an object from GCS to a local temporary file. It
// bridges the bucket-triggered path to local tools such as ffprobe and
// ffmpeg, which need a file on disk.
//
// The temp file is registered with the context so the workflow cleans it up
// when the chain finishes.
type GCSToTempFile struct {
	cor.BaseCommand
	client         *storage.Client
	tempFilePrefix string
}

// NewGCSToTempFile is the constructor for creating a new GCSToTempFile command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - client: An initialized *storage.Client for communicating with GCS.
//   - tempFilePrefix: A string prefix for the temporary file's name.
//
// Outputs:
//   - *GCSToTempFile: A pointer to the newly instantiated command.
func NewGCSToTempFile(name string, client *storage.Client, tempFilePrefix string) *GCSToTempFile {
	return &GCSToTempFile{
		BaseCommand:    *cor.NewBaseCommand(name),
		client:         client,
		tempFilePrefix: tempFilePrefix,
	}
}

// IsExecutable verifies the upstream command produced a GCS object reference.
func (c *GCSToTempFile) IsExecutable(context cor.Context) bool {
	if context == nil {
		return false
	}
	_, ok := context.Get(c.GetInputParam()).(*cloud.GCSObject)
	return ok
}

// Execute streams the object's content into a tracked temporary file and
// passes the local path to the next command.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *GCSToTempFile) Execute(context cor.Context) {
	msg := context.Get(c.GetInputParam()).(*cloud.GCSObject)

	obj := c.client.Bucket(msg.Bucket).Object(msg.Name)
	reader, err := obj.NewReader(context.GetContext())
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to create GCS reader for gs://%s/%s: %w", msg.Bucket, msg.Name, err))
		return
	}
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Warn("failed to close GCS reader", "error", err)
		}
	}()

	tempFile, err := os.CreateTemp("", c.tempFilePrefix)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not create temp file: %w", err))
		return
	}
	context.AddTempFile(tempFile.Name())

	written, err := io.Copy(tempFile, reader)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to copy gs://%s/%s after %d bytes: %w", msg.Bucket, msg.Name, written, err))
		_ = tempFile.Close()
		return
	}
	if err := tempFile.Close(); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to flush temp file: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.Info("downloaded source object",
		"uri", msg.URI(),
		"file", tempFile.Name(),
		"bytes", written)
	context.Add(c.GetOutputParam(), tempFile.Name())
}

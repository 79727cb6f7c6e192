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

	"cloud.google.com/go/storage"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
)

// GuidelineDocFromGCS fetches the configured guideline document from GCS and
// stages it for the loader. Bucket-triggered runs have no caller to attach a
// guideline, so they analyze against this standing document.
type GuidelineDocFromGCS struct {
	cor.BaseCommand
	client *storage.Client
	bucket string
	object string
}

// NewGuidelineDocFromGCS is the constructor for the GuidelineDocFromGCS command.
func NewGuidelineDocFromGCS(name string, client *storage.Client, bucket string, object string) *GuidelineDocFromGCS {
	return &GuidelineDocFromGCS{
		BaseCommand: *cor.NewBaseCommand(name),
		client:      client,
		bucket:      bucket,
		object:      object,
	}
}

// Execute downloads the document bytes and stages them under the guideline
// document parameter, leaving the primary input untouched for the next
// command.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *GuidelineDocFromGCS) Execute(context cor.Context) {
	reader, err := c.client.Bucket(c.bucket).Object(c.object).NewReader(context.GetContext())
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to open guideline gs://%s/%s: %w", c.bucket, c.object, err))
		return
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to read guideline gs://%s/%s: %w", c.bucket, c.object, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.Info("fetched standing guideline", "object", c.object, "bytes", len(data))
	context.Add(GetGuidelineDocParameterName(), &GuidelineDoc{Name: c.object, Data: data})
	context.Add(c.GetOutputParam(), context.Get(c.GetInputParam()))
}

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
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// ReportToGCS is a command that writes the finished report as a JSON
// document to the report bucket, where reviewers and other systems can pick
// it up without a BigQuery round trip.
type ReportToGCS struct {
	cor.BaseCommand
	client *storage.Client
	bucket string
}

// NewReportToGCS is the constructor for the ReportToGCS command.
func NewReportToGCS(name string, client *storage.Client, bucket string) *ReportToGCS {
	return &ReportToGCS{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket}
}

// IsExecutable requires the assembled report to be present.
func (c *ReportToGCS) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(GetReportParameterName()) != nil
}

// Execute marshals the report and streams it to GCS.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *ReportToGCS) Execute(context cor.Context) {
	report := context.Get(GetReportParameterName()).(*model.Report)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to marshal report %s: %w", report.ID, err))
		return
	}

	objectName := fmt.Sprintf("%s.json", report.ID)
	writer := c.client.Bucket(c.bucket).Object(objectName).NewWriter(context.GetContext())
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to write report %s to GCS: %w", report.ID, err))
		return
	}
	if err := writer.Close(); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to finalize report upload for %s: %w", report.ID, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.Info("report written", "uri", fmt.Sprintf("gs://%s/%s", c.bucket, objectName))
	context.Add(cor.CtxOut, report)
}

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
	"log/slog"

	"cloud.google.com/go/bigquery"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// ReportPersistToBigQuery is a command that saves a finished compliance
// report to the report table.
type ReportPersistToBigQuery struct {
	cor.BaseCommand
	client  *bigquery.Client
	dataset string
	table   string
}

// NewReportPersistToBigQuery is the constructor for the ReportPersistToBigQuery command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - client: An initialized *bigquery.Client.
//   - dataset: The name of the BigQuery dataset.
//   - table: The name of the report table.
//
// Outputs:
//   - *ReportPersistToBigQuery: A pointer to the newly instantiated command.
func NewReportPersistToBigQuery(name string, client *bigquery.Client, dataset string, table string) *ReportPersistToBigQuery {
	return &ReportPersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), client: client, dataset: dataset, table: table}
}

// IsExecutable requires the assembled report to be present.
func (s *ReportPersistToBigQuery) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(GetReportParameterName()) != nil
}

// Execute streams the report row into BigQuery.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *ReportPersistToBigQuery) Execute(context cor.Context) {
	report := context.Get(GetReportParameterName()).(*model.Report)

	i := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := i.Put(context.GetContext(), report); err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("bigquery insert failed for report %s: %w", report.ID, err))
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.Info("report persisted to bigquery", "report_id", report.ID, "table", s.table)
	context.Add(cor.CtxOut, report)
}

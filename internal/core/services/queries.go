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

// Package services contains the business logic for interacting with data
// sources. This file centralizes the BigQuery SQL query strings used by the
// report service. The queries use `fmt.Sprintf` format verbs as placeholders
// for values injected at runtime.
package services

const (
	// QryFindReportById looks up a complete compliance report by its run ID.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the report table.
	// - `%s`: The run ID of the report to find.
	QryFindReportById = "SELECT * from `%s` WHERE id = '%s'"

	// QryListReports returns the most recent reports, newest first. Only the
	// summary columns are selected; callers wanting findings fetch the full
	// report by ID.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the report table.
	// - `%d`: The maximum number of rows to return.
	QryListReports = "SELECT id, video_title, video_url, duration_seconds, suggested_rating, complete, created_at FROM `%s` ORDER BY created_at DESC LIMIT %d"
)

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
// sources. This file defines the ReportService, which retrieves persisted
// compliance reports from BigQuery and generates secure, time-limited URLs
// for streaming the analyzed videos out of Google Cloud Storage.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// ReportService is the data access layer for finished compliance reports.
// It abstracts the details of querying BigQuery and signing GCS URLs.
type ReportService struct {
	BigqueryClient *bigquery.Client                  // Client for interacting with Google BigQuery.
	StorageClient  *storage.Client                   // Client for interacting with Google Cloud Storage.
	IAMClient      *credentials.IamCredentialsClient // Client for the IAM Credentials API, used for signing URLs.
	SignerEmail    string                            // The service account email used to sign URLs.
	DatasetName    string                            // The name of the BigQuery dataset.
	ReportTable    string                            // The name of the table holding compliance reports.
}

// ReportSummary is the listing row for recent reports: everything a review
// queue needs without the findings payload.
type ReportSummary struct {
	ID              string           `json:"id" bigquery:"id"`
	VideoTitle      string           `json:"video_title" bigquery:"video_title"`
	VideoURL        string           `json:"video_url" bigquery:"video_url"`
	DurationSeconds float64          `json:"duration_seconds" bigquery:"duration_seconds"`
	SuggestedRating model.RatingCode `json:"suggested_rating" bigquery:"suggested_rating"`
	Complete        bool             `json:"complete" bigquery:"complete"`
	CreatedAt       time.Time        `json:"created_at" bigquery:"created_at"`
}

// GetFQN returns the complete, queryable name for the report table in
// BigQuery, formatted with dots instead of colons.
// Example: `gcp-project-id.compliance_ds.report`
//
// Outputs:
//   - string: The fully qualified table name.
func (s *ReportService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.ReportTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Get retrieves a single compliance report by its run ID.
//
// Inputs:
//   - ctx: The context for the request, used for cancellation and tracing.
//   - id: The run ID of the report to retrieve.
//
// Outputs:
//   - *model.Report: A pointer to the retrieved report.
//   - error: An error if the query fails or no report is found.
func (s *ReportService) Get(ctx context.Context, id string) (report *model.Report, err error) {
	queryText := fmt.Sprintf(QryFindReportById, s.GetFQN(), id)
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return report, err
	}
	// The run ID is unique, so at most one row comes back.
	report = &model.Report{}
	err = itr.Next(report)
	return report, err
}

// List retrieves the most recent report summaries, newest first.
//
// Inputs:
//   - ctx: The context for the request.
//   - limit: The maximum number of summaries to return.
//
// Outputs:
//   - []*ReportSummary: The summaries in reverse chronological order.
//   - error: An error if the query fails.
func (s *ReportService) List(ctx context.Context, limit int) ([]*ReportSummary, error) {
	queryText := fmt.Sprintf(QryListReports, s.GetFQN(), limit)
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*ReportSummary, 0, limit)
	for {
		summary := &ReportSummary{}
		if err := itr.Next(summary); err != nil {
			break
		}
		out = append(out, summary)
	}
	return out, nil
}

// GenerateSignedURL creates a time-limited, secure URL for a private GCS
// object, letting a reviewer's browser stream the analyzed video without its
// own credentials. The URL is signed through the IAM Credentials API using
// the configured signer service account, so no local key file is needed.
//
// Inputs:
//   - ctx: The context for the request.
//   - gcsURI: The object's URI in "gs://bucket/object" form.
//   - expires: The duration for which the URL will be valid.
//
// Outputs:
//   - string: The generated signed URL.
//   - error: An error if parsing the URI or signing the URL fails.
func (s *ReportService) GenerateSignedURL(ctx context.Context, gcsURI string, expires time.Duration) (string, error) {
	const prefix = "gs://"
	if !strings.HasPrefix(gcsURI, prefix) {
		return "", fmt.Errorf("invalid GCS URI format: %s", gcsURI)
	}
	parts := strings.SplitN(strings.TrimPrefix(gcsURI, prefix), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid GCS URI: unable to determine bucket and object from %s", gcsURI)
	}
	bucketName := parts[0]
	objectName := parts[1]

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	u, err := s.StorageClient.Bucket(bucketName).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).Object(%q).SignedURL: %w", bucketName, objectName, err)
	}
	return u, nil
}

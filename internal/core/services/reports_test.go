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

package services

import (
	"context"
	"testing"
	"time"

	"github.com/zeebo/assert"
)

func TestGenerateSignedURLRejectsMalformedURIs(t *testing.T) {
	svc := &ReportService{SignerEmail: "signer@project.iam.gserviceaccount.com"}

	cases := []string{
		"",
		"https://storage.googleapis.com/bucket/object.mp4",
		"gs://",
		"gs://bucket-only",
		"gs://bucket/",
	}
	for _, uri := range cases {
		_, err := svc.GenerateSignedURL(context.Background(), uri, 15*time.Minute)
		assert.Error(t, err)
	}
}

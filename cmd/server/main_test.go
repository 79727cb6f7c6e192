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

package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/compliance"
)

// TestNewServerLeavesBodyReadUnbounded verifies the server bounds only the
// header read, so a slow multipart video upload is not severed mid-body.
func TestNewServerLeavesBodyReadUnbounded(t *testing.T) {
	srv := newServer(http.NewServeMux())
	assert.Equal(t, 20*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, time.Duration(0), srv.ReadTimeout)
	assert.Equal(t, 30*time.Minute, srv.WriteTimeout)
}

// TestClassifyPipelineError checks the mapping from pipeline failures to
// HTTP statuses.
func TestClassifyPipelineError(t *testing.T) {
	status, _ := classifyPipelineError(compliance.ErrUnsupportedFormat)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = classifyPipelineError(&compliance.BackendError{SegmentIndex: 2, Err: assert.AnError})
	assert.Equal(t, http.StatusBadGateway, status)

	status, _ = classifyPipelineError(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
}

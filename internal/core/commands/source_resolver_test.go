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
	goctx "context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/compliance"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

func resolverContext() cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(goctx.Background())
	return ctx
}

// TestFetchURLFallsBackToGetWhenHeadRefused covers servers that reject HEAD
// with 405 or 501 but serve the same URL over GET.
func TestFetchURLFallsBackToGetWhenHeadRefused(t *testing.T) {
	payload := []byte("fake video bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	ctx := resolverContext()
	defer ctx.Close()

	resolver := NewSourceResolver("resolve-video-source", "ffprobe", 0)
	video := &model.VideoInput{ID: "url-0001", Kind: model.SourceKindURL, Reference: srv.URL}
	err := resolver.fetchURL(ctx, video)
	assert.NoError(t, err)
	assert.NotEmpty(t, video.LocalPath)

	data, err := os.ReadFile(video.LocalPath)
	assert.NoError(t, err)
	assert.Equal(t, payload, data)
}

// TestFetchURLUnreachableOnClientError verifies that a hard HEAD failure
// still rejects the source before any download happens.
func TestFetchURLUnreachableOnClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ctx := resolverContext()
	defer ctx.Close()

	resolver := NewSourceResolver("resolve-video-source", "ffprobe", 0)
	video := &model.VideoInput{ID: "url-0002", Kind: model.SourceKindURL, Reference: srv.URL}
	err := resolver.fetchURL(ctx, video)
	assert.ErrorIs(t, err, compliance.ErrUnreachableSource)
	assert.Empty(t, video.LocalPath)
}

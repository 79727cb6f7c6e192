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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/cloud"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
	test "github.com/giranntu/IMDAComplianceAnalyzer/internal/testutil"
)

func triggerContext(payload string) cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(goctx.Background())
	ctx.Add(cor.CtxIn, payload)
	return ctx
}

func TestVideoTriggerToGCSObjectDecodesNotification(t *testing.T) {
	ctx := triggerContext(test.GetTestVideoTriggerMessageText())
	defer ctx.Close()

	cmd := NewVideoTriggerToGCSObject("video-trigger")
	assert.True(t, cmd.IsExecutable(ctx))
	cmd.Execute(ctx)
	assert.False(t, ctx.HasErrors())

	obj, ok := ctx.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject)
	assert.True(t, ok)
	assert.Equal(t, "compliance_video_intake", obj.Bucket)
	assert.Equal(t, "feature-cut-001.mp4", obj.Name)
	assert.Equal(t, "video/mp4", obj.MIMEType)
	assert.Equal(t, obj, ctx.Get(cmd.GetOutputParam()))
}

func TestVideoTriggerToGCSObjectRejectsMalformedMessage(t *testing.T) {
	ctx := triggerContext("this is not a notification")
	defer ctx.Close()

	cmd := NewVideoTriggerToGCSObject("video-trigger")
	cmd.Execute(ctx)
	assert.True(t, ctx.HasErrors())
	assert.Nil(t, ctx.Get(cloud.GetGCSObjectName()))
}

func TestVideoInputSeedBuildsUploadInput(t *testing.T) {
	ctx := triggerContext(test.GetTestVideoTriggerMessageText())
	defer ctx.Close()

	NewVideoTriggerToGCSObject("video-trigger").Execute(ctx)
	assert.False(t, ctx.HasErrors())

	seed := NewVideoInputSeed("video-input-seed")
	// The download step hands the seed a local working copy.
	ctx.Remove(cor.CtxIn)
	ctx.Add(cor.CtxIn, "/tmp/intake-video-feature-cut-001.mp4")
	assert.True(t, seed.IsExecutable(ctx))
	seed.Execute(ctx)
	assert.False(t, ctx.HasErrors())

	video, ok := ctx.Get(GetVideoInputParameterName()).(*model.VideoInput)
	assert.True(t, ok)
	assert.NotEmpty(t, video.ID)
	assert.Equal(t, model.SourceKindUpload, video.Kind)
	assert.Equal(t, "feature-cut-001.mp4", video.Reference)
	assert.Equal(t, "/tmp/intake-video-feature-cut-001.mp4", video.LocalPath)
	assert.Equal(t, "gs://compliance_video_intake/feature-cut-001.mp4", video.GCSUri)
	assert.Equal(t, "feature-cut-001", video.Title)
}

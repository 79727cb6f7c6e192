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
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/cloud"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// VideoInputSeed converts a downloaded GCS object into a VideoInput so the
// bucket-triggered path joins the same analysis chain as API submissions.
// The resulting input carries the object's URI, which tells the upload
// command downstream that the source is already in place.
type VideoInputSeed struct {
	cor.BaseCommand
}

// NewVideoInputSeed is the constructor for the VideoInputSeed command.
func NewVideoInputSeed(name string) *VideoInputSeed {
	return &VideoInputSeed{BaseCommand: *cor.NewBaseCommand(name)}
}

// IsExecutable requires both the local file path from the download step and
// the original GCS object reference.
func (c *VideoInputSeed) IsExecutable(context cor.Context) bool {
	if context == nil {
		return false
	}
	if _, ok := context.Get(c.GetInputParam()).(string); !ok {
		return false
	}
	_, ok := context.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject)
	return ok
}

// Execute builds the VideoInput and publishes it for the resolver.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *VideoInputSeed) Execute(context cor.Context) {
	localPath, ok := context.Get(c.GetInputParam()).(string)
	if !ok {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("expected a local file path in parameter %s", c.GetInputParam()))
		return
	}
	obj := context.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject)

	video := &model.VideoInput{
		ID:        uuid.New().String(),
		Kind:      model.SourceKindUpload,
		Reference: obj.Name,
		LocalPath: localPath,
		GCSUri:    obj.URI(),
		Title:     strings.TrimSuffix(path.Base(obj.Name), path.Ext(obj.Name)),
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetVideoInputParameterName(), video)
	context.Add(c.GetOutputParam(), video)
}

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
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/guideline"
)

// GuidelineLoader is a command that parses the raw guideline document
// supplied with the request into the context used to ground every segment
// prompt.
type GuidelineLoader struct {
	cor.BaseCommand
}

// NewGuidelineLoader is the constructor for the GuidelineLoader command.
func NewGuidelineLoader(name string) *GuidelineLoader {
	return &GuidelineLoader{BaseCommand: *cor.NewBaseCommand(name)}
}

// IsExecutable requires the raw guideline document to be present.
func (c *GuidelineLoader) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil &&
		context.Get(GetGuidelineDocParameterName()) != nil
}

// Execute parses the document and publishes the GuidelineContext. A document
// with no extractable text fails the run; analysis without guidelines would
// produce findings grounded in nothing.
func (c *GuidelineLoader) Execute(context cor.Context) {
	doc := context.Get(GetGuidelineDocParameterName()).(*GuidelineDoc)

	gctx, err := guideline.Load(doc.Name, doc.Data)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetGuidelineParameterName(), gctx)
	// Pass the primary input through so the chain's piping keeps feeding
	// the video to the next command.
	context.Add(c.GetOutputParam(), context.Get(c.GetInputParam()))
}

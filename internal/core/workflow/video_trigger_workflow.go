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

// This file implements the bucket-triggered variant of the analysis
// workflow. A GCS notification on the intake bucket arrives over Pub/Sub,
// the object is pulled down, and from there the run joins the same command
// sequence as an API submission, analyzed against the standing guideline
// document.
package workflow

import (
	"text/template"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/cloud"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/commands"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
)

// VideoTriggerWorkflow analyzes a video dropped into the intake bucket. The
// entry command decodes the Pub/Sub notification payload instead of a seeded
// VideoInput, everything downstream is shared with the API path.
type VideoTriggerWorkflow struct {
	cor.BaseCommand
	config          *cloud.Config
	serviceClients  *cloud.ServiceClients
	genaiModel      *cloud.QuotaAwareGenerativeAIModel
	numberOfWorkers int
	promptTemplate  *template.Template
	chain           cor.Chain
}

// Execute runs the trigger chain with the Pub/Sub message body as input.
//
// Inputs:
//   - context: The chain of responsibility context for this execution.
func (w *VideoTriggerWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

func (w *VideoTriggerWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	// Decode the GCS notification into an object reference.
	out.AddCommand(commands.NewVideoTriggerToGCSObject("video-trigger-to-gcs-object"))

	// Pull the object down so ffprobe and ffmpeg can work on it.
	out.AddCommand(commands.NewGCSToTempFile(
		"gcs-to-temp-file",
		w.serviceClients.StorageClient,
		"intake-video-"))

	// Promote the download into a VideoInput carrying the object's URI, which
	// lets the upload step downstream recognize the source is already staged.
	out.AddCommand(commands.NewVideoInputSeed("seed-video-input"))

	out.AddCommand(commands.NewSourceResolver(
		"resolve-video-source",
		DefaultFfprobeCommand,
		w.config.Pipeline.MaxSourceBytes))

	out.AddCommand(commands.NewGCSVideoUpload(
		"upload-video-source",
		w.serviceClients.StorageClient,
		w.config.Storage.VideoBucket))

	// Triggered runs have no caller-supplied guideline; fetch the standing
	// document from the report bucket.
	out.AddCommand(commands.NewGuidelineDocFromGCS(
		"fetch-standing-guideline",
		w.serviceClients.StorageClient,
		w.config.Storage.ReportBucket,
		w.config.Storage.DefaultGuidelineObject))

	out.AddCommand(commands.NewGuidelineLoader("load-guideline"))

	out.AddCommand(commands.NewSegmentPlanner(
		"plan-segments",
		w.config.Pipeline.MaxSegmentSeconds))

	out.AddCommand(commands.NewSegmentExtractor(
		"extract-segments",
		DefaultFfmpegCommand,
		w.serviceClients.StorageClient,
		w.config.Storage.VideoBucket))

	source := commands.NewGenAIFindingSource(w.GetName(), w.GetMeter(), w.genaiModel)
	out.AddCommand(commands.NewSegmentDispatcher(
		"dispatch-segments",
		source,
		w.promptTemplate,
		w.numberOfWorkers,
		w.config.Pipeline.MaxRetries))

	out.AddCommand(commands.NewReportAssembly(
		"assemble-report",
		w.config.Pipeline.DedupWindowSeconds))

	out.AddCommand(commands.NewReportPersistToBigQuery(
		"write-report-to-bigquery",
		w.serviceClients.BigQueryClient,
		w.config.BigQueryDataSource.DatasetName,
		w.config.BigQueryDataSource.ReportTable))

	out.AddCommand(commands.NewReportToGCS(
		"write-report-to-gcs",
		w.serviceClients.StorageClient,
		w.config.Storage.ReportBucket))

	w.chain = out
}

// NewVideoTriggerPipeline is the constructor for the bucket-triggered
// workflow.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: A struct containing initialized clients for GCP services.
//   - agentModelName: The name of the agent model config to use.
//
// Outputs:
//   - A pointer to a newly created and fully initialized workflow.
func NewVideoTriggerPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	agentModelName string) *VideoTriggerWorkflow {

	promptTemplate, err := template.New("compliance-template").Parse(config.PromptTemplates.CompliancePrompt)
	if err != nil {
		panic(err)
	}

	pipeline := &VideoTriggerWorkflow{
		BaseCommand:     *cor.NewBaseCommand("video-trigger-pipeline"),
		config:          config,
		serviceClients:  serviceClients,
		genaiModel:      serviceClients.AgentModels[agentModelName],
		numberOfWorkers: config.Application.ThreadPoolSize,
		promptTemplate:  promptTemplate,
	}
	pipeline.initializeChain()
	return pipeline
}

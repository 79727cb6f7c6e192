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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the primary video compliance analysis workflow: resolve the source, cut it
// into bounded segments, analyze every segment against the guideline, and
// fold the results into a persisted compliance report.
package workflow

import (
	goctx "context"
	"errors"
	"fmt"
	"sort"
	"text/template"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/cloud"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/commands"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// DefaultFfmpegCommand is the FFmpeg executable used for segment cutting when
// no explicit path is configured. It assumes `ffmpeg` is on the system PATH.
const DefaultFfmpegCommand = "ffmpeg"

// DefaultFfprobeCommand is the probe executable used for source validation.
const DefaultFfprobeCommand = "ffprobe"

// ComplianceAnalysisWorkflow orchestrates the end-to-end analysis of one
// video against one guideline document. It is structured as a Chain of
// Responsibility (cor.Chain) whose commands hand the evolving analysis state
// to each other through the shared context.
type ComplianceAnalysisWorkflow struct {
	cor.BaseCommand
	config          *cloud.Config
	serviceClients  *cloud.ServiceClients
	genaiModel      *cloud.QuotaAwareGenerativeAIModel
	numberOfWorkers int
	promptTemplate  *template.Template
	chain           cor.Chain
}

// Execute runs the full analysis chain against the given context.
//
// Inputs:
//   - context: The chain of responsibility context for this execution.
func (w *ComplianceAnalysisWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Run is the programmatic entry point used by the HTTP handlers. It seeds a
// fresh chain context with the video reference and guideline document,
// executes the chain, and translates chain errors back into Go errors.
//
// Inputs:
//   - ctx: The caller's context, honored for cancellation by every command.
//   - video: The seed video reference (URL or uploaded file).
//   - doc: The raw guideline document attached to the request.
//
// Outputs:
//   - *model.Report: The finished compliance report.
//   - error: The first chain error, with sentinel and backend error types
//     preserved for the caller's classification.
func (w *ComplianceAnalysisWorkflow) Run(ctx goctx.Context, video *model.VideoInput, doc *commands.GuidelineDoc) (*model.Report, error) {
	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, video)
	chainCtx.Add(commands.GetGuidelineDocParameterName(), doc)

	w.Execute(chainCtx)

	if chainCtx.HasErrors() {
		return nil, errorFromContext(chainCtx)
	}
	report, ok := chainCtx.Get(commands.GetReportParameterName()).(*model.Report)
	if !ok {
		return nil, errors.New("analysis chain finished without producing a report")
	}
	return report, nil
}

// initializeChain builds the sequence of commands that make up the analysis
// pipeline. Each command is an atomic unit of work whose output feeds the
// next command in the chain.
func (w *ComplianceAnalysisWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	// Step 1: Resolve the caller's reference into a validated local working
	// copy with a known container format and duration.
	out.AddCommand(commands.NewSourceResolver(
		"resolve-video-source",
		DefaultFfprobeCommand,
		w.config.Pipeline.MaxSourceBytes))

	// Step 2: Persist the source into the video bucket so every downstream
	// consumer, including the inference backend, addresses it by gs:// URI.
	out.AddCommand(commands.NewGCSVideoUpload(
		"upload-video-source",
		w.serviceClients.StorageClient,
		w.config.Storage.VideoBucket))

	// Step 3: Parse the guideline document into the grounding context used by
	// every segment prompt.
	out.AddCommand(commands.NewGuidelineLoader("load-guideline"))

	// Step 4: Partition the duration into bounded analysis segments.
	out.AddCommand(commands.NewSegmentPlanner(
		"plan-segments",
		w.config.Pipeline.MaxSegmentSeconds))

	// Step 5: Cut each segment into its own chunk and stage it in GCS.
	out.AddCommand(commands.NewSegmentExtractor(
		"extract-segments",
		DefaultFfmpegCommand,
		w.serviceClients.StorageClient,
		w.config.Storage.VideoBucket))

	// Step 6: Fan the segments out over the worker pool and collect the
	// per-segment findings from the model.
	source := commands.NewGenAIFindingSource(w.GetName(), w.GetMeter(), w.genaiModel)
	out.AddCommand(commands.NewSegmentDispatcher(
		"dispatch-segments",
		source,
		w.promptTemplate,
		w.numberOfWorkers,
		w.config.Pipeline.MaxRetries))

	// Step 7: Rebase, dedup, rate, and assemble the final report.
	out.AddCommand(commands.NewReportAssembly(
		"assemble-report",
		w.config.Pipeline.DedupWindowSeconds))

	// Step 8: Persist the report row for querying.
	out.AddCommand(commands.NewReportPersistToBigQuery(
		"write-report-to-bigquery",
		w.serviceClients.BigQueryClient,
		w.config.BigQueryDataSource.DatasetName,
		w.config.BigQueryDataSource.ReportTable))

	// Step 9: Write the report document next to the video artifacts.
	out.AddCommand(commands.NewReportToGCS(
		"write-report-to-gcs",
		w.serviceClients.StorageClient,
		w.config.Storage.ReportBucket))

	w.chain = out
}

// NewComplianceAnalysisPipeline is the constructor for the full analysis
// workflow, wired against live GCP service clients.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: A struct containing initialized clients for GCP services.
//   - agentModelName: The name of the agent model config to use (e.g., "compliance-pro").
//
// Outputs:
//   - A pointer to a newly created and fully initialized workflow.
func NewComplianceAnalysisPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	agentModelName string) *ComplianceAnalysisWorkflow {

	promptTemplate, err := template.New("compliance-template").Parse(config.PromptTemplates.CompliancePrompt)
	if err != nil {
		panic(err) // The app cannot run without a valid prompt template.
	}

	pipeline := &ComplianceAnalysisWorkflow{
		BaseCommand:     *cor.NewBaseCommand("compliance-analysis-pipeline"),
		config:          config,
		serviceClients:  serviceClients,
		genaiModel:      serviceClients.AgentModels[agentModelName],
		numberOfWorkers: config.Application.ThreadPoolSize,
		promptTemplate:  promptTemplate,
	}
	pipeline.initializeChain()
	return pipeline
}

// NewComplianceAnalysisChain builds the analysis core without any cloud
// dependencies: guideline parsing, segment planning, dispatch against the
// given finding source, and report assembly. The caller seeds the context
// with a VideoInput whose duration is already known.
//
// Inputs:
//   - config: Pipeline tuning and prompt template configuration.
//   - source: The inference backend for segment analysis.
//
// Outputs:
//   - cor.Chain: The assembled chain.
//   - error: Non-nil when the prompt template does not parse.
func NewComplianceAnalysisChain(config *cloud.Config, source commands.FindingSource) (cor.Chain, error) {
	promptTemplate, err := template.New("compliance-template").Parse(config.PromptTemplates.CompliancePrompt)
	if err != nil {
		return nil, fmt.Errorf("invalid compliance prompt template: %w", err)
	}

	out := cor.NewBaseChain("compliance-analysis-chain")
	out.AddCommand(commands.NewGuidelineLoader("load-guideline"))
	out.AddCommand(commands.NewSegmentPlanner("plan-segments", config.Pipeline.MaxSegmentSeconds))
	out.AddCommand(commands.NewSegmentDispatcher(
		"dispatch-segments",
		source,
		promptTemplate,
		config.Application.ThreadPoolSize,
		config.Pipeline.MaxRetries))
	out.AddCommand(commands.NewReportAssembly("assemble-report", config.Pipeline.DedupWindowSeconds))
	return out, nil
}

// errorFromContext picks the first chain error in command-name order, keeping
// reruns deterministic when more than one command recorded a failure.
func errorFromContext(context cor.Context) error {
	errs := context.GetErrors()
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil
	}
	return errs[names[0]]
}

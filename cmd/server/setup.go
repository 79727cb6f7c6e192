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

// Package main contains the setup and initialization logic for the
// application's state. This file creates a centralized state manager holding
// all shared dependencies: configuration, Google Cloud service clients, the
// analysis pipeline, and the report service.
package main

import (
	"context"
	"log"
	"os"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/cloud"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/services"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/workflow"
)

// DefaultAgentModelName is the agent model configuration used for compliance
// analysis, keyed into the `[agent_models]` section of the TOML config.
const DefaultAgentModelName = "compliance-pro"

// StateManager holds all the shared dependencies for the application, acting
// as a centralized container for service clients and configuration. This
// avoids global variables and keeps dependency management clean.
type StateManager struct {
	config        *cloud.Config
	cloud         *cloud.ServiceClients
	pipeline      *workflow.ComplianceAnalysisWorkflow
	reportService *services.ReportService
}

// state is a package-level variable that holds the single instance of StateManager.
var state = &StateManager{}

// SetupOS sets the environment variables the configuration loader uses to
// find the correct TOML files.
//
// Outputs:
//   - error: An error if setting any of the environment variables fails.
func SetupOS() (err error) {
	// Set the directory where configuration files are located.
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	// The config loader will look for a ".env.local.toml" file to override
	// base settings.
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig provides a singleton instance of the application configuration,
// loaded from the file system only once.
//
// Outputs:
//   - *cloud.Config: A pointer to the loaded application configuration struct.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState initializes the entire application state: every Google Cloud
// service client, the report service, the analysis pipeline, and the
// Pub/Sub listeners for the bucket-triggered path.
//
// Inputs:
//   - ctx: The root context.Context for the application, used for managing
//     the lifecycle of client connections and background processes.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	state.reportService = &services.ReportService{
		BigqueryClient: cloudClients.BigQueryClient,
		StorageClient:  cloudClients.StorageClient,
		IAMClient:      cloudClients.IAMClient,
		SignerEmail:    config.Application.SignerServiceAccountEmail,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		ReportTable:    config.BigQueryDataSource.ReportTable,
	}

	state.pipeline = workflow.NewComplianceAnalysisPipeline(config, cloudClients, DefaultAgentModelName)

	// Start the Pub/Sub listeners that react to intake bucket events.
	SetupListeners(config, cloudClients, ctx)
}

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

// Package main contains the logic for setting up and starting the Pub/Sub
// message listeners. The listeners kick off the analysis workflow when a
// video lands in the intake bucket.
package main

import (
	"context"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/cloud"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/workflow"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// listenerLog routes listener lifecycle events through the OpenTelemetry
// log bridge so they land alongside the traces the listeners emit.
var listenerLog = otelslog.NewLogger("cmd/server/listeners")

// SetupListeners configures and starts the background Pub/Sub listeners.
//
// Inputs:
//   - config: The application's configuration, containing topic settings.
//   - cloudClients: A struct containing all the initialized Google Cloud service clients.
//   - ctx: The application's root context, used to manage the lifecycle of the listeners.
//
// Outputs:
//   - This function does not return any value. It starts the listeners as
//     background goroutines.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	// The trigger workflow analyzes intake videos against the standing
	// guideline document configured in storage.
	videoTrigger := workflow.NewVideoTriggerPipeline(config, cloudClients, DefaultAgentModelName)
	cloudClients.PubSubListeners["VideoTopic"].SetCommand(videoTrigger)
	cloudClients.PubSubListeners["VideoTopic"].Listen(ctx)
	listenerLog.InfoContext(ctx, "video intake listener started", "topic", "VideoTopic")
}

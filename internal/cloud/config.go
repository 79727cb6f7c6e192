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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. It provides a structured way to manage settings
// for various components, including Google Cloud services, AI models,
// Pub/Sub topics, pipeline tuning, and prompt templates.
//
// This file centralizes all configuration-related structs, making it easy
// to understand and manage the application's configurable parameters.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the content safety thresholds for the GenAI
// models. Compliance analysis has to look at exactly the material safety
// filters exist to block, so every category is set to block only high-risk
// content. Segments the service still refuses are handled by the dispatcher
// as degraded rather than fatal.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
}

// BigQueryDataSource represents the configuration for a BigQuery data source.
type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`      // The name of the BigQuery dataset.
	ReportTable string `toml:"report_table"` // The table holding finished compliance reports.
}

// PromptTemplates holds the templates for the prompts sent to GenAI models.
type PromptTemplates struct {
	CompliancePrompt string `toml:"compliance"` // The template for per-segment compliance analysis.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large language model (LLM).
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output format for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Storage represents the configuration for storage buckets.
type Storage struct {
	VideoBucket            string `toml:"video_bucket"`             // The bucket where analyzed videos and their segment chunks are persisted.
	ReportBucket           string `toml:"report_bucket"`            // The bucket where finished report documents are written.
	DefaultGuidelineObject string `toml:"default_guideline_object"` // Object in the report bucket holding the guideline document the trigger path analyzes against.
}

// Pipeline holds the tuning knobs for the analysis pipeline itself.
type Pipeline struct {
	MaxSegmentSeconds  float64 `toml:"max_segment_seconds"`  // Maximum length of one analysis segment.
	DedupWindowSeconds float64 `toml:"dedup_window_seconds"` // Window within which same-category findings merge.
	MaxRetries         int     `toml:"max_retries"`          // Bounded retries per segment for transient backend errors.
	MaxSourceBytes     int64   `toml:"max_source_bytes"`     // Cap on the size of a downloaded source video. Zero means no cap.
}

// Config represents the overall configuration for the application, loaded from TOML files.
// It acts as the root container for all other configuration structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		ThreadPoolSize            int    `toml:"thread_pool_size"`             // The size of the worker pool for parallel segment dispatch.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`               // Storage configuration.
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"` // BigQuery data source configuration.
	Pipeline           Pipeline                     `toml:"pipeline"`              // Pipeline tuning configuration.
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`      // Prompt templates configuration.
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`   // A map of Pub/Sub topic subscriptions, keyed by a logical name (e.g., "VideoTopic").
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`          // A map of Vertex AI LLM models, keyed by a logical name (e.g., "compliance-pro").
}

// NewConfig is a constructor function that creates a new, initialized Config instance.
// It's important to initialize the maps within the struct to avoid nil pointer panics
// when the configuration loader tries to populate them.
//
// Outputs:
//   - *Config: A pointer to a new Config struct with its map fields initialized.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
}

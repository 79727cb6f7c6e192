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

// This file implements a rate-limiting decorator around the Generative AI
// model handle. Vertex AI enforces per-minute request quotas; the wrapper
// makes every caller pass through a shared token bucket before a request
// goes out. Retry policy lives with the caller, not here, so the dispatcher
// can account for degraded segments.
package cloud

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel wraps a generative model handle together with
// its generation config and a rate limiter. All requests for one configured
// agent flow through the same limiter.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             *genai.Models
	RateLimit               *rate.Limiter
}

// NewQuotaAwareModel creates a new rate-limited model wrapper.
//
// Inputs:
//   - config: the generation config applied to every request.
//   - name: the Vertex AI model name, e.g. "gemini-2.0-flash".
//   - handle: the shared model handle from the GenAI client.
//   - requestsPerSecond: the sustained request rate allowed, which is also
//     the burst size.
//
// Outputs:
//   - *QuotaAwareGenerativeAIModel: A pointer to the newly created wrapper.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
	}
}

// GenerateContent blocks until the rate limiter releases a token, then
// forwards the request to the underlying model. Cancelling the context
// releases a waiting caller.
//
// Inputs:
//   - ctx: The context for the request.
//   - content: The parts of the multi-modal prompt (text, video, etc.).
//
// Outputs:
//   - *genai.GenerateContentResponse: The response from the AI model.
//   - error: The backend error, unmodified so callers can classify it.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, err
	}
	return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
}

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

// Package main contains the API route definitions for the server. This file
// defines the statistics endpoint backing the review dashboard.
package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dashboard configures the statistics routes for the review dashboard.
// It creates a "/stats" group nested under the main API router group.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the new "/stats" route group will be added.
func Dashboard(r *gin.RouterGroup) {
	stats := r.Group("/stats")
	{
		// GET /stats summarizes recent analysis activity: how many runs, how
		// many finished degraded, and the ratings handed out.
		stats.GET("", func(c *gin.Context) {
			summaries, err := state.reportService.List(c, 100)
			if err != nil {
				c.Status(http.StatusInternalServerError)
				return
			}

			incomplete := 0
			byRating := make(map[string]int)
			for _, s := range summaries {
				if !s.Complete {
					incomplete++
				}
				byRating[string(s.SuggestedRating)]++
			}
			c.JSON(http.StatusOK, gin.H{
				"recent_reports":     len(summaries),
				"incomplete_reports": incomplete,
				"by_rating":          byRating,
			})
		})
	}
}

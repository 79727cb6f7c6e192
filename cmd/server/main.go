// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// *****************************************************************************************************//
// Package main is the entry point for the video compliance analysis server.
//
// The application runs a Gin web server exposing a REST API for submitting
// videos for compliance analysis and retrieving the resulting reports. The
// server is instrumented with OpenTelemetry for logging, tracing, and
// metrics.
//
// The main function initializes the application's configuration, sets up
// logging and telemetry, and initializes the application state, including
// clients for Google Cloud services and the analysis pipeline. It also
// starts background listeners so videos dropped in the intake bucket are
// analyzed without an API call.
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/commands"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/compliance"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/telemetry"
)

// main is the primary entry point for the application. It orchestrates the
// setup of logging, telemetry, configuration, cloud services, the web
// server, API routes, and background listeners, and handles graceful
// shutdown of the server upon receiving an interrupt signal.
func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()

	// Trace incoming requests.
	r.Use(otelgin.Middleware(config.Application.Name))

	// Permissive CORS suitable for development.
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		AnalysisRouter(apiV1)
		Dashboard(apiV1)
	}

	srv := newServer(r)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// newServer builds the HTTP server around the router. Multipart video
// uploads on slow links can take minutes, so only the header read is bounded
// tightly; the body read has no deadline of its own. Analysis runs
// synchronously and a long video can take a while, so the write timeout is
// generous.
func newServer(handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":8080",
		Handler:           handler,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      30 * time.Minute,
	}
}

// AnalysisRouter sets up the API routes for compliance analysis.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the analysis routes will be added.
//
// This function defines the following endpoints:
//   - POST /analyses: Submits a video (by URL or upload) with a guideline
//     document and runs the analysis synchronously.
//   - GET /analyses: Lists the most recent report summaries.
//   - GET /analyses/:id: Retrieves a persisted report by its run ID.
//   - GET /analyses/:id/stream: Generates a time-limited, signed URL for
//     securely streaming the analyzed video.
func AnalysisRouter(r *gin.RouterGroup) {
	analyses := r.Group("/analyses")
	{
		// Handler for POST /analyses
		analyses.POST("", func(c *gin.Context) {
			video, doc, err := parseAnalysisRequest(c)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			report, err := state.pipeline.Run(c.Request.Context(), video, doc)
			if err != nil {
				status, message := classifyPipelineError(err)
				c.JSON(status, gin.H{"error": message})
				return
			}
			c.JSON(http.StatusOK, report)
		})

		// Handler for GET /analyses?count=<n>
		analyses.GET("", func(c *gin.Context) {
			count, err := strconv.Atoi(c.DefaultQuery("count", "20"))
			if err != nil || count < 1 {
				count = 20
			}
			summaries, err := state.reportService.List(c, count)
			if err != nil {
				log.Printf("Error listing reports: %v\n", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, summaries)
		})

		// Handler for GET /analyses/:id
		analyses.GET("/:id", func(c *gin.Context) {
			id := c.Param("id")
			out, err := state.reportService.Get(c, id)
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		// Handler for GET /analyses/:id/stream
		// Provides a secure, time-limited URL for streaming the analyzed video.
		analyses.GET("/:id/stream", func(c *gin.Context) {
			id := c.Param("id")
			report, err := state.reportService.Get(c, id)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
				return
			}

			signedURL, err := state.reportService.GenerateSignedURL(c, report.VideoURL, 15*time.Minute)
			if err != nil {
				log.Printf("Error generating signed URL: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate streaming URL"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": signedURL})
		})
	}
}

// parseAnalysisRequest decodes the multipart submission into a seed
// VideoInput and the attached guideline document. The caller supplies either
// a "url" form value or a "video" file part, and always a "guideline" file
// part.
func parseAnalysisRequest(c *gin.Context) (*model.VideoInput, *commands.GuidelineDoc, error) {
	guidelineHeader, err := c.FormFile("guideline")
	if err != nil {
		return nil, nil, errors.New("missing guideline document")
	}
	guidelineFile, err := guidelineHeader.Open()
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = guidelineFile.Close() }()
	data, err := io.ReadAll(guidelineFile)
	if err != nil {
		return nil, nil, err
	}
	doc := &commands.GuidelineDoc{Name: guidelineHeader.Filename, Data: data}

	if url := c.PostForm("url"); url != "" {
		video := &model.VideoInput{
			ID:        uuid.New().String(),
			Kind:      model.SourceKindURL,
			Reference: url,
			Title:     strings.TrimSuffix(filepath.Base(url), filepath.Ext(url)),
		}
		return video, doc, nil
	}

	videoHeader, err := c.FormFile("video")
	if err != nil {
		return nil, nil, errors.New("request needs either a url value or a video file")
	}
	localPath := filepath.Join(os.TempDir(), uuid.New().String()+filepath.Ext(videoHeader.Filename))
	if err := c.SaveUploadedFile(videoHeader, localPath); err != nil {
		return nil, nil, err
	}
	video := &model.VideoInput{
		ID:        uuid.New().String(),
		Kind:      model.SourceKindUpload,
		Reference: videoHeader.Filename,
		LocalPath: localPath,
		Title:     strings.TrimSuffix(videoHeader.Filename, filepath.Ext(videoHeader.Filename)),
		MIMEType:  videoHeader.Header.Get("Content-Type"),
	}
	return video, doc, nil
}

// classifyPipelineError maps pipeline failures onto HTTP statuses: caller
// mistakes are 400s, inference backend failures are 502s, everything else is
// a 500.
func classifyPipelineError(err error) (int, string) {
	switch {
	case errors.Is(err, compliance.ErrUnreachableSource),
		errors.Is(err, compliance.ErrUnsupportedFormat),
		errors.Is(err, compliance.ErrInvalidDuration),
		errors.Is(err, compliance.ErrUnparsableGuideline),
		errors.Is(err, compliance.ErrNoRatingScale):
		return http.StatusBadRequest, err.Error()
	}
	var backendErr *compliance.BackendError
	if errors.As(err, &backendErr) {
		return http.StatusBadGateway, backendErr.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

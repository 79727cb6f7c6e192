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

// This file defines the first substantive command of the analysis chain: the
// source resolver. It turns the caller's reference (a URL or an uploaded
// file) into a validated local working copy with known format and duration.
//
// Logic Flow:
//  1. For URL sources, validate reachability with a HEAD request and then
//     download the content to a temporary file.
//  2. For uploads, the local file already exists; verify it is readable.
//  3. Sniff the file signature to confirm it is a supported video container.
//  4. Probe the file with ffprobe for its container format and duration.
//  5. Reject zero, negative, or undeterminable durations.
//  6. Publish the completed VideoInput for the rest of the chain.
package commands

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"github.com/h2non/filetype/types"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/compliance"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/cor"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// supportedVideoTypes lists the container signatures the pipeline accepts.
var supportedVideoTypes = []types.Type{
	matchers.TypeMp4,
	matchers.TypeMov,
	matchers.TypeWebm,
	matchers.TypeMkv,
	matchers.TypeAvi,
	matchers.TypeMpeg,
	matchers.TypeFlv,
}

// SourceResolver is a command that resolves the video reference of an
// analysis request into a validated local file.
type SourceResolver struct {
	cor.BaseCommand
	httpClient     *http.Client
	ffprobePath    string
	maxSourceBytes int64
}

// NewSourceResolver is the constructor for the SourceResolver command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - ffprobePath: The path to the ffprobe executable.
//   - maxSourceBytes: Cap on the size of a downloaded video. Zero disables the cap.
//
// Outputs:
//   - *SourceResolver: A pointer to the newly instantiated command.
func NewSourceResolver(name string, ffprobePath string, maxSourceBytes int64) *SourceResolver {
	return &SourceResolver{
		BaseCommand:    *cor.NewBaseCommand(name),
		httpClient:     &http.Client{Timeout: 5 * time.Minute},
		ffprobePath:    ffprobePath,
		maxSourceBytes: maxSourceBytes,
	}
}

// Execute resolves and validates the video source.
//
// Inputs:
//   - context: The shared `cor.Context`, carrying the seed *model.VideoInput
//     in the input parameter.
func (c *SourceResolver) Execute(context cor.Context) {
	video := context.Get(c.GetInputParam()).(*model.VideoInput)
	if video.ID == "" {
		video.ID = uuid.New().String()
	}

	var err error
	switch video.Kind {
	case model.SourceKindURL:
		err = c.fetchURL(context, video)
	case model.SourceKindUpload:
		if _, statErr := os.Stat(video.LocalPath); statErr != nil {
			err = fmt.Errorf("%w: %s: %v", compliance.ErrUnreachableSource, video.Reference, statErr)
		}
	default:
		err = fmt.Errorf("%w: unknown source kind %q", compliance.ErrUnreachableSource, video.Kind)
	}
	if err != nil {
		c.fail(context, err)
		return
	}

	if err := c.validateFormat(video); err != nil {
		c.fail(context, err)
		return
	}

	probe, err := ProbeVideo(context.GetContext(), c.ffprobePath, video.LocalPath)
	if err != nil {
		// A file ffprobe cannot read is not a video the pipeline supports.
		c.fail(context, fmt.Errorf("%w: %v", compliance.ErrUnsupportedFormat, err))
		return
	}
	if probe.Duration <= 0 {
		c.fail(context, fmt.Errorf("%w: probed duration %v", compliance.ErrInvalidDuration, probe.Duration))
		return
	}
	video.Format = probe.FormatName
	video.Duration = probe.Duration
	if video.MIMEType == "" {
		video.MIMEType = "video/mp4"
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetVideoInputParameterName(), video)
	context.Add(c.GetOutputParam(), video)
}

// fetchURL validates reachability of the reference and downloads it to a
// temporary file tracked by the context.
func (c *SourceResolver) fetchURL(context cor.Context, video *model.VideoInput) error {
	head, err := http.NewRequestWithContext(context.GetContext(), http.MethodHead, video.Reference, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", compliance.ErrUnreachableSource, video.Reference, err)
	}
	resp, err := c.httpClient.Do(head)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", compliance.ErrUnreachableSource, video.Reference, err)
	}
	_ = resp.Body.Close()
	// CDNs and pre-signed URLs commonly refuse HEAD while serving the same
	// URL over GET, so method-not-allowed responses fall through to the GET.
	headRefused := resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented
	if resp.StatusCode >= 400 && !headRefused {
		return fmt.Errorf("%w: %s: status %d", compliance.ErrUnreachableSource, video.Reference, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !headRefused {
		video.MIMEType = ct
	}

	get, err := http.NewRequestWithContext(context.GetContext(), http.MethodGet, video.Reference, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", compliance.ErrUnreachableSource, video.Reference, err)
	}
	body, err := c.httpClient.Do(get)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", compliance.ErrUnreachableSource, video.Reference, err)
	}
	defer func() { _ = body.Body.Close() }()
	if body.StatusCode >= 400 {
		return fmt.Errorf("%w: %s: status %d", compliance.ErrUnreachableSource, video.Reference, body.StatusCode)
	}

	tempFile, err := os.CreateTemp("", "source-video-")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	context.AddTempFile(tempFile.Name())

	reader := io.Reader(body.Body)
	if c.maxSourceBytes > 0 {
		reader = io.LimitReader(body.Body, c.maxSourceBytes)
	}
	if _, err := io.Copy(tempFile, reader); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("%w: %s: %v", compliance.ErrUnreachableSource, video.Reference, err)
	}
	_ = tempFile.Close()
	video.LocalPath = tempFile.Name()
	return nil
}

// validateFormat sniffs the file signature and rejects non-video content.
func (c *SourceResolver) validateFormat(video *model.VideoInput) error {
	file, err := os.Open(video.LocalPath)
	if err != nil {
		return fmt.Errorf("%w: %v", compliance.ErrUnreachableSource, err)
	}
	defer func() { _ = file.Close() }()

	// 261 bytes covers every signature the matcher set knows.
	head := make([]byte, 261)
	n, err := io.ReadFull(file, head)
	if err != nil && n == 0 {
		return fmt.Errorf("%w: empty file", compliance.ErrUnsupportedFormat)
	}

	kind, err := filetype.Match(head[:n])
	if err != nil {
		return fmt.Errorf("%w: %v", compliance.ErrUnsupportedFormat, err)
	}
	for _, t := range supportedVideoTypes {
		if kind == t {
			if video.MIMEType == "" || video.MIMEType == "application/octet-stream" {
				video.MIMEType = kind.MIME.Value
			}
			return nil
		}
	}
	return fmt.Errorf("%w: detected %q", compliance.ErrUnsupportedFormat, kind.MIME.Value)
}

func (c *SourceResolver) fail(context cor.Context, err error) {
	c.GetErrorCounter().Add(context.GetContext(), 1)
	context.AddError(c.GetName(), err)
}

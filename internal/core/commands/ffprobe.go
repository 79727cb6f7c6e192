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

// This file wraps the ffprobe tool, which the source resolver uses to read
// the container format and duration of a resolved video file.
package commands

import (
	"bytes"
	goctx "context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"encoding/json"
)

const (
	// DefaultFfprobeArgs is a format string for the ffprobe command.
	// -v error: only report real failures on stderr.
	// -print_format json -show_format: emit the container metadata as JSON.
	// %s: the input file path.
	DefaultFfprobeArgs = "-v error -print_format json -show_format %s"
	CommandSeparator   = " "
)

// ffprobeFormat mirrors the "format" object of ffprobe's JSON output.
type ffprobeFormat struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// ProbeResult holds the container metadata the pipeline needs from a video.
type ProbeResult struct {
	FormatName string  // Comma-separated container names, e.g. "mov,mp4,m4a,3gp,3g2,mj2".
	Duration   float64 // Total duration in seconds.
}

// ProbeVideo runs ffprobe against a local file and parses the result.
//
// Inputs:
//   - ctx: The context governing the subprocess.
//   - commandPath: The path to the ffprobe executable.
//   - path: The local file to probe.
//
// Outputs:
//   - *ProbeResult: The parsed container metadata.
//   - error: The ffprobe or parse failure.
func ProbeVideo(ctx goctx.Context, commandPath string, path string) (*ProbeResult, error) {
	args := fmt.Sprintf(DefaultFfprobeArgs, path)
	cmd := exec.CommandContext(ctx, commandPath, strings.Split(args, CommandSeparator)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var parsed ffprobeFormat
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	out := &ProbeResult{FormatName: parsed.Format.FormatName}
	if parsed.Format.Duration != "" {
		duration, err := strconv.ParseFloat(parsed.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse duration %q: %w", parsed.Format.Duration, err)
		}
		out.Duration = duration
	}
	return out, nil
}

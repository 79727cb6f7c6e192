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

// Package compliance implements the deterministic core of the analysis
// pipeline: segmentation planning, finding aggregation, rating inference,
// and report assembly. Everything in this package is pure computation so it
// can be tested without any cloud dependency.
package compliance

import (
	"errors"
	"fmt"
)

// Fatal analysis errors. Each one aborts the run; no partial report is
// produced when any of these is returned.
var (
	// ErrUnreachableSource indicates the video reference could not be
	// fetched or opened.
	ErrUnreachableSource = errors.New("video source unreachable")
	// ErrUnsupportedFormat indicates the resolved file is not a video
	// format the pipeline can process.
	ErrUnsupportedFormat = errors.New("unsupported video format")
	// ErrInvalidDuration indicates the video has a zero, negative, or
	// undeterminable duration.
	ErrInvalidDuration = errors.New("invalid video duration")
	// ErrUnparsableGuideline indicates no usable text could be extracted
	// from the guideline document.
	ErrUnparsableGuideline = errors.New("unparsable guideline document")
	// ErrNoRatingScale indicates the guideline context carries no valid
	// rating scale to infer against.
	ErrNoRatingScale = errors.New("no rating scale available")
)

// BackendError wraps a non-retryable inference backend failure. It carries
// the index of the segment whose dispatch failed so the caller can report
// exactly where the run stopped.
type BackendError struct {
	SegmentIndex int
	Err          error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("inference backend failed on segment %d: %v", e.SegmentIndex, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

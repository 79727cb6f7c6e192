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

// Package guideline extracts the analysis context from a content guideline
// document. Guidelines arrive as PDF or plain text; the loader produces the
// raw text used to ground the inference prompt plus the rating scale the
// document defines.
package guideline

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/compliance"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// pdfMagic is the signature at the start of every PDF document.
var pdfMagic = []byte("%PDF")

// ratingCodePattern matches the classification codes as they appear in
// guideline text, including hyphenated forms like "PG-13". Uppercase only so
// that a stray word like "g" never registers as a code.
var ratingCodePattern = regexp.MustCompile(`\b(PG-?13|NC-?16|M-?18|R-?21|PG|G)\b`)

// Load parses a guideline document into a GuidelineContext. PDF documents
// are detected by signature and have their text extracted; anything else is
// treated as UTF-8 text. A document from which no usable text can be
// extracted yields ErrUnparsableGuideline.
//
// When the document names at least two distinct classification codes, those
// codes (in canonical restrictiveness order) become the rating scale.
// Otherwise the full default scale is used, since a guideline that mentions
// a single code in passing has not defined a scale.
//
// Inputs:
//   - name: the document file name, used only for error context.
//   - data: the raw document bytes.
//
// Outputs:
//   - *model.GuidelineContext: the extracted text and rating scale.
//   - error: ErrUnparsableGuideline (wrapped) on failure.
func Load(name string, data []byte) (*model.GuidelineContext, error) {
	var text string
	if bytes.HasPrefix(data, pdfMagic) {
		extracted, err := extractPDFText(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", compliance.ErrUnparsableGuideline, name, err)
		}
		text = extracted
	} else {
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: %s: not valid UTF-8 text", compliance.ErrUnparsableGuideline, name)
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s: document contains no text", compliance.ErrUnparsableGuideline, name)
	}

	return &model.GuidelineContext{
		RawText:     text,
		RatingCodes: extractRatingScale(text),
	}, nil
}

// extractPDFText pulls the plain text out of a PDF document.
func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// extractRatingScale scans the text for classification codes and returns
// the scale they form, or the full default scale when fewer than two
// distinct codes are found.
func extractRatingScale(text string) []model.RatingCode {
	found := make(map[model.RatingCode]bool)
	for _, match := range ratingCodePattern.FindAllString(text, -1) {
		if code, ok := model.ParseRatingCode(match); ok {
			found[code] = true
		}
	}
	if len(found) < 2 {
		out := make([]model.RatingCode, len(model.RatingScale))
		copy(out, model.RatingScale)
		return out
	}
	out := make([]model.RatingCode, 0, len(found))
	for _, code := range model.RatingScale {
		if found[code] {
			out = append(out, code)
		}
	}
	return out
}

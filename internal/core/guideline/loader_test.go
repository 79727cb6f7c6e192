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

package guideline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/compliance"
	"github.com/giranntu/IMDAComplianceAnalyzer/internal/core/model"
)

// TestLoadPlainText verifies that a UTF-8 text guideline loads directly and
// that the codes it names become the rating scale in canonical order.
func TestLoadPlainText(t *testing.T) {
	doc := []byte(`Classification Guidelines.
Films rated NC-16 are restricted to persons 16 and above.
Films rated PG may contain mild thematic elements.
Films rated R21 are restricted to adults.`)

	gctx, err := Load("guidelines.txt", doc)
	assert.NoError(t, err)
	assert.Contains(t, gctx.RawText, "Classification Guidelines")
	assert.Equal(t, []model.RatingCode{model.RatingPG, model.RatingNC16, model.RatingR21}, gctx.RatingCodes)
}

// TestLoadDefaultScale verifies the full default scale applies when the
// document names fewer than two distinct codes.
func TestLoadDefaultScale(t *testing.T) {
	gctx, err := Load("notes.txt", []byte("General notes about acceptable content."))
	assert.NoError(t, err)
	assert.Equal(t, model.RatingScale, gctx.RatingCodes)
}

// TestLoadEmptyDocument verifies that whitespace-only content is rejected
// with the sentinel error.
func TestLoadEmptyDocument(t *testing.T) {
	_, err := Load("empty.txt", []byte("   \n\t  "))
	assert.True(t, errors.Is(err, compliance.ErrUnparsableGuideline))
}

// TestLoadCorruptPDF verifies that a document carrying the PDF signature but
// no parsable structure is rejected rather than treated as text.
func TestLoadCorruptPDF(t *testing.T) {
	_, err := Load("broken.pdf", []byte("%PDF-1.7 not actually a pdf"))
	assert.True(t, errors.Is(err, compliance.ErrUnparsableGuideline))
}

// TestLoadInvalidEncoding verifies non-UTF-8 binary content is rejected.
func TestLoadInvalidEncoding(t *testing.T) {
	_, err := Load("binary.bin", []byte{0xff, 0xfe, 0x00, 0x81})
	assert.True(t, errors.Is(err, compliance.ErrUnparsableGuideline))
}

// TestLoadHyphenatedCodes verifies hyphenated forms like "PG-13" normalize
// to their canonical codes.
func TestLoadHyphenatedCodes(t *testing.T) {
	gctx, err := Load("g.txt", []byte("Ratings in use: PG-13, M-18."))
	assert.NoError(t, err)
	assert.Equal(t, []model.RatingCode{model.RatingPG13, model.RatingM18}, gctx.RatingCodes)
}

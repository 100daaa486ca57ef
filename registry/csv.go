// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package registry

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

// CSVHandler extracts messages from a CSV file with a header row. Columns
// are matched by name using the same aliases as the json format.
type CSVHandler struct{}

var _ FormatHandler = (*CSVHandler)(nil)

// NewCSVHandler creates the csv handler.
func NewCSVHandler() *CSVHandler {
	return &CSVHandler{}
}

func (h *CSVHandler) Name() string { return "csv" }
func (h *CSVHandler) Media() bool  { return false }

func (h *CSVHandler) Matches(desc core.Descriptor) bool {
	return strings.EqualFold(desc.Format, "csv") || mimeBase(desc.MIMEType) == "text/csv"
}

type csvColumns struct {
	speaker, content, timestamp int
}

func (h *CSVHandler) Validate(raw core.RawContent) error {
	r := newCSVReader(raw.Data)
	header, err := r.Read()
	if err != nil {
		return malformed("csv: header: %v", err)
	}
	if _, err := mapColumns(header); err != nil {
		return err
	}
	return nil
}

func (h *CSVHandler) Extract(ctx context.Context, raw core.RawContent) (*core.ExtractedContent, error) {
	r := newCSVReader(raw.Data)
	header, err := r.Read()
	if err != nil {
		return nil, malformed("csv: header: %v", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	ec := &core.ExtractedContent{ProviderOrdered: true, ContentType: core.ContentTypeText}
	for row := 2; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			ec.Warnings = append(ec.Warnings, fmt.Sprintf("row %d skipped: %v", row, err))
			continue
		}
		ec.Entries = append(ec.Entries, core.Entry{
			Ordinal:      len(ec.Entries),
			SpeakerRaw:   column(record, cols.speaker),
			TextRaw:      column(record, cols.content),
			TimestampRaw: column(record, cols.timestamp),
		})
	}
	return ec, nil
}

func newCSVReader(data []byte) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r
}

func mapColumns(header []string) (csvColumns, error) {
	find := func(keys []string) int {
		for i, h := range header {
			if slices.Contains(keys, strings.ToLower(strings.TrimSpace(h))) {
				return i
			}
		}
		return -1
	}
	cols := csvColumns{
		speaker:   find(speakerKeys),
		content:   find(contentKeys),
		timestamp: find(timestampKeys),
	}
	if cols.content < 0 {
		return cols, malformed("csv: no content column in header %v", header)
	}
	return cols, nil
}

func column(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

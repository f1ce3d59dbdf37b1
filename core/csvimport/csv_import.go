/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package csvimport loads CSV/TSV uploads into record sets. Uploads come
// from spreadsheets in the wild, so the importer sniffs the delimiter,
// tolerates ragged rows, decodes a handful of legacy encodings, and maps
// NA tokens to missing values.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"github.com/pivora/pivora/core/records"
)

// Field types reported for imported columns.
const (
	TypeNumber = "number"
	TypeString = "string"
)

// naValues are cell contents treated as missing.
var naValues = map[string]bool{
	"":     true,
	"NULL": true,
	"null": true,
	"N/A":  true,
	"n/a":  true,
	"NA":   true,
	"na":   true,
}

// ImportOptions configures an import.
type ImportOptions struct {
	// Delimiter is the field delimiter; 0 means sniff it from the data.
	Delimiter rune
	// StartRow is the 1-based row holding the headers; rows above it are
	// skipped. 0 means row 1.
	StartRow int
	// SampleSize is the number of rows sampled for column type detection
	// (default 100).
	SampleSize int
}

// Dataset is an imported record set plus its discovered schema.
type Dataset struct {
	Fields     []string
	FieldTypes map[string]string
	Records    []records.Record
}

// Import parses raw CSV/TSV bytes into a dataset.
func Import(content []byte, options ImportOptions) (*Dataset, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	text, err := decode(content)
	if err != nil {
		return nil, err
	}

	delimiter := options.Delimiter
	if delimiter == 0 {
		delimiter = DetectDelimiter(text)
	}

	csvReader := csv.NewReader(strings.NewReader(text))
	csvReader.Comma = delimiter
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	headerIdx := options.StartRow - 1
	if headerIdx < 0 {
		headerIdx = 0
	}
	if headerIdx >= len(rows) {
		return nil, fmt.Errorf("start row %d is past the end of the file", options.StartRow)
	}

	headers := cleanHeaders(rows[headerIdx])
	if len(headers) == 0 {
		return nil, fmt.Errorf("no columns found in header row")
	}
	dataRows := dropEmptyRows(rows[headerIdx+1:])
	if len(dataRows) == 0 {
		return nil, fmt.Errorf("CSV file has no data rows")
	}

	sampleSize := options.SampleSize
	if sampleSize <= 0 {
		sampleSize = 100
	}
	types := detectColumnTypes(headers, dataRows, sampleSize)

	recs := make([]records.Record, 0, len(dataRows))
	for _, row := range dataRows {
		rec := make(records.Record, len(headers))
		for i, header := range headers {
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			if naValues[value] {
				rec[header] = nil
				continue
			}
			if types[header] == TypeNumber {
				rec[header] = records.Coerce(value)
			} else {
				rec[header] = value
			}
		}
		recs = append(recs, rec)
	}

	return &Dataset{Fields: headers, FieldTypes: types, Records: recs}, nil
}

// DetectDelimiter picks the most plausible delimiter by scoring each
// candidate over the first lines: a high, consistent per-line count wins.
// Falls back to comma.
func DetectDelimiter(text string) rune {
	var lines []string
	for _, line := range strings.SplitN(text, "\n", 6) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
		if len(lines) == 5 {
			break
		}
	}
	if len(lines) == 0 {
		return ','
	}

	best, bestScore := ',', 0.0
	for _, sep := range []rune{',', '\t', ';', '|'} {
		minCount, maxCount, total := -1, 0, 0
		for _, line := range lines {
			c := strings.Count(line, string(sep))
			total += c
			if minCount < 0 || c < minCount {
				minCount = c
			}
			if c > maxCount {
				maxCount = c
			}
		}
		if maxCount == 0 {
			continue
		}
		avg := float64(total) / float64(len(lines))
		consistency := 1.0 / (1.0 + float64(maxCount-minCount))
		if score := avg * consistency; score > bestScore {
			best, bestScore = sep, score
		}
	}
	if bestScore < 0.5 {
		return ','
	}
	return best
}

// decode converts raw upload bytes to UTF-8 text. BOMs decide UTF-16;
// otherwise valid UTF-8 passes through and legacy content falls back to
// GBK, then Latin-1.
func decode(content []byte) (string, error) {
	switch {
	case bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}):
		return string(content[3:]), nil
	case bytes.HasPrefix(content, []byte{0xFF, 0xFE}), bytes.HasPrefix(content, []byte{0xFE, 0xFF}):
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, err := decoder.Bytes(content)
		if err != nil {
			return "", fmt.Errorf("failed to decode UTF-16: %w", err)
		}
		return string(out), nil
	case utf8.Valid(content):
		return string(content), nil
	}

	// Decoders substitute U+FFFD for bytes they cannot map, so a clean
	// GBK round means the decode actually fit.
	if out, err := simplifiedchinese.GBK.NewDecoder().Bytes(content); err == nil && !bytes.ContainsRune(out, utf8.RuneError) {
		return string(out), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return "", fmt.Errorf("failed to decode file: %w", err)
	}
	return string(out), nil
}

// cleanHeaders trims header cells and fills in names for blank ones.
// A trailing run of blank headers usually comes from stray delimiters
// and is dropped.
func cleanHeaders(row []string) []string {
	for len(row) > 0 && strings.TrimSpace(row[len(row)-1]) == "" {
		row = row[:len(row)-1]
	}
	headers := make([]string, 0, len(row))
	for i, h := range row {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		headers = append(headers, h)
	}
	return headers
}

func dropEmptyRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}

// detectColumnTypes samples rows and marks a column numeric when it has
// at least one value and every non-missing sampled value parses as a
// number, using the same locale rules the aggregation applies.
func detectColumnTypes(headers []string, rows [][]string, sampleSize int) map[string]string {
	if sampleSize > len(rows) {
		sampleSize = len(rows)
	}
	types := make(map[string]string, len(headers))
	for i, header := range headers {
		seen := false
		numeric := true
		for _, row := range rows[:sampleSize] {
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			if naValues[value] {
				continue
			}
			seen = true
			if !parsesAsNumber(value) {
				numeric = false
				break
			}
		}
		if seen && numeric {
			types[header] = TypeNumber
		} else {
			types[header] = TypeString
		}
	}
	return types
}

func parsesAsNumber(s string) bool {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	// Locale-formatted values like "1.234,56" do not satisfy ParseFloat
	// but still coerce; unparsable text coerces to exactly 0.
	if records.Coerce(s) != 0 {
		return true
	}
	// "0,00" and friends coerce to 0 legitimately.
	trimmed := strings.Trim(s, "0.,- ")
	return trimmed == "" && strings.ContainsAny(s, "0123456789")
}

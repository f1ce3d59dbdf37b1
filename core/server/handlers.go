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

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/pivora/pivora/core/csvimport"
	"github.com/pivora/pivora/core/filter"
	"github.com/pivora/pivora/core/format"
	"github.com/pivora/pivora/core/formula"
	"github.com/pivora/pivora/core/pivot"
	"github.com/pivora/pivora/core/prefs"
	"github.com/pivora/pivora/core/records"
)

const (
	defaultPeekLimit   = 50
	defaultQueryLimit  = 100
	defaultFieldSample = 200
	maxUploadBytes     = 64 << 20
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"datasets": s.datasets.List()})
}

// handleFields samples records and returns the union of their field
// names, so fields that appear late in a sparse dataset still show up.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	ds := s.datasets.Get(r.URL.Query().Get("dataset"))
	if ds == nil {
		s.writeError(w, http.StatusNotFound, "dataset not found")
		return
	}
	sample := intParam(r, "sample", defaultFieldSample)
	if sample > len(ds.Records) {
		sample = len(ds.Records)
	}
	seen := make(map[string]bool)
	for _, rec := range ds.Records[:sample] {
		for name := range rec {
			seen[name] = true
		}
	}
	fields := make([]string, 0, len(seen))
	for name := range seen {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"dataset": ds.ID,
		"fields":  fields,
		"types":   ds.FieldTypes,
	})
}

func (s *Server) handlePeek(w http.ResponseWriter, r *http.Request) {
	ds := s.datasets.Get(r.URL.Query().Get("dataset"))
	if ds == nil {
		s.writeError(w, http.StatusNotFound, "dataset not found")
		return
	}
	limit := intParam(r, "limit", defaultPeekLimit)
	if limit > len(ds.Records) {
		limit = len(ds.Records)
	}
	rows := make([]records.Record, 0, limit)
	for _, rec := range ds.Records[:limit] {
		rows = append(rows, safeRecord(rec))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"count": len(rows), "rows": rows})
}

type queryRequest struct {
	Dataset    string      `json:"dataset"`
	Filters    filter.Tree `json:"filters"`
	Projection []string    `json:"projection,omitempty"`
	Skip       int         `json:"skip"`
	Limit      int         `json:"limit"`
}

// handleQuery returns records matching a structural filter, with
// optional projection and paging.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	ds := s.datasets.Get(req.Dataset)
	if ds == nil {
		s.writeError(w, http.StatusNotFound, "dataset not found")
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	skip := req.Skip

	rows := make([]records.Record, 0, limit)
	for _, rec := range ds.Records {
		if !filter.Matches(rec, req.Filters) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		rows = append(rows, project(safeRecord(rec), req.Projection))
		if len(rows) == limit {
			break
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"count": len(rows), "rows": rows})
}

type metricSpec struct {
	Field string `json:"field"`
	Agg   string `json:"agg"`
}

type fallbackSpec struct {
	Enabled bool    `json:"enabled"`
	Value   float64 `json:"value"`
}

type pivotRequest struct {
	Dataset        string                         `json:"dataset"`
	Rows           []string                       `json:"rows"`
	Cols           []string                       `json:"cols"`
	Metrics        []metricSpec                   `json:"metrics"`
	ComputedFields []prefs.ComputedField          `json:"computedFields,omitempty"`
	Fallback       *fallbackSpec                  `json:"fallback,omitempty"`
	Filters        filter.Tree                    `json:"filters,omitempty"`
	DimFilters     map[string]string              `json:"dimFilters,omitempty"`
	MetricFilters  map[string]filter.MetricBounds `json:"metricFilters,omitempty"`
	Subtotals      bool                           `json:"subtotals"`
	Sort           *prefs.SortSpec                `json:"sort,omitempty"`
	Formats        map[string]format.Spec         `json:"formats,omitempty"`
}

type pivotResponse struct {
	Header           pivot.Header `json:"header"`
	DataRows         []pivot.Row  `json:"dataRows"`
	SummaryRow       pivot.Row    `json:"summaryRow"`
	ColumnKeys       []string     `json:"columnKeys"`
	FormattedRows    [][]string   `json:"formattedRows"`
	FormattedSummary []string     `json:"formattedSummary"`
	RowCount         int          `json:"rowCount"`
}

// handlePivot runs the full pipeline: filter, computed fields, aggregate,
// materialize, sort, format.
func (s *Server) handlePivot(w http.ResponseWriter, r *http.Request) {
	var req pivotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	ds := s.datasets.Get(req.Dataset)
	if ds == nil {
		s.writeError(w, http.StatusNotFound, "dataset not found")
		return
	}
	if len(req.Metrics) == 0 {
		s.writeError(w, http.StatusBadRequest, "at least one metric is required")
		return
	}

	layout := pivot.Layout{RowFields: req.Rows, ColFields: req.Cols}
	for _, m := range req.Metrics {
		layout.Metrics = append(layout.Metrics, pivot.Metric{Field: m.Field, Agg: pivot.Aggregator(m.Agg)})
	}

	recs := ds.Records
	if len(req.Filters) > 0 {
		kept := make([]records.Record, 0, len(recs))
		for _, rec := range recs {
			if filter.Matches(rec, req.Filters) {
				kept = append(kept, rec)
			}
		}
		recs = kept
	}
	recs = filter.Records(recs, req.DimFilters, req.MetricFilters)

	var engine *formula.Engine
	if len(req.ComputedFields) > 0 {
		defs := make([]formula.Def, 0, len(req.ComputedFields))
		for _, cf := range req.ComputedFields {
			defs = append(defs, formula.NewDef(cf.Name, cf.Expression))
		}
		opts := formula.Options{}
		if req.Fallback != nil {
			opts.FallbackEnabled = req.Fallback.Enabled
			opts.FallbackValue = req.Fallback.Value
		}
		engine = formula.NewEngine(defs, opts)
		recs = engine.Apply(recs)
	}

	p := pivot.BuildPivot(recs, layout, engine, req.Subtotals)
	if req.Sort != nil {
		p = p.Sort(req.Sort.ColumnIndex, pivot.Direction(req.Sort.Direction))
	}

	resp := pivotResponse{
		Header:     p.Header,
		DataRows:   safeRows(p.DataRows),
		SummaryRow: safeRow(p.Summary),
		ColumnKeys: p.ColumnKeys,
		RowCount:   len(p.DataRows),
	}
	resp.FormattedRows, resp.FormattedSummary = formatRows(p, req.Formats)
	s.writeJSON(w, http.StatusOK, resp)
}

// handleUpload ingests a CSV/TSV file and registers it as a dataset.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	options := csvimport.ImportOptions{StartRow: intForm(r, "start_row")}
	// The extension wins over sniffing when it is unambiguous.
	if strings.HasSuffix(strings.ToLower(header.Filename), ".tsv") {
		options.Delimiter = '\t'
	}
	imported, err := csvimport.Import(content, options)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse %q: %v", header.Filename, err))
		return
	}
	ds := s.datasets.Add(header.Filename, imported)
	s.log.WithFields(map[string]any{
		"dataset": ds.ID,
		"name":    ds.Name,
		"rows":    len(ds.Records),
	}).Info("dataset uploaded")

	preview := ds.Records
	if len(preview) > defaultPeekLimit {
		preview = preview[:defaultPeekLimit]
	}
	rows := make([]records.Record, 0, len(preview))
	for _, rec := range preview {
		rows = append(rows, safeRecord(rec))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"datasetId": ds.ID,
		"filename":  ds.Name,
		"count":     len(ds.Records),
		"fields":    ds.FieldTypes,
		"rows":      rows,
	})
}

func (s *Server) handlePrefsList(w http.ResponseWriter, r *http.Request) {
	dataset := r.URL.Query().Get("dataset")
	var items []prefs.Summary
	if dataset == "" {
		items = s.prefs.ListAll()
	} else {
		items = s.prefs.List(dataset)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handlePrefsGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doc := s.prefs.Get(q.Get("dataset"), q.Get("name"))
	if doc == nil {
		s.writeError(w, http.StatusNotFound, "preference not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"doc": doc})
}

func (s *Server) handlePrefsSave(w http.ResponseWriter, r *http.Request) {
	var pref prefs.Pref
	if err := json.NewDecoder(r.Body).Decode(&pref); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := s.prefs.Save(pref); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePrefsDelete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := s.prefs.Delete(q.Get("dataset"), q.Get("name")); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// formatRows renders every metric cell through its display spec. Label
// cells pass through as strings.
func formatRows(p *pivot.Pivot, formats map[string]format.Spec) ([][]string, []string) {
	out := make([][]string, 0, len(p.DataRows))
	for _, row := range p.DataRows {
		out = append(out, formatRow(p, row, formats))
	}
	return out, formatRow(p, p.Summary, formats)
}

func formatRow(p *pivot.Pivot, row pivot.Row, formats map[string]format.Spec) []string {
	labelCount := len(row.Cells) - len(p.Header.Columns)
	if labelCount < 0 {
		labelCount = 0
	}
	cells := make([]string, 0, len(row.Cells))
	for i, cell := range row.Cells {
		if i < labelCount {
			cells = append(cells, fmt.Sprintf("%v", cell))
			continue
		}
		col := p.Header.Columns[i-labelCount]
		spec, ok := formats[format.Key(col.Field, string(col.Agg))]
		if !ok {
			spec = format.DefaultSpec()
		}
		cells = append(cells, format.Format(records.Coerce(cell), string(col.Agg), spec))
	}
	return cells
}

func safeRows(rows []pivot.Row) []pivot.Row {
	out := make([]pivot.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, safeRow(row))
	}
	return out
}

func safeRow(row pivot.Row) pivot.Row {
	cells := make([]any, len(row.Cells))
	for i, c := range row.Cells {
		cells[i] = safeValue(c)
	}
	row.Cells = cells
	return row
}

func project(rec records.Record, fields []string) records.Record {
	if len(fields) == 0 {
		return rec
	}
	out := make(records.Record, len(fields))
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}

func intParam(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func intForm(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.FormValue(name))
	if err != nil {
		return 0
	}
	return n
}

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

// Package server exposes the pivot engine over a JSON HTTP API: dataset
// upload and inspection, filtered queries, pivot builds, and saved
// preference management.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/pivora/pivora/core/prefs"
	"github.com/pivora/pivora/core/records"
)

// Config holds server settings.
type Config struct {
	Addr      string
	PrefsPath string
	Log       *logrus.Logger
}

// Server wires the dataset store, the preference store, and the HTTP
// handlers together.
type Server struct {
	datasets *DatasetStore
	prefs    prefs.Store
	log      *logrus.Logger
	addr     string
}

// NewServer creates a server. The preference store file is created
// lazily on first save.
func NewServer(cfg Config) (*Server, error) {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	path := cfg.PrefsPath
	if path == "" {
		path = "pivora-prefs.json"
	}
	store, err := prefs.NewFileStore(path)
	if err != nil {
		return nil, err
	}
	return &Server{
		datasets: NewDatasetStore(),
		prefs:    store,
		log:      log,
		addr:     cfg.Addr,
	}, nil
}

// Datasets exposes the dataset store so callers can preload data.
func (s *Server) Datasets() *DatasetStore {
	return s.datasets
}

// Router builds the API routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]any{"message": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/datasets", s.handleDatasets)
		r.Get("/fields", s.handleFields)
		r.Get("/peek", s.handlePeek)
		r.Post("/query", s.handleQuery)
		r.Post("/pivot", s.handlePivot)
		r.Post("/upload", s.handleUpload)
		r.Route("/prefs", func(r chi.Router) {
			r.Get("/list", s.handlePrefsList)
			r.Get("/get", s.handlePrefsGet)
			r.Post("/save", s.handlePrefsSave)
			r.Delete("/delete", s.handlePrefsDelete)
		})
	})
	return r
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
		}).Info("request")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Error("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

// safeValue maps values the JSON encoder rejects (NaN, infinities) to
// null so responses never fail to encode.
func safeValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

func safeRecord(rec records.Record) records.Record {
	out := make(records.Record, len(rec))
	for k, v := range rec {
		out[k] = safeValue(v)
	}
	return out
}

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

// Package prefs stores named pivot configurations so a table layout a
// user has set up can be reloaded later. Preferences are keyed by
// dataset and name.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pivora/pivora/core/filter"
	"github.com/pivora/pivora/core/format"
	"github.com/pivora/pivora/core/pivot"
)

// ComputedField is a stored computed field definition.
type ComputedField struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// SortSpec is a stored sort setting.
type SortSpec struct {
	ColumnIndex int    `json:"columnIndex"`
	Direction   string `json:"direction"`
}

// Pref is one saved pivot configuration.
type Pref struct {
	Dataset        string                 `json:"dataset"`
	Name           string                 `json:"name"`
	UpdatedAt      time.Time              `json:"updatedAt"`
	Layout         pivot.Layout           `json:"layout"`
	ComputedFields []ComputedField        `json:"computedFields,omitempty"`
	Formats        map[string]format.Spec `json:"formats,omitempty"`
	Filter         filter.Tree            `json:"filter,omitempty"`
	Subtotals      bool                   `json:"subtotals"`
	Sort           *SortSpec              `json:"sort,omitempty"`
}

// Summary is the listing entry for a saved preference.
type Summary struct {
	Dataset   string    `json:"dataset"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store defines the interface for saving and loading preferences.
type Store interface {
	// List returns summaries for one dataset, newest first.
	List(dataset string) []Summary
	// ListAll returns summaries for every dataset, newest first.
	ListAll() []Summary
	// Get returns a preference by key, or nil if not found.
	Get(dataset, name string) *Pref
	// Save upserts a preference and stamps UpdatedAt.
	Save(pref Pref) error
	// Delete removes a preference. Deleting a missing key is not an
	// error.
	Delete(dataset, name string) error
}

// FileStore keeps preferences in a single JSON file.
type FileStore struct {
	path string

	mu    sync.RWMutex
	prefs map[string]Pref
}

func key(dataset, name string) string {
	return dataset + "\x1f" + name
}

// NewFileStore loads (or lazily creates) the store file at path.
func NewFileStore(path string) (*FileStore, error) {
	store := &FileStore{path: path, prefs: make(map[string]Pref)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prefs file: %w", err)
	}
	var stored []Pref
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse prefs file %s: %w", path, err)
	}
	for _, p := range stored {
		store.prefs[key(p.Dataset, p.Name)] = p
	}
	return store, nil
}

// List implements Store.
func (s *FileStore) List(dataset string) []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Summary
	for _, p := range s.prefs {
		if p.Dataset == dataset {
			out = append(out, Summary{Dataset: p.Dataset, Name: p.Name, UpdatedAt: p.UpdatedAt})
		}
	}
	sortSummaries(out)
	return out
}

// ListAll implements Store.
func (s *FileStore) ListAll() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.prefs))
	for _, p := range s.prefs {
		out = append(out, Summary{Dataset: p.Dataset, Name: p.Name, UpdatedAt: p.UpdatedAt})
	}
	sortSummaries(out)
	return out
}

// Get implements Store.
func (s *FileStore) Get(dataset, name string) *Pref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.prefs[key(dataset, name)]; ok {
		return &p
	}
	return nil
}

// Save implements Store.
func (s *FileStore) Save(pref Pref) error {
	if pref.Dataset == "" || pref.Name == "" {
		return fmt.Errorf("preference needs a dataset and a name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pref.UpdatedAt = time.Now().UTC()
	s.prefs[key(pref.Dataset, pref.Name)] = pref
	return s.flushLocked()
}

// Delete implements Store.
func (s *FileStore) Delete(dataset, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prefs[key(dataset, name)]; !ok {
		return nil
	}
	delete(s.prefs, key(dataset, name))
	return s.flushLocked()
}

// flushLocked writes the store file via a temp file and rename so a
// crash mid-write never leaves a truncated file. Caller holds mu.
func (s *FileStore) flushLocked() error {
	stored := make([]Pref, 0, len(s.prefs))
	for _, p := range s.prefs {
		stored = append(stored, p)
	}
	sort.Slice(stored, func(i, j int) bool {
		if stored[i].Dataset != stored[j].Dataset {
			return stored[i].Dataset < stored[j].Dataset
		}
		return stored[i].Name < stored[j].Name
	})
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode prefs: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create prefs directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*")
	if err != nil {
		return fmt.Errorf("failed to create temp prefs file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace prefs file: %w", err)
	}
	return nil
}

func sortSummaries(out []Summary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		if out[i].Dataset != out[j].Dataset {
			return out[i].Dataset < out[j].Dataset
		}
		return out[i].Name < out[j].Name
	})
}

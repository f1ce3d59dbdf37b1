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
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pivora/pivora/core/csvimport"
	"github.com/pivora/pivora/core/records"
)

// Dataset is one loaded record set served by the API.
type Dataset struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Fields     []string          `json:"fields"`
	FieldTypes map[string]string `json:"fieldTypes"`
	UploadedAt time.Time         `json:"uploadedAt"`
	Records    []records.Record  `json:"-"`
}

// DatasetInfo is the listing view of a dataset, without its records.
type DatasetInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Fields     []string  `json:"fields"`
	Count      int       `json:"count"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// DatasetStore holds uploaded datasets in memory, keyed by ID.
type DatasetStore struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
}

// NewDatasetStore creates an empty store.
func NewDatasetStore() *DatasetStore {
	return &DatasetStore{datasets: make(map[string]*Dataset)}
}

// Add registers an imported dataset under a fresh ID and returns it.
func (s *DatasetStore) Add(name string, imported *csvimport.Dataset) *Dataset {
	ds := &Dataset{
		ID:         uuid.NewString(),
		Name:       name,
		Fields:     imported.Fields,
		FieldTypes: imported.FieldTypes,
		UploadedAt: time.Now().UTC(),
		Records:    imported.Records,
	}
	s.mu.Lock()
	s.datasets[ds.ID] = ds
	s.mu.Unlock()
	return ds
}

// Get returns a dataset by ID or name, or nil if not found. Name lookup
// lets saved preferences refer to datasets across restarts.
func (s *DatasetStore) Get(idOrName string) *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ds, ok := s.datasets[idOrName]; ok {
		return ds
	}
	for _, ds := range s.datasets {
		if ds.Name == idOrName {
			return ds
		}
	}
	return nil
}

// List returns dataset summaries, newest first.
func (s *DatasetStore) List() []DatasetInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DatasetInfo, 0, len(s.datasets))
	for _, ds := range s.datasets {
		out = append(out, DatasetInfo{
			ID:         ds.ID,
			Name:       ds.Name,
			Fields:     ds.Fields,
			Count:      len(ds.Records),
			UploadedAt: ds.UploadedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

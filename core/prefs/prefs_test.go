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

package prefs

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pivora/pivora/core/pivot"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return store, path
}

func TestSaveAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	pref := Pref{
		Dataset: "orders",
		Name:    "by region",
		Layout: pivot.Layout{
			RowFields: []string{"region"},
			Metrics:   []pivot.Metric{{Field: "revenue", Agg: pivot.AggSum}},
		},
		Subtotals: true,
	}
	if err := store.Save(pref); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got := store.Get("orders", "by region")
	if got == nil {
		t.Fatal("Get returned nil for a saved pref")
	}
	if got.Layout.RowFields[0] != "region" || !got.Subtotals {
		t.Errorf("got %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("Save did not stamp UpdatedAt")
	}
	if store.Get("orders", "missing") != nil {
		t.Error("Get returned a pref for a missing name")
	}
}

func TestSaveRequiresKey(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Save(Pref{Name: "x"}); err == nil {
		t.Error("Save accepted a pref without a dataset")
	}
	if err := store.Save(Pref{Dataset: "x"}); err == nil {
		t.Error("Save accepted a pref without a name")
	}
}

func TestSaveUpserts(t *testing.T) {
	store, _ := newTestStore(t)
	must(t, store.Save(Pref{Dataset: "d", Name: "n", Subtotals: false}))
	must(t, store.Save(Pref{Dataset: "d", Name: "n", Subtotals: true}))
	if got := store.List("d"); len(got) != 1 {
		t.Fatalf("got %d entries after upsert, want 1", len(got))
	}
	if !store.Get("d", "n").Subtotals {
		t.Error("upsert did not replace the stored pref")
	}
}

func TestListNewestFirst(t *testing.T) {
	store, _ := newTestStore(t)
	must(t, store.Save(Pref{Dataset: "d", Name: "old"}))
	time.Sleep(5 * time.Millisecond)
	must(t, store.Save(Pref{Dataset: "d", Name: "new"}))
	must(t, store.Save(Pref{Dataset: "other", Name: "x"}))

	got := store.List("d")
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Name != "new" || got[1].Name != "old" {
		t.Errorf("got order %q, %q; want new, old", got[0].Name, got[1].Name)
	}
	if all := store.ListAll(); len(all) != 3 {
		t.Errorf("ListAll returned %d entries, want 3", len(all))
	}
}

func TestDelete(t *testing.T) {
	store, _ := newTestStore(t)
	must(t, store.Save(Pref{Dataset: "d", Name: "n"}))
	must(t, store.Delete("d", "n"))
	if store.Get("d", "n") != nil {
		t.Error("pref survived Delete")
	}
	// Deleting a key that does not exist is fine.
	must(t, store.Delete("d", "n"))
}

func TestReload(t *testing.T) {
	store, path := newTestStore(t)
	must(t, store.Save(Pref{
		Dataset: "d",
		Name:    "n",
		Layout:  pivot.Layout{RowFields: []string{"a", "b"}},
		ComputedFields: []ComputedField{
			{Name: "margin", Expression: "profit / revenue"},
		},
	}))

	reloaded, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	got := reloaded.Get("d", "n")
	if got == nil {
		t.Fatal("pref missing after reload")
	}
	if len(got.Layout.RowFields) != 2 || len(got.ComputedFields) != 1 {
		t.Errorf("got %+v", got)
	}
	if got.ComputedFields[0].Expression != "profit / revenue" {
		t.Errorf("expression = %q", got.ComputedFields[0].Expression)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

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

// Package demo bundles a small sales dataset for trying the engine
// without bringing your own data.
package demo

import (
	_ "embed"
	"fmt"

	"github.com/pivora/pivora/core/csvimport"
)

//go:embed data/orders.csv
var ordersCSV []byte

// Orders returns the bundled orders dataset.
func Orders() *csvimport.Dataset {
	ds, err := csvimport.Import(ordersCSV, csvimport.ImportOptions{})
	if err != nil {
		panic(fmt.Sprintf("bundled orders.csv failed to import: %v", err))
	}
	return ds
}

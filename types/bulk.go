/*
 * Copyright 2025 wrenlib.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import "strings"

// BulkMode selects the terminal strategy of a bulk import pass.
type BulkMode int

const (
	BulkCreate BulkMode = iota
	BulkUpsert
	BulkDelete
	BulkRepopulate
)

var _ BaseEnum = BulkCreate

type bulkModeSpec struct {
	name string
	desc string
}

var bulkModeSpecs = map[BulkMode]bulkModeSpec{
	BulkCreate:     {name: "create", desc: "insert every row"},
	BulkUpsert:     {name: "upsert", desc: "update rows matched by the dedup field, insert the rest"},
	BulkDelete:     {name: "delete", desc: "delete rows matched by the dedup field"},
	BulkRepopulate: {name: "repopulate", desc: "snapshot, truncate and reload the table"},
}

func (m BulkMode) IsValid() bool {
	_, ok := bulkModeSpecs[m]
	return ok
}

func (m BulkMode) Number() int {
	if !m.IsValid() {
		return IllegalValue
	}
	return int(m)
}

func (m BulkMode) Name() string {
	if spec, ok := bulkModeSpecs[m]; ok {
		return spec.name
	}
	return IllegalName
}

func (m BulkMode) String() string { return m.Name() }

func (m BulkMode) Desc() string {
	if spec, ok := bulkModeSpecs[m]; ok {
		return spec.desc
	}
	return IllegalDesc
}

// ParseBulkMode maps a mode name (case-insensitive) to its BulkMode.
func ParseBulkMode(s string) (BulkMode, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	for mode, spec := range bulkModeSpecs {
		if spec.name == name {
			return mode, true
		}
	}
	return BulkMode(IllegalValue), false
}

// BulkOptions configures a bulk import call. DedupField names the declared
// column used to match existing rows; upsert and delete modes require it.
type BulkOptions struct {
	Mode       BulkMode
	DedupField string
}

// BulkError records one failed row: its index in the input slice and the
// database error message.
type BulkError struct {
	Index   int
	Message string
}

// BulkResult is the import manifest, mutated once per input row. IDs holds
// the primary keys of rows whose terminal write succeeded.
type BulkResult struct {
	Total     int
	Processed int
	Created   int
	Updated   int
	Deleted   int
	Errored   int
	Errors    []BulkError
	IDs       []any
}

// NewBulkResult builds an empty manifest for a batch of the given size.
func NewBulkResult(total int) *BulkResult {
	return &BulkResult{
		Total:  total,
		Errors: make([]BulkError, 0),
		IDs:    make([]any, 0),
	}
}

// Fail records a failed row and keeps the pass going.
func (r *BulkResult) Fail(index int, err error) {
	r.Errored++
	r.Errors = append(r.Errors, BulkError{Index: index, Message: err.Error()})
}

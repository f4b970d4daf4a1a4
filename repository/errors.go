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

package repository

import "errors"

// Configuration errors: the call itself is malformed, nothing was sent to
// the database. Wrapped with context via fmt.Errorf("%w"), so match with
// errors.Is.
var (
	// ErrMissingPrimaryKey reports an update whose payload carries a zero
	// value in at least one primary-key column.
	ErrMissingPrimaryKey = errors.New("entity is missing its primary key")

	// ErrMissingDedupField reports a bulk upsert or delete without a dedup
	// field, or with one that is not a declared column.
	ErrMissingDedupField = errors.New("dedup field is missing or not a declared column")

	// ErrUnknownColumn reports an aggregate over a column the model does not
	// declare.
	ErrUnknownColumn = errors.New("column is not declared on the model")

	// ErrUnsupportedBulkMode reports a bulk import with a mode outside the
	// known set.
	ErrUnsupportedBulkMode = errors.New("unsupported bulk import mode")

	// ErrNoSoftDelete reports a soft remove on a model without a soft-delete
	// column.
	ErrNoSoftDelete = errors.New("model does not declare a soft-delete column")
)

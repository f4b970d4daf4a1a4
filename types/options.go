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

// Paging fallbacks applied when the caller omits or garbles the inputs.
const (
	DefaultLimit  = 20
	DefaultOffset = 0
)

// OrderType is the direction of a single order entry.
type OrderType string

const (
	OrderTypeAsc  OrderType = "ASC"
	OrderTypeDesc OrderType = "DESC"
)

// ParseOrderType maps a direction string to an OrderType. Only a
// case-insensitive "asc" sorts ascending; everything else is descending.
func ParseOrderType(s string) OrderType {
	if strings.EqualFold(strings.TrimSpace(s), "asc") {
		return OrderTypeAsc
	}
	return OrderTypeDesc
}

// Order names a column and the direction it is sorted by.
type Order struct {
	Column string
	Type   OrderType
}

// Condition is a single where-clause predicate. Relation is empty for
// conditions on the base table; a non-empty Relation scopes the condition to
// rows whose related record matches. Fold requests case-insensitive matching.
type Condition struct {
	Relation string
	Column   string
	Operator Operator
	Value    any
	Fold     bool
}

// Where is a normalized where clause. Conditions are ANDed together; each
// entry of OrGroups is a disjunction that is ANDed with the rest.
type Where struct {
	Conditions []Condition
	OrGroups   [][]Condition
}

// IsZero reports whether the clause holds no predicates at all.
func (w *Where) IsZero() bool {
	return w == nil || (len(w.Conditions) == 0 && len(w.OrGroups) == 0)
}

// QueryParams is the raw query input, shaped like a decoded query string:
// paging and ordering arrive string-encoded, column filters land in Filters.
// A filter value may be a string or a string slice (repeated parameter).
type QueryParams struct {
	Select      string
	Relations   string
	Limit       string
	Offset      string
	OrderBy     string
	OrderByType string
	Search      string
	Filters     map[string]any
}

// FindOptions is the normalized query description consumed by the
// repository: validated column and relation lists, a structured where
// clause, ordering, and paging values with defaults applied.
type FindOptions struct {
	Select    []string
	Relations []string
	Where     *Where
	Order     []Order
	Limit     int
	Offset    int
}

// FindOneOptions is FindOptions without paging; the query is capped at a
// single row.
type FindOneOptions struct {
	Select    []string
	Relations []string
	Where     *Where
	Order     []Order
}

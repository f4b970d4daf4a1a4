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

import (
	"fmt"
	"sort"
	"strings"

	"github.com/uptrace/bun"
	"github.com/wrenlib/wren/types"
)

// BuildWhere parses the raw filter map and search input into a normalized
// where clause. Filter keys are not validated against declared columns;
// dotted relation keys are kept only when the first segment names a declared
// relation.
func BuildWhere(db *bun.DB, model any, params *types.QueryParams, opts ...QueryOption) *types.Where {
	cfg := newQueryConfig(opts...)
	if params == nil {
		params = &types.QueryParams{}
	}
	return buildWhere(lookupMeta(db, model), params, cfg.searchColumns)
}

func buildWhere(meta *tableMeta, params *types.QueryParams, searchColumns []string) *types.Where {
	where := &types.Where{}
	// Sorted keys keep the rendered SQL stable across calls.
	keys := make([]string, 0, len(params.Filters))
	for key := range params.Filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == "search" {
			continue
		}
		appendFilter(where, meta, key, params.Filters[key])
	}
	appendSearch(where, searchTerm(params), searchColumns)
	return where
}

// searchTerm reads the search input from its own field, falling back to the
// "search" pseudo-field of the flat filter map.
func searchTerm(params *types.QueryParams) string {
	if params.Search != "" {
		return params.Search
	}
	if raw, ok := params.Filters["search"]; ok {
		if vals := filterValues(raw); len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// appendFilter parses one filter entry. A slice value contributes one
// condition per element, all ANDed, which is how a range such as
// {"price": ["gte:10", "lte:20"]} arrives.
func appendFilter(where *types.Where, meta *tableMeta, key string, value any) {
	relation, column, ok := splitFilterKey(meta, key)
	if !ok {
		return
	}
	for _, raw := range filterValues(value) {
		op, operand := types.SplitOperator(raw)
		cond := types.Condition{Relation: relation, Column: column, Operator: op}
		if !op.Unary() {
			cond.Value = operand
		}
		where.Conditions = append(where.Conditions, cond)
	}
}

// splitFilterKey resolves dotted relation.column keys, one level deep. The
// first segment must name a declared relation or the key contributes
// nothing. Plain keys pass through untouched.
func splitFilterKey(meta *tableMeta, key string) (relation, column string, ok bool) {
	head, rest, found := strings.Cut(key, ".")
	if !found {
		return "", key, true
	}
	canonical, _, declared := meta.Relation(head)
	if !declared || rest == "" || strings.Contains(rest, ".") {
		return "", "", false
	}
	return canonical, rest, true
}

// filterValues flattens a filter value into strings. Query decoding hands us
// a string, a []string, or occasionally a []any of printable values.
func filterValues(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

// appendSearch expands the search term into one OR group of case-insensitive
// substring matches over the configured columns. The literal "undefined" is
// a known upstream serialization artifact and means absent.
func appendSearch(where *types.Where, term string, columns []string) {
	term = strings.TrimSpace(term)
	if term == "" || term == undefinedLiteral || len(columns) == 0 {
		return
	}
	pattern := "%" + term + "%"
	group := make([]types.Condition, 0, len(columns))
	for _, col := range columns {
		group = append(group, types.Condition{
			Column:   col,
			Operator: types.OpLike,
			Value:    pattern,
			Fold:     true,
		})
	}
	where.OrGroups = append(where.OrGroups, group)
}

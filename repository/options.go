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
	"strconv"
	"strings"

	"github.com/uptrace/bun"
	"github.com/wrenlib/wren/types"
)

// undefinedLiteral is what some upstream serializers emit for absent values.
// Normalization treats it as empty in relations and search.
const undefinedLiteral = "undefined"

// QueryOption tunes how raw query parameters are normalized.
type QueryOption func(*queryConfig)

type queryConfig struct {
	defaultSort   string
	searchColumns []string
}

// WithDefaultSort overrides the fallback sort column used when order_by is
// absent or names an undeclared column. The default is the first primary-key
// column.
func WithDefaultSort(column string) QueryOption {
	return func(c *queryConfig) { c.defaultSort = column }
}

// WithSearchColumns sets the columns the search pseudo-filter matches
// against. Without it, search input produces no conditions.
func WithSearchColumns(columns ...string) QueryOption {
	return func(c *queryConfig) { c.searchColumns = columns }
}

func newQueryConfig(opts ...QueryOption) *queryConfig {
	c := &queryConfig{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *queryConfig) sortColumn(meta *tableMeta) string {
	if c.defaultSort != "" {
		return c.defaultSort
	}
	return meta.DefaultSortColumn()
}

// BuildFindOptions normalizes raw query parameters against the model's
// declared schema. It never fails: unparseable paging falls back to the
// defaults, undeclared select and order columns are dropped, undeclared
// relations are ignored.
func BuildFindOptions(db *bun.DB, model any, params *types.QueryParams, opts ...QueryOption) *types.FindOptions {
	meta := lookupMeta(db, model)
	cfg := newQueryConfig(opts...)
	if params == nil {
		params = &types.QueryParams{}
	}
	found := &types.FindOptions{
		Select:    normalizeSelect(meta, params.Select),
		Relations: normalizeRelations(meta, params.Relations),
		Where:     buildWhere(meta, params, cfg.searchColumns),
		Order:     normalizeOrder(meta, cfg, params),
		Limit:     types.DefaultLimit,
		Offset:    types.DefaultOffset,
	}
	if n, err := strconv.Atoi(strings.TrimSpace(params.Limit)); err == nil && n > 0 {
		found.Limit = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(params.Offset)); err == nil && n >= 0 {
		found.Offset = n
	}
	return found
}

// BuildFindOneOptions normalizes raw query parameters for a single-row
// lookup. Paging inputs are ignored.
func BuildFindOneOptions(db *bun.DB, model any, params *types.QueryParams, opts ...QueryOption) *types.FindOneOptions {
	found := BuildFindOptions(db, model, params, opts...)
	return &types.FindOneOptions{
		Select:    found.Select,
		Relations: found.Relations,
		Where:     found.Where,
		Order:     found.Order,
	}
}

// normalizeSelect keeps only declared columns from a comma-separated list.
func normalizeSelect(meta *tableMeta, raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var cols []string
	for _, part := range strings.Split(raw, ",") {
		col := strings.TrimSpace(part)
		if col == "" || !meta.HasColumn(col) {
			continue
		}
		cols = append(cols, col)
	}
	return cols
}

// normalizeRelations maps a comma-separated relation list to canonical
// declared names. An absent list loads every declared relation.
func normalizeRelations(meta *tableMeta, raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == undefinedLiteral {
		return meta.RelationNames()
	}
	var names []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		canonical, _, ok := meta.Relation(name)
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true
		names = append(names, canonical)
	}
	return names
}

// normalizeOrder resolves the sort column and direction. Undeclared columns
// fall back to the configured sort column; only an explicit "asc" sorts
// ascending.
func normalizeOrder(meta *tableMeta, cfg *queryConfig, params *types.QueryParams) []types.Order {
	column := strings.TrimSpace(params.OrderBy)
	if column == "" || !meta.HasColumn(column) {
		column = cfg.sortColumn(meta)
	}
	return []types.Order{{Column: column, Type: types.ParseOrderType(params.OrderByType)}}
}

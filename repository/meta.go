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
	"reflect"
	"sort"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// tableMeta is a read-only view of a model's schema as Bun resolved it from
// the struct tags: declared columns, relations, primary keys and the
// soft-delete marker. Option normalization and filter building validate
// caller input against it.
type tableMeta struct {
	table *schema.Table
}

// lookupMeta resolves the metadata view for a model value or type. Bun caches
// the underlying table per dialect, so this is cheap to call.
func lookupMeta(db *bun.DB, model any) *tableMeta {
	typ := reflect.TypeOf(model)
	for typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice {
		typ = typ.Elem()
	}
	return &tableMeta{table: db.Table(typ)}
}

// Name returns the table name.
func (m *tableMeta) Name() string { return m.table.Name }

// Alias returns the table alias Bun renders into queries.
func (m *tableMeta) Alias() string { return m.table.Alias }

// HasColumn reports whether name is a declared column of the table.
func (m *tableMeta) HasColumn(name string) bool {
	_, ok := m.table.FieldMap[name]
	return ok
}

// PKs returns the primary-key fields.
func (m *tableMeta) PKs() []*schema.Field { return m.table.PKs }

// SoftDelete returns the soft-delete field when the model declares one.
func (m *tableMeta) SoftDelete() (*schema.Field, bool) {
	return m.table.SoftDeleteField, m.table.SoftDeleteField != nil
}

// Relation resolves a declared relation by its canonical Go field name or
// the snake_case form query strings carry, returning the canonical name.
func (m *tableMeta) Relation(name string) (string, *schema.Relation, bool) {
	if rel, ok := m.table.Relations[name]; ok {
		return name, rel, true
	}
	folded := foldKey(name)
	for goName, rel := range m.table.Relations {
		if foldKey(goName) == folded {
			return goName, rel, true
		}
	}
	return "", nil, false
}

// RelationNames returns every declared relation name, sorted for stable
// query plans.
func (m *tableMeta) RelationNames() []string {
	names := make([]string, 0, len(m.table.Relations))
	for name := range m.table.Relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PKColumn returns the first primary-key column, or "id" for the unusual
// keyless model.
func (m *tableMeta) PKColumn() string {
	if len(m.table.PKs) > 0 {
		return m.table.PKs[0].Name
	}
	return "id"
}

// DefaultSortColumn is the fallback order-by column when the caller names
// none or an undeclared one.
func (m *tableMeta) DefaultSortColumn() string { return m.PKColumn() }

// HasPKValues reports whether every primary-key column of the entity holds a
// non-zero value.
func (m *tableMeta) HasPKValues(entity any) bool {
	if len(m.table.PKs) == 0 {
		return false
	}
	v := reflect.Indirect(reflect.ValueOf(entity))
	for _, pk := range m.table.PKs {
		if pk.HasZeroValue(v) {
			return false
		}
	}
	return true
}

// PKValues returns the entity's primary key: the bare value for a
// single-column key, a slice for composite keys.
func (m *tableMeta) PKValues(entity any) any {
	v := reflect.Indirect(reflect.ValueOf(entity))
	if len(m.table.PKs) == 1 {
		return m.table.PKs[0].Value(v).Interface()
	}
	vals := make([]any, 0, len(m.table.PKs))
	for _, pk := range m.table.PKs {
		vals = append(vals, pk.Value(v).Interface())
	}
	return vals
}

// ColumnValue reads the entity's value for a declared column.
func (m *tableMeta) ColumnValue(entity any, column string) any {
	field, ok := m.table.FieldMap[column]
	if !ok {
		return nil
	}
	v := reflect.Indirect(reflect.ValueOf(entity))
	return field.Value(v).Interface()
}

// CopyPKs copies every primary-key value from src onto dst, so an update can
// address the row src was loaded from.
func (m *tableMeta) CopyPKs(dst, src any) {
	dv := reflect.Indirect(reflect.ValueOf(dst))
	sv := reflect.Indirect(reflect.ValueOf(src))
	for _, pk := range m.table.PKs {
		pk.Value(dv).Set(pk.Value(sv))
	}
}

// foldKey lowercases and strips underscores so "book_tags" matches the Go
// relation name "BookTags".
func foldKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

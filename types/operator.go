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

// Operator identifies the comparison applied to a single column in a
// where-clause condition.
type Operator int

const (
	OpEQ Operator = iota
	OpNE
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpLike
	OpIsNull
	OpNotNull
)

var _ BaseEnum = OpEQ

type operatorSpec struct {
	name  string
	sql   string
	desc  string
	unary bool
}

var operatorSpecs = map[Operator]operatorSpec{
	OpEQ:      {name: "eq", sql: "=", desc: "equal"},
	OpNE:      {name: "ne", sql: "<>", desc: "not equal"},
	OpGT:      {name: "gt", sql: ">", desc: "greater than"},
	OpGTE:     {name: "gte", sql: ">=", desc: "greater than or equal"},
	OpLT:      {name: "lt", sql: "<", desc: "less than"},
	OpLTE:     {name: "lte", sql: "<=", desc: "less than or equal"},
	OpLike:    {name: "like", sql: "LIKE", desc: "pattern match"},
	OpIsNull:  {name: "isnull", sql: "IS NULL", desc: "null check", unary: true},
	OpNotNull: {name: "notnull", sql: "IS NOT NULL", desc: "not-null check", unary: true},
}

// operatorAliases maps every accepted filter token to its operator.
var operatorAliases = map[string]Operator{
	"eq":       OpEQ,
	"ne":       OpNE,
	"neq":      OpNE,
	"gt":       OpGT,
	"gte":      OpGTE,
	"lt":       OpLT,
	"lte":      OpLTE,
	"like":     OpLike,
	"isnull":   OpIsNull,
	"is_null":  OpIsNull,
	"notnull":  OpNotNull,
	"not_null": OpNotNull,
}

func (o Operator) IsValid() bool {
	_, ok := operatorSpecs[o]
	return ok
}

func (o Operator) Number() int {
	if !o.IsValid() {
		return IllegalValue
	}
	return int(o)
}

func (o Operator) Name() string {
	if spec, ok := operatorSpecs[o]; ok {
		return spec.name
	}
	return IllegalName
}

func (o Operator) String() string { return o.Name() }

func (o Operator) Desc() string {
	if spec, ok := operatorSpecs[o]; ok {
		return spec.desc
	}
	return IllegalDesc
}

// SQL returns the comparison fragment rendered into a where-clause.
func (o Operator) SQL() string {
	if spec, ok := operatorSpecs[o]; ok {
		return spec.sql
	}
	return "="
}

// Unary reports whether the operator takes no right-hand value.
func (o Operator) Unary() bool {
	if spec, ok := operatorSpecs[o]; ok {
		return spec.unary
	}
	return false
}

// ParseOperator maps a filter token (case-insensitive) to its operator.
func ParseOperator(s string) (Operator, bool) {
	op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]
	return op, ok
}

// SplitOperator parses the "operator:value" filter syntax. Bare isnull and
// notnull tokens are accepted without a value. Anything that does not start
// with a known operator token is an equality match on the whole literal, so
// values like "10:30" survive untouched.
func SplitOperator(raw string) (Operator, string) {
	if op, ok := ParseOperator(raw); ok && op.Unary() {
		return op, ""
	}
	if prefix, rest, found := strings.Cut(raw, ":"); found {
		if op, ok := ParseOperator(prefix); ok {
			if op.Unary() {
				return op, ""
			}
			return op, rest
		}
	}
	return OpEQ, raw
}

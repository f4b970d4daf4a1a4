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

import "testing"

func TestParseOrderType(t *testing.T) {
	cases := []struct {
		in   string
		want OrderType
	}{
		{"asc", OrderTypeAsc},
		{"ASC", OrderTypeAsc},
		{" Asc ", OrderTypeAsc},
		{"desc", OrderTypeDesc},
		{"DESC", OrderTypeDesc},
		{"", OrderTypeDesc},
		{"ascending", OrderTypeDesc},
		{"random", OrderTypeDesc},
	}
	for _, c := range cases {
		if got := ParseOrderType(c.in); got != c.want {
			t.Errorf("ParseOrderType(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestWhereIsZero(t *testing.T) {
	var nilWhere *Where
	if !nilWhere.IsZero() {
		t.Error("nil where must be zero")
	}
	if !(&Where{}).IsZero() {
		t.Error("empty where must be zero")
	}
	withCond := &Where{Conditions: []Condition{{Column: "name", Operator: OpEQ, Value: "x"}}}
	if withCond.IsZero() {
		t.Error("where with a condition must not be zero")
	}
	withGroup := &Where{OrGroups: [][]Condition{{{Column: "name", Operator: OpLike, Value: "%x%"}}}}
	if withGroup.IsZero() {
		t.Error("where with an or-group must not be zero")
	}
}

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

import (
	"errors"
	"testing"
)

func TestParseBulkMode(t *testing.T) {
	cases := []struct {
		in   string
		want BulkMode
		ok   bool
	}{
		{"create", BulkCreate, true},
		{"upsert", BulkUpsert, true},
		{"delete", BulkDelete, true},
		{"repopulate", BulkRepopulate, true},
		{" Create ", BulkCreate, true},
		{"UPSERT", BulkUpsert, true},
		{"replace", BulkCreate, false},
		{"", BulkCreate, false},
	}
	for _, c := range cases {
		mode, ok := ParseBulkMode(c.in)
		if ok != c.ok {
			t.Errorf("ParseBulkMode(%q) ok = %v, want %v", c.in, ok, c.ok)
			continue
		}
		if ok && mode != c.want {
			t.Errorf("ParseBulkMode(%q) = %v, want %v", c.in, mode, c.want)
		}
	}
}

func TestBulkModeEnum(t *testing.T) {
	if BulkRepopulate.Name() != "repopulate" {
		t.Errorf("BulkRepopulate.Name() = %q, want %q", BulkRepopulate.Name(), "repopulate")
	}
	bad := BulkMode(99)
	if bad.IsValid() {
		t.Error("BulkMode(99).IsValid() = true, want false")
	}
	if bad.Name() != IllegalName {
		t.Errorf("BulkMode(99).Name() = %q, want %q", bad.Name(), IllegalName)
	}
}

func TestBulkResultFail(t *testing.T) {
	result := NewBulkResult(3)
	if result.Total != 3 {
		t.Fatalf("Total = %d, want 3", result.Total)
	}
	if result.Errors == nil || result.IDs == nil {
		t.Fatal("manifest slices must be allocated")
	}

	result.Fail(1, errors.New("boom"))
	if result.Errored != 1 {
		t.Errorf("Errored = %d, want 1", result.Errored)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want 1", len(result.Errors))
	}
	if result.Errors[0].Index != 1 || result.Errors[0].Message != "boom" {
		t.Errorf("Errors[0] = %+v, want index 1 message boom", result.Errors[0])
	}
}

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

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

func TestIsSQLError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   bool
		kind SQLError
	}{
		{"nil", nil, false, UnknownErr},
		{"no rows", sql.ErrNoRows, true, NoRowsErr},
		{"wrapped no rows", fmt.Errorf("find one: %w", sql.ErrNoRows), true, NoRowsErr},

		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true, DuplicateKeyErr},
		{"mysql wrapped duplicate", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062}), true, DuplicateKeyErr},
		{"mysql no table", &mysql.MySQLError{Number: 1146}, true, NoTableErr},
		{"mysql table exists", &mysql.MySQLError{Number: 1050}, true, ExistTableErr},
		{"mysql not null", &mysql.MySQLError{Number: 1048}, true, NotNullViolationErr},
		{"mysql no column", &mysql.MySQLError{Number: 1054}, true, NoColumnErr},
		{"mysql foreign key", &mysql.MySQLError{Number: 1216}, true, ForeignKeyViolationErr},
		{"mysql truncated", &mysql.MySQLError{Number: 1265}, true, DataTruncatedErr},
		{"mysql unmapped number", &mysql.MySQLError{Number: 9999}, true, UnknownErr},

		{"pq duplicate", &pq.Error{Code: "23505"}, true, DuplicateKeyErr},
		{"pq no table", &pq.Error{Code: "42P01"}, true, NoTableErr},
		{"pq table exists", &pq.Error{Code: "42P07"}, true, ExistTableErr},
		{"pq foreign key", &pq.Error{Code: "23503"}, true, ForeignKeyViolationErr},
		{"pq bad cast", &pq.Error{Code: "42804"}, true, InvalidTypeCastErr},
		{"pq unmapped code", &pq.Error{Code: "XX000"}, true, UnknownErr},

		{"sqlite unique", errors.New("UNIQUE constraint failed: test_books.sku"), true, DuplicateKeyErr},
		{"sqlite no table", errors.New("no such table: missing"), true, NoTableErr},
		{"sqlite no column", errors.New("no such column: bogus"), true, NoColumnErr},
		{"sqlite table exists", errors.New("table test_books_snapshot already exists"), true, ExistTableErr},
		{"sqlite index exists", errors.New("index idx_books_sku already exists"), true, ExistIndexErr},
		{"sqlite not null", errors.New("NOT NULL constraint failed: test_books.title"), true, NotNullViolationErr},
		{"sqlite foreign key", errors.New("FOREIGN KEY constraint failed"), true, ForeignKeyViolationErr},
		{"sqlite check", errors.New("CHECK constraint failed: price"), true, CheckConstraintViolationErr},
		{"sqlite bad cast", errors.New("datatype mismatch"), true, InvalidTypeCastErr},
		{"pg relation exists", errors.New(`ERROR: relation "widgets" already exists (SQLSTATE 42P07)`), true, ExistTableErr},

		{"unrelated", errors.New("connection refused"), false, UnknownErr},
	}
	for _, tt := range tests {
		is, kind := IsSQLError(tt.err)
		if is != tt.is || kind != tt.kind {
			t.Errorf("%s: IsSQLError = (%v, %d), want (%v, %d)", tt.name, is, kind, tt.is, tt.kind)
		}
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !IsDuplicateKey(&mysql.MySQLError{Number: 1062}) {
		t.Error("mysql 1062 not recognized as a duplicate key")
	}
	if !IsDuplicateKey(errors.New("UNIQUE constraint failed: app_settings.config_key")) {
		t.Error("sqlite unique violation not recognized as a duplicate key")
	}
	if IsDuplicateKey(sql.ErrNoRows) {
		t.Error("sql.ErrNoRows misclassified as a duplicate key")
	}
	if IsDuplicateKey(nil) {
		t.Error("nil misclassified as a duplicate key")
	}
}

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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/wrenlib/wren/types"
)

func tableExists(t *testing.T, db *bun.DB, name string) bool {
	t.Helper()
	var n int
	err := db.NewSelect().
		ColumnExpr("count(*)").
		TableExpr("sqlite_master").
		Where("type = 'table' AND name = ?", name).
		Scan(context.Background(), &n)
	if err != nil {
		t.Fatalf("sqlite_master: %v", err)
	}
	return n > 0
}

func TestBulkImportCreate(t *testing.T) {
	db := seededDB(t)
	repo := NewRepository[testBook](db)
	ctx := context.Background()

	rows := []*testBook{
		{SKU: "sku-101", Title: "Imported One", AuthorID: 1, Price: 11},
		{SKU: "sku-001", Title: "Duplicate", AuthorID: 1, Price: 12},
		{SKU: "sku-102", Title: "Imported Two", AuthorID: 2, Price: 13},
	}
	result, err := repo.BulkImport(ctx, &types.BulkOptions{Mode: types.BulkCreate}, rows)
	if err != nil {
		t.Fatalf("bulk import: %v", err)
	}
	if result.Total != 3 || result.Processed != 3 {
		t.Errorf("total = %d, processed = %d, want 3 and 3", result.Total, result.Processed)
	}
	if result.Created != 2 || result.Errored != 1 {
		t.Errorf("created = %d, errored = %d, want 2 and 1", result.Created, result.Errored)
	}
	if len(result.Errors) != 1 || result.Errors[0].Index != 1 {
		t.Errorf("errors = %+v, want one entry for index 1", result.Errors)
	}
	if len(result.IDs) != 2 {
		t.Errorf("ids = %v, want two", result.IDs)
	}

	all, err := repo.All(ctx)
	if err != nil || len(all) != 6 {
		t.Fatalf("all = %d rows, err %v, want 6", len(all), err)
	}
}

func TestBulkImportNilOptions(t *testing.T) {
	db := seededDB(t)
	repo := NewRepository[testBook](db)

	// Nil options default to the create mode; an empty batch is a no-op.
	result, err := repo.BulkImport(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("bulk import: %v", err)
	}
	if result.Total != 0 || result.Processed != 0 || result.Errored != 0 {
		t.Errorf("result = %+v, want an empty manifest", result)
	}
}

func TestBulkImportUpsert(t *testing.T) {
	db := seededDB(t)
	repo := NewRepository[testBook](db)
	ctx := context.Background()

	now := time.Now()
	rows := []*testBook{
		{SKU: "sku-003", Title: "SQL Primer II", Summary: "Expanded edition", AuthorID: 2, Price: 19, Pages: 180, CreatedAt: now},
		{SKU: "sku-110", Title: "Compilers", AuthorID: 1, Price: 40, Pages: 600, CreatedAt: now},
	}
	result, err := repo.BulkImport(ctx, &types.BulkOptions{Mode: types.BulkUpsert, DedupField: "sku"}, rows)
	if err != nil {
		t.Fatalf("bulk import: %v", err)
	}
	if result.Processed != 2 || result.Updated != 1 || result.Created != 1 || result.Errored != 0 {
		t.Errorf("result = %+v, want one update and one create", result)
	}
	if len(result.IDs) != 2 {
		t.Errorf("ids = %v, want two", result.IDs)
	}
	if rows[0].ID != 3 {
		t.Errorf("matched row pk = %d, want 3", rows[0].ID)
	}

	got, err := repo.FindByPK(ctx, 3)
	if err != nil || got.Title != "SQL Primer II" || got.Price != 19 {
		t.Errorf("updated row = %+v, err %v", got, err)
	}
	count, err := repo.Count(ctx, nil)
	if err != nil || count != 5 {
		t.Fatalf("count = %d, err %v, want 5", count, err)
	}
}

func TestBulkImportUpsertRequiresDedupField(t *testing.T) {
	db := seededDB(t)
	repo := NewRepository[testBook](db)
	ctx := context.Background()
	rows := []*testBook{{SKU: "sku-120", Title: "X", AuthorID: 1}}

	if _, err := repo.BulkImport(ctx, &types.BulkOptions{Mode: types.BulkUpsert}, rows); !errors.Is(err, ErrMissingDedupField) {
		t.Errorf("missing dedup error = %v, want ErrMissingDedupField", err)
	}
	if _, err := repo.BulkImport(ctx, &types.BulkOptions{Mode: types.BulkUpsert, DedupField: "bogus"}, rows); !errors.Is(err, ErrMissingDedupField) {
		t.Errorf("undeclared dedup error = %v, want ErrMissingDedupField", err)
	}
}

func TestBulkImportDelete(t *testing.T) {
	db := seededDB(t)
	repo := NewRepository[testBook](db)
	ctx := context.Background()

	rows := []*testBook{
		{SKU: "sku-001"},
		{SKU: "sku-404"},
	}
	result, err := repo.BulkImport(ctx, &types.BulkOptions{Mode: types.BulkDelete, DedupField: "sku"}, rows)
	if err != nil {
		t.Fatalf("bulk import: %v", err)
	}
	if result.Processed != 2 || result.Deleted != 1 || result.Errored != 0 {
		t.Errorf("result = %+v, want one delete and no errors", result)
	}
	if len(result.IDs) != 1 {
		t.Fatalf("ids = %v, want one", result.IDs)
	}
	if id, ok := result.IDs[0].(int64); !ok || id != 1 {
		t.Errorf("ids[0] = %v, want 1", result.IDs[0])
	}

	// The delete is a hard delete even on soft-delete models.
	gone, err := db.NewSelect().Model((*testBook)(nil)).
		WhereAllWithDeleted().
		Where("id = ?", 1).
		Count(ctx)
	if err != nil || gone != 0 {
		t.Fatalf("rows after delete = %d, err %v, want 0", gone, err)
	}

	if _, err := repo.BulkImport(ctx, &types.BulkOptions{Mode: types.BulkDelete}, rows); !errors.Is(err, ErrMissingDedupField) {
		t.Errorf("missing dedup error = %v, want ErrMissingDedupField", err)
	}
}

func TestBulkImportRepopulate(t *testing.T) {
	db := seededDB(t)
	repo := NewRepository[testBook](db)
	ctx := context.Background()

	// A snapshot left behind by a crashed run is dropped and recreated.
	if _, err := db.ExecContext(ctx, "CREATE TABLE test_books_snapshot AS SELECT * FROM test_books"); err != nil {
		t.Fatalf("stale snapshot: %v", err)
	}

	rows := []*testBook{
		{SKU: "sku-201", Title: "Fresh One", AuthorID: 1, Price: 21},
		{SKU: "sku-202", Title: "Fresh Two", AuthorID: 1, Price: 22},
		{SKU: "sku-203", Title: "Fresh Three", AuthorID: 2, Price: 23},
	}
	result, err := repo.BulkImport(ctx, &types.BulkOptions{Mode: types.BulkRepopulate}, rows)
	if err != nil {
		t.Fatalf("bulk import: %v", err)
	}
	if result.Created != 3 || result.Errored != 0 {
		t.Errorf("result = %+v, want three clean creates", result)
	}

	all, err := repo.All(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("all = %d rows, err %v, want 3", len(all), err)
	}
	skus := make(map[string]bool)
	for _, b := range all {
		skus[b.SKU] = true
	}
	for _, sku := range []string{"sku-201", "sku-202", "sku-203"} {
		if !skus[sku] {
			t.Errorf("missing %s after repopulate, have %v", sku, skus)
		}
	}

	if tableExists(t, db, "test_books_snapshot") {
		t.Error("snapshot not dropped after a clean repopulate")
	}
}

func TestBulkImportRepopulateRestoresOnFailure(t *testing.T) {
	db := seededDB(t)
	repo := NewRepository[testBook](db)
	ctx := context.Background()

	rows := []*testBook{
		{SKU: "sku-301", Title: "Load One", AuthorID: 1, Price: 31},
		{SKU: "sku-301", Title: "Load One Again", AuthorID: 1, Price: 31},
		{SKU: "sku-302", Title: "Load Two", AuthorID: 2, Price: 32},
	}
	result, err := repo.BulkImport(ctx, &types.BulkOptions{Mode: types.BulkRepopulate}, rows)
	if err != nil {
		t.Fatalf("bulk import: %v", err)
	}
	if result.Errored != 1 || result.Created != 2 {
		t.Errorf("result = %+v, want one failed row", result)
	}

	// The failed load was rolled back to the snapshot.
	all, err := repo.All(ctx)
	if err != nil || len(all) != 4 {
		t.Fatalf("all = %d rows, err %v, want the original 4", len(all), err)
	}
	got, err := repo.FindByPK(ctx, 2)
	if err != nil || got.Title != "Advanced Go" {
		t.Errorf("restored row = %+v, err %v", got, err)
	}

	for _, name := range []string{"test_books_snapshot", "test_books_failed"} {
		if tableExists(t, db, name) {
			t.Errorf("%s left behind after restore", name)
		}
	}
	if !tableExists(t, db, "test_books") {
		t.Error("live table missing after restore")
	}
}

func TestBulkImportUnknownMode(t *testing.T) {
	db := seededDB(t)
	repo := NewRepository[testBook](db)

	_, err := repo.BulkImport(context.Background(), &types.BulkOptions{Mode: types.BulkMode(99)}, nil)
	if !errors.Is(err, ErrUnsupportedBulkMode) {
		t.Errorf("unknown mode error = %v, want ErrUnsupportedBulkMode", err)
	}
}

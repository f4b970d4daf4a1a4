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
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type testAuthor struct {
	bun.BaseModel `bun:"table:test_authors,alias:ta"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Name  string `bun:"name,notnull"`
	Email string `bun:"email"`

	Books []*testBook `bun:"rel:has-many,join:id=author_id"`
}

type testBook struct {
	bun.BaseModel `bun:"table:test_books,alias:tb"`

	ID        int64     `bun:"id,pk,autoincrement"`
	SKU       string    `bun:"sku,notnull,unique"`
	Title     string    `bun:"title,notnull"`
	Summary   string    `bun:"summary"`
	Price     float64   `bun:"price"`
	Pages     int       `bun:"pages"`
	AuthorID  int64     `bun:"author_id"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt time.Time `bun:"deleted_at,soft_delete,nullzero"`

	Author *testAuthor `bun:"rel:belongs-to,join:author_id=id"`
	Tags   []*testTag  `bun:"m2m:test_book_tags,join:Book=Tag"`
}

type testTag struct {
	bun.BaseModel `bun:"table:test_tags,alias:tt"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

type testBookTag struct {
	bun.BaseModel `bun:"table:test_book_tags,alias:tbt"`

	BookID int64     `bun:"book_id,pk"`
	Book   *testBook `bun:"rel:belongs-to,join:book_id=id"`
	TagID  int64     `bun:"tag_id,pk"`
	Tag    *testTag  `bun:"rel:belongs-to,join:tag_id=id"`
}

// openTestDB opens a named shared-cache in-memory database. Shared in-memory
// databases vanish with their last connection, so the pool keeps connections
// alive for the lifetime of the test.
func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxIdleConns(1000)
	sqldb.SetConnMaxLifetime(0)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.RegisterModel((*testBookTag)(nil))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestSchema(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx := context.Background()
	models := []any{
		(*testAuthor)(nil),
		(*testTag)(nil),
		(*testBook)(nil),
		(*testBookTag)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("create table %T: %v", model, err)
		}
	}
}

// seedLibrary loads the fixture rows used across the repository tests: two
// authors, four books and two tags, with books 1 and 2 tagged "go" and books
// 2 and 3 tagged "databases".
func seedLibrary(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx := context.Background()

	authors := []*testAuthor{
		{ID: 1, Name: "Ann Richter", Email: "ann@example.com"},
		{ID: 2, Name: "Bob Calder", Email: "bob@example.com"},
	}
	if _, err := db.NewInsert().Model(&authors).Exec(ctx); err != nil {
		t.Fatalf("seed authors: %v", err)
	}

	tags := []*testTag{
		{ID: 1, Name: "go"},
		{ID: 2, Name: "databases"},
	}
	if _, err := db.NewInsert().Model(&tags).Exec(ctx); err != nil {
		t.Fatalf("seed tags: %v", err)
	}

	books := []*testBook{
		{ID: 1, SKU: "sku-001", Title: "Go Basics", Summary: "Introduction for beginners", Price: 10, Pages: 200, AuthorID: 1},
		{ID: 2, SKU: "sku-002", Title: "Advanced Go", Summary: "Concurrency patterns and internals", Price: 25, Pages: 350, AuthorID: 1},
		{ID: 3, SKU: "sku-003", Title: "SQL Primer", Summary: "Relational database fundamentals", Price: 18, Pages: 150, AuthorID: 2},
		{ID: 4, SKU: "sku-004", Title: "Networking", Summary: "Packets on the wire", Price: 32, Pages: 400, AuthorID: 2},
	}
	if _, err := db.NewInsert().Model(&books).Exec(ctx); err != nil {
		t.Fatalf("seed books: %v", err)
	}

	links := []*testBookTag{
		{BookID: 1, TagID: 1},
		{BookID: 2, TagID: 1},
		{BookID: 2, TagID: 2},
		{BookID: 3, TagID: 2},
	}
	if _, err := db.NewInsert().Model(&links).Exec(ctx); err != nil {
		t.Fatalf("seed book tags: %v", err)
	}
}

func seededDB(t *testing.T) *bun.DB {
	t.Helper()
	db := openTestDB(t)
	createTestSchema(t, db)
	seedLibrary(t, db)
	return db
}

func bookIDs(books []*testBook) []int64 {
	ids := make([]int64, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	return ids
}

func equalIDs(got []int64, want ...int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

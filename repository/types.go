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

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
	"github.com/wrenlib/wren/types"
)

// CrudRepository defines single-entity operations for a generic entity type.
type CrudRepository[T any] interface {
	FindByPK(ctx context.Context, id any) (*T, error)

	All(ctx context.Context) ([]*T, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Create(ctx context.Context, entity ...*T) error

	// CreateAndFetch inserts one entity and re-selects it by primary key with
	// the declared relations loaded.
	CreateAndFetch(ctx context.Context, entity *T) (*T, error)

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error

	// Update re-saves the entity by primary key and re-fetches it. Every
	// primary-key column of the payload must be non-zero.
	Update(ctx context.Context, entity *T) (*T, error)

	Delete(ctx context.Context, id any) error

	// SoftRemove marks the row deleted and keeps it; the model must declare a
	// soft-delete column.
	SoftRemove(ctx context.Context, id any) error

	// Purge hard-deletes the row even on soft-delete models.
	Purge(ctx context.Context, id any) error
}

// QueryRepository normalizes raw query parameters and runs option-driven
// queries. The Build methods never fail; invalid input degrades to defaults.
type QueryRepository[T any] interface {
	BuildFindOptions(params *types.QueryParams) *types.FindOptions
	BuildFindOneOptions(params *types.QueryParams) *types.FindOneOptions
	Find(ctx context.Context, opts *types.FindOptions) ([]*T, error)
	FindOne(ctx context.Context, opts *types.FindOneOptions) (*T, error)
	FindAndCount(ctx context.Context, opts *types.FindOptions) ([]*T, int, error)
}

// AggregateRepository runs aggregates over a normalized where clause.
// Sum and Avg read NULL as 0; the column must be declared on the model.
type AggregateRepository[T any] interface {
	Count(ctx context.Context, where *types.Where) (int, error)
	Sum(ctx context.Context, column string, where *types.Where) (float64, error)
	Avg(ctx context.Context, column string, where *types.Where) (float64, error)
}

// BulkRepository imports a batch of rows under one of the bulk modes,
// processing rows strictly one at a time and collecting per-row failures
// into the returned manifest.
type BulkRepository[T any] interface {
	BulkImport(ctx context.Context, opts *types.BulkOptions, rows []*T) (*types.BulkResult, error)
}

// TransactionRepository defines CRUD operations executed within a transaction.
type TransactionRepository[T any] interface {
	CreateWithTx(ctx context.Context, tx *bun.Tx, entity ...*T) error
	UpsertWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, entity ...*T) error
	UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error
	DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD, normalized querying, aggregates, bulk import,
// pagination, and transactional operations, and exposes Bun query builders
// for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	QueryRepository[T]
	AggregateRepository[T]
	BulkRepository[T]
	PageQueryRepository[T]
	TransactionRepository[T]
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}

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

package wren

import (
	"context"
	"github.com/wrenlib/wren/database"
	"github.com/wrenlib/wren/repository"
	"github.com/wrenlib/wren/types"
	"sync"

	"github.com/uptrace/bun"
)

type Service[T any] interface {
	// Get returns a single entity by its primary key.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Query executes a raw query and maps the results to entities.
	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// BuildFindOptions normalizes raw query parameters into find options.
	BuildFindOptions(params *types.QueryParams) *types.FindOptions

	// BuildFindOneOptions normalizes raw query parameters into single-row
	// find options.
	BuildFindOneOptions(params *types.QueryParams) *types.FindOneOptions

	// Find returns the entities selected by the given options.
	Find(ctx context.Context, opts *types.FindOptions) ([]*T, error)

	// FindOne returns the first entity selected by the given options.
	FindOne(ctx context.Context, opts *types.FindOneOptions) (*T, error)

	// FindAndCount returns one page of entities plus the unpaged total.
	FindAndCount(ctx context.Context, opts *types.FindOptions) ([]*T, int, error)

	// Count returns the number of entities matching the where clause.
	Count(ctx context.Context, where *types.Where) (int, error)

	// Sum totals a numeric column over the where clause; NULL reads as 0.
	Sum(ctx context.Context, column string, where *types.Where) (float64, error)

	// Avg averages a numeric column over the where clause; NULL reads as 0.
	Avg(ctx context.Context, column string, where *types.Where) (float64, error)

	// Update modifies an existing entity and returns the stored row.
	Update(ctx context.Context, model *T) (*T, error)

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// SoftRemove marks an entity deleted without removing its row.
	SoftRemove(ctx context.Context, id any) error

	// Purge removes the row even when the model declares soft deletes.
	Purge(ctx context.Context, id any) error

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// SaveAndFetch inserts an entity and returns it with relations loaded.
	SaveAndFetch(ctx context.Context, model *T) (*T, error)

	// SaveOrUpdate upserts entities based on fields and duplicate keys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	// BulkImport writes a batch of entities under the selected bulk mode.
	BulkImport(ctx context.Context, opts *types.BulkOptions, rows []*T) (*types.BulkResult, error)

	// SaveWithTx inserts entities within an existing transaction.
	SaveWithTx(ctx context.Context, tx *bun.Tx, model ...*T) error

	// SaveOrUpdateWithTx upserts entities within a transaction.
	SaveOrUpdateWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, model ...*T) error

	// UpdateWithTx updates an entity within a transaction.
	UpdateWithTx(ctx context.Context, tx *bun.Tx, model *T) error

	// DeleteWithTx removes an entity within a transaction.
	DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error

	// SelectBuilder returns a Bun select query builder for the entity.
	SelectBuilder() *bun.SelectQuery

	// InsertBuilder returns a Bun insert query builder for the entity.
	InsertBuilder() *bun.InsertQuery

	// UpdateBuilder returns a Bun update query builder for the entity.
	UpdateBuilder() *bun.UpdateQuery

	// DeleteBuilder returns a Bun delete query builder for the entity.
	DeleteBuilder() *bun.DeleteQuery
}

type baseServiceImpl[T any] struct {
	repo repository.Repository[T]
	opts []repository.QueryOption
	once sync.Once
}

// NewService returns a default Service implementation using the generic
// repository backed by the global database connection. Query options tune how
// raw query parameters are normalized for this entity.
func NewService[T any](opts ...repository.QueryOption) Service[T] {
	return &baseServiceImpl[T]{opts: opts}
}

func (s *baseServiceImpl[T]) baseRepo() repository.Repository[T] {
	s.once.Do(func() { s.repo = repository.NewRepository[T](database.GetDB(), s.opts...) })
	return s.repo
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.baseRepo().Create(ctx, model...)
}

func (s *baseServiceImpl[T]) SaveAndFetch(ctx context.Context, model *T) (*T, error) {
	return s.baseRepo().CreateAndFetch(ctx, model)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	return s.baseRepo().Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.baseRepo().FindByPK(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.baseRepo().All(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return s.baseRepo().List(ctx, filter)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	return s.baseRepo().Query(ctx, query, args...)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.baseRepo().Page(ctx, page)
}

func (s *baseServiceImpl[T]) BuildFindOptions(params *types.QueryParams) *types.FindOptions {
	return s.baseRepo().BuildFindOptions(params)
}

func (s *baseServiceImpl[T]) BuildFindOneOptions(params *types.QueryParams) *types.FindOneOptions {
	return s.baseRepo().BuildFindOneOptions(params)
}

func (s *baseServiceImpl[T]) Find(ctx context.Context, opts *types.FindOptions) ([]*T, error) {
	return s.baseRepo().Find(ctx, opts)
}

func (s *baseServiceImpl[T]) FindOne(ctx context.Context, opts *types.FindOneOptions) (*T, error) {
	return s.baseRepo().FindOne(ctx, opts)
}

func (s *baseServiceImpl[T]) FindAndCount(ctx context.Context, opts *types.FindOptions) ([]*T, int, error) {
	return s.baseRepo().FindAndCount(ctx, opts)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, where *types.Where) (int, error) {
	return s.baseRepo().Count(ctx, where)
}

func (s *baseServiceImpl[T]) Sum(ctx context.Context, column string, where *types.Where) (float64, error) {
	return s.baseRepo().Sum(ctx, column, where)
}

func (s *baseServiceImpl[T]) Avg(ctx context.Context, column string, where *types.Where) (float64, error) {
	return s.baseRepo().Avg(ctx, column, where)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) (*T, error) {
	return s.baseRepo().Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.baseRepo().Delete(ctx, id)
}

func (s *baseServiceImpl[T]) SoftRemove(ctx context.Context, id any) error {
	return s.baseRepo().SoftRemove(ctx, id)
}

func (s *baseServiceImpl[T]) Purge(ctx context.Context, id any) error {
	return s.baseRepo().Purge(ctx, id)
}

func (s *baseServiceImpl[T]) BulkImport(ctx context.Context, opts *types.BulkOptions, rows []*T) (*types.BulkResult, error) {
	return s.baseRepo().BulkImport(ctx, opts, rows)
}

func (s *baseServiceImpl[T]) SaveWithTx(ctx context.Context, tx *bun.Tx, model ...*T) error {
	return s.baseRepo().CreateWithTx(ctx, tx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdateWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, model ...*T) error {
	return s.baseRepo().UpsertWithTx(ctx, tx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, model *T) error {
	return s.baseRepo().UpdateWithTx(ctx, tx, model)
}

func (s *baseServiceImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	return s.baseRepo().DeleteWithTx(ctx, tx, id)
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	return s.baseRepo().NewSelect()
}

func (s *baseServiceImpl[T]) InsertBuilder() *bun.InsertQuery {
	return s.baseRepo().NewInsert()
}

func (s *baseServiceImpl[T]) UpdateBuilder() *bun.UpdateQuery {
	return s.baseRepo().NewUpdate()
}

func (s *baseServiceImpl[T]) DeleteBuilder() *bun.DeleteQuery {
	return s.baseRepo().NewDelete()
}

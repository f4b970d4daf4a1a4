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
	"fmt"
	"github.com/wrenlib/wren/database"
	"github.com/wrenlib/wren/types"
	"strings"
	"sync"

	"github.com/uptrace/bun/schema"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

type baseRepositoryImpl[T any] struct {
	db   *bun.DB
	opts []QueryOption

	metaOnce sync.Once
	metaView *tableMeta
}

// NewRepository returns a generic repository backed by the provided Bun DB.
// Query options configure how raw query parameters normalize for this model.
func NewRepository[T any](db *bun.DB, opts ...QueryOption) Repository[T] {
	return &baseRepositoryImpl[T]{db: db, opts: opts}
}

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T]) ValsToSlice(entity ...*T) []*T {
	entities := make([]*T, len(entity))
	copy(entities, entity)
	return entities
}

func (r *baseRepositoryImpl[T]) meta() *tableMeta {
	r.metaOnce.Do(func() {
		r.metaView = lookupMeta(r.db, (*T)(nil))
	})
	return r.metaView
}

func (r *baseRepositoryImpl[T]) logger() database.Logger { return database.GetLogger() }

// logWriteErr logs a failed write. Duplicate-key violations are expected
// application traffic and log at debug; everything else logs at error. The
// caller returns err unchanged either way.
func (r *baseRepositoryImpl[T]) logWriteErr(op string, err error) {
	if database.IsDuplicateKey(err) {
		r.logger().Debug("duplicate key on "+op, "table", r.meta().Name(), "error", err.Error())
		return
	}
	r.logger().Error(op+" failed", "table", r.meta().Name(), "error", err.Error())
}

func (r *baseRepositoryImpl[T]) FindByPK(ctx context.Context, id any) (*T, error) {
	var entity T
	meta := r.meta()
	err := r.db.NewSelect().Model(&entity).
		Where("?.? = ?", bun.Ident(meta.Alias()), bun.Ident(meta.PKColumn()), id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) All(ctx context.Context) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().Model(&entities).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	var entities []*T
	query := r.db.NewSelect().Model(&entities)
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	err := query.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entities, err
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	var entities []*T
	query := r.db.NewSelect().Model(&entities)
	if pageRequest.GetFilter() != nil {
		query = query.Where(pageRequest.GetFilter().Schema, pageRequest.GetFilter().Args...)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Order(pageRequest.GetOrders()...).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) BuildFindOptions(params *types.QueryParams) *types.FindOptions {
	return BuildFindOptions(r.db, (*T)(nil), params, r.opts...)
}

func (r *baseRepositoryImpl[T]) BuildFindOneOptions(params *types.QueryParams) *types.FindOneOptions {
	return BuildFindOneOptions(r.db, (*T)(nil), params, r.opts...)
}

func (r *baseRepositoryImpl[T]) Find(ctx context.Context, opts *types.FindOptions) ([]*T, error) {
	var entities []*T
	meta := r.meta()
	query := applyFindOptions(r.db.NewSelect().Model(&entities), r.db, meta, opts)
	r.logger().Debug("find", "table", meta.Name())
	if err := query.Scan(ctx); err != nil {
		r.logger().Error("find failed", "table", meta.Name(), "error", err.Error())
		return nil, err
	}
	r.logger().Debug("find done", "table", meta.Name(), "rows", len(entities))
	return entities, nil
}

func (r *baseRepositoryImpl[T]) FindOne(ctx context.Context, opts *types.FindOneOptions) (*T, error) {
	var entity T
	query := applyFindOneOptions(r.db.NewSelect().Model(&entity), r.db, r.meta(), opts)
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) FindAndCount(ctx context.Context, opts *types.FindOptions) ([]*T, int, error) {
	var entities []*T
	meta := r.meta()
	query := applyFindOptions(r.db.NewSelect().Model(&entities), r.db, meta, opts)
	count, err := query.ScanAndCount(ctx)
	if err != nil {
		r.logger().Error("find and count failed", "table", meta.Name(), "error", err.Error())
		return nil, 0, err
	}
	r.logger().Debug("find and count done", "table", meta.Name(), "rows", len(entities), "total", count)
	return entities, count, nil
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity ...*T) error {
	entities := r.ValsToSlice(entity...)
	r.logger().Debug("create", "table", r.meta().Name(), "rows", len(entities))
	if _, err := r.db.NewInsert().Model(&entities).Exec(ctx); err != nil {
		r.logWriteErr("create", err)
		return err
	}
	r.logger().Debug("create done", "table", r.meta().Name(), "rows", len(entities))
	return nil
}

func (r *baseRepositoryImpl[T]) CreateAndFetch(ctx context.Context, entity *T) (*T, error) {
	r.logger().Debug("create", "table", r.meta().Name(), "rows", 1)
	if _, err := r.db.NewInsert().Model(entity).Exec(ctx); err != nil {
		r.logWriteErr("create", err)
		return nil, err
	}
	return r.refetch(ctx, entity)
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, nil, fields, duplicateKeys, entity...)
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) (*T, error) {
	meta := r.meta()
	if !meta.HasPKValues(entity) {
		return nil, fmt.Errorf("update %s: %w", meta.Name(), ErrMissingPrimaryKey)
	}
	r.logger().Debug("update", "table", meta.Name(), "pk", meta.PKValues(entity))
	if _, err := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx); err != nil {
		r.logWriteErr("update", err)
		return nil, err
	}
	updated, err := r.refetch(ctx, entity)
	if err != nil {
		return nil, err
	}
	r.logger().Debug("update done", "table", meta.Name(), "pk", meta.PKValues(entity))
	return updated, nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) error {
	var entity T
	meta := r.meta()
	_, err := r.db.NewDelete().Model(&entity).
		Where("? = ?", bun.Ident(meta.PKColumn()), id).
		Exec(ctx)
	if err != nil {
		r.logWriteErr("delete", err)
	}
	return err
}

func (r *baseRepositoryImpl[T]) SoftRemove(ctx context.Context, id any) error {
	meta := r.meta()
	if _, ok := meta.SoftDelete(); !ok {
		return fmt.Errorf("soft remove %s: %w", meta.Name(), ErrNoSoftDelete)
	}
	// Bun turns the delete into an UPDATE of the soft-delete column.
	var entity T
	_, err := r.db.NewDelete().Model(&entity).
		Where("? = ?", bun.Ident(meta.PKColumn()), id).
		Exec(ctx)
	if err != nil {
		r.logWriteErr("soft remove", err)
	}
	return err
}

func (r *baseRepositoryImpl[T]) Purge(ctx context.Context, id any) error {
	var entity T
	meta := r.meta()
	_, err := r.db.NewDelete().Model(&entity).ForceDelete().
		Where("? = ?", bun.Ident(meta.PKColumn()), id).
		Exec(ctx)
	if err != nil {
		r.logWriteErr("purge", err)
	}
	return err
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, where *types.Where) (int, error) {
	query := applyWhere(r.db.NewSelect().Model((*T)(nil)), r.db, r.meta(), where)
	return query.Count(ctx)
}

func (r *baseRepositoryImpl[T]) Sum(ctx context.Context, column string, where *types.Where) (float64, error) {
	return r.aggregate(ctx, "SUM", column, where)
}

func (r *baseRepositoryImpl[T]) Avg(ctx context.Context, column string, where *types.Where) (float64, error) {
	return r.aggregate(ctx, "AVG", column, where)
}

// aggregate runs fn over the column with the where clause applied. A NULL
// aggregate (no matching rows) reads as 0.
func (r *baseRepositoryImpl[T]) aggregate(ctx context.Context, fn string, column string, where *types.Where) (float64, error) {
	meta := r.meta()
	if !meta.HasColumn(column) {
		return 0, fmt.Errorf("%s(%s) on %s: %w", strings.ToLower(fn), column, meta.Name(), ErrUnknownColumn)
	}
	var value float64
	query := r.db.NewSelect().Model((*T)(nil)).
		ColumnExpr(fmt.Sprintf("COALESCE(%s(?.?), 0)", fn), bun.Ident(meta.Alias()), bun.Ident(column))
	query = applyWhere(query, r.db, meta, where)
	if err := query.Scan(ctx, &value); err != nil {
		return 0, err
	}
	return value, nil
}

// refetch loads the entity's current row by primary key with the declared
// relations.
func (r *baseRepositoryImpl[T]) refetch(ctx context.Context, entity *T) (*T, error) {
	query := r.db.NewSelect().Model(entity).WherePK()
	for _, name := range r.meta().RelationNames() {
		query = query.Relation(name)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) CreateWithTx(ctx context.Context, tx *bun.Tx, entity ...*T) error {
	entities := r.ValsToSlice(entity...)
	_, err := tx.NewInsert().Model(&entities).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) UpsertWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, tx, fields, duplicateKeys, entity...)
}

func (r *baseRepositoryImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error {
	_, err := tx.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	var entity T
	_, err := tx.NewDelete().Model(&entity).
		Where("? = ?", bun.Ident(r.meta().PKColumn()), id).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) multipleUpsert(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}

	// If transaction is not nil, use it to execute insert/update
	var insertQuery *bun.InsertQuery
	if tx != nil {
		insertQuery = tx.NewInsert()
	} else {
		insertQuery = r.db.NewInsert()
	}

	entities := r.ValsToSlice(entity...)

	if r.db.HasFeature(feature.InsertOnConflict) {
		return r.upsertWithPostgresqlOrSQLite(ctx, insertQuery, fields, duplicateKeys, entities)
	} else if r.db.HasFeature(feature.InsertOnDuplicateKey) {
		return r.upsertWithMySQL(ctx, insertQuery, fields, entities)
	} else {
		// Fallback: Separate insert/update logic
		return r.upsertFallback(ctx, entities)
	}
}

func (r *baseRepositoryImpl[T]) upsertWithMySQL(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, entities []*T) error {
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = VALUES(%s)", bun.Ident(field), bun.Ident(field)))
	}
	_, err := insertQuery.
		Model(&entities).
		On("DUPLICATE KEY UPDATE " + strings.Join(queryArgs, ", ")).
		Exec(ctx)
	if err != nil {
		r.logWriteErr("upsert", err)
	}
	return err
}

func (r *baseRepositoryImpl[T]) upsertWithPostgresqlOrSQLite(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{r.meta().PKColumn()}
	}
	keyNames := strings.Join(duplicateKeys, ",")
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = EXCLUDED.%s", bun.Ident(field), bun.Ident(field)))
	}
	_, err := insertQuery.
		Model(&entities).
		On("CONFLICT (" + keyNames + ") DO UPDATE").
		Set(strings.Join(queryArgs, ", ")).
		Exec(ctx)
	if err != nil {
		r.logWriteErr("upsert", err)
	}
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, entities []*T) error {
	for _, entity := range entities {
		_, err := r.db.NewInsert().Model(entity).Exec(ctx)
		if err != nil {
			_, updateErr := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
			if updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %v", err, updateErr)
			}
		}
	}
	return nil
}

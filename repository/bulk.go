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
	"strings"

	"github.com/uptrace/bun"
	"github.com/wrenlib/wren/database"
	"github.com/wrenlib/wren/types"
)

// BulkImport runs one bulk pass over rows under the configured mode. Rows
// are processed strictly one at a time so a large batch cannot flood the
// shared connection pool. A failing row is recorded in the manifest and the
// pass continues; only configuration errors abort the call.
func (r *baseRepositoryImpl[T]) BulkImport(ctx context.Context, opts *types.BulkOptions, rows []*T) (*types.BulkResult, error) {
	if opts == nil {
		opts = &types.BulkOptions{}
	}
	meta := r.meta()
	result := types.NewBulkResult(len(rows))
	r.logger().Info("bulk import", "table", meta.Name(), "mode", opts.Mode.Name(), "rows", len(rows))
	switch opts.Mode {
	case types.BulkCreate:
		r.bulkCreate(ctx, result, rows)
	case types.BulkUpsert:
		if err := r.requireDedupField(opts); err != nil {
			return nil, err
		}
		r.bulkUpsert(ctx, opts.DedupField, result, rows)
	case types.BulkDelete:
		if err := r.requireDedupField(opts); err != nil {
			return nil, err
		}
		r.bulkDelete(ctx, opts.DedupField, result, rows)
	case types.BulkRepopulate:
		if err := r.bulkRepopulate(ctx, result, rows); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("bulk import %s: mode %d: %w", meta.Name(), int(opts.Mode), ErrUnsupportedBulkMode)
	}
	r.logger().Info("bulk import done", "table", meta.Name(), "mode", opts.Mode.Name(),
		"processed", result.Processed, "created", result.Created, "updated", result.Updated,
		"deleted", result.Deleted, "errored", result.Errored)
	return result, nil
}

// requireDedupField validates the dedup column for upsert and delete modes.
func (r *baseRepositoryImpl[T]) requireDedupField(opts *types.BulkOptions) error {
	field := strings.TrimSpace(opts.DedupField)
	if field == "" || !r.meta().HasColumn(field) {
		return fmt.Errorf("bulk %s on %s: %q: %w", opts.Mode.Name(), r.meta().Name(), opts.DedupField, ErrMissingDedupField)
	}
	return nil
}

// bulkCreate inserts rows one at a time, appending each new primary key to
// the manifest.
func (r *baseRepositoryImpl[T]) bulkCreate(ctx context.Context, result *types.BulkResult, rows []*T) {
	meta := r.meta()
	for i, row := range rows {
		result.Processed++
		if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
			r.logWriteErr("bulk create", err)
			result.Fail(i, err)
			continue
		}
		result.Created++
		result.IDs = append(result.IDs, meta.PKValues(row))
	}
}

// bulkUpsert looks each row up by its dedup value: a hit copies the primary
// key onto the row and updates it, a miss inserts it.
func (r *baseRepositoryImpl[T]) bulkUpsert(ctx context.Context, dedupField string, result *types.BulkResult, rows []*T) {
	meta := r.meta()
	for i, row := range rows {
		result.Processed++
		existing, found, err := r.findByDedup(ctx, dedupField, row)
		if err != nil {
			r.logWriteErr("bulk upsert", err)
			result.Fail(i, err)
			continue
		}
		if !found {
			if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
				r.logWriteErr("bulk upsert", err)
				result.Fail(i, err)
				continue
			}
			result.Created++
			result.IDs = append(result.IDs, meta.PKValues(row))
			continue
		}
		meta.CopyPKs(row, existing)
		if _, err := r.db.NewUpdate().Model(row).WherePK().Exec(ctx); err != nil {
			r.logWriteErr("bulk upsert", err)
			result.Fail(i, err)
			continue
		}
		result.Updated++
		result.IDs = append(result.IDs, meta.PKValues(row))
	}
}

// bulkDelete hard-deletes each row matched by its dedup value. A miss only
// counts as processed.
func (r *baseRepositoryImpl[T]) bulkDelete(ctx context.Context, dedupField string, result *types.BulkResult, rows []*T) {
	meta := r.meta()
	for i, row := range rows {
		result.Processed++
		existing, found, err := r.findByDedup(ctx, dedupField, row)
		if err != nil {
			r.logWriteErr("bulk delete", err)
			result.Fail(i, err)
			continue
		}
		if !found {
			continue
		}
		if _, err := r.db.NewDelete().Model(existing).WherePK().ForceDelete().Exec(ctx); err != nil {
			r.logWriteErr("bulk delete", err)
			result.Fail(i, err)
			continue
		}
		result.Deleted++
		result.IDs = append(result.IDs, meta.PKValues(existing))
	}
}

// findByDedup fetches the first row whose dedup column matches the row's
// value.
func (r *baseRepositoryImpl[T]) findByDedup(ctx context.Context, dedupField string, row *T) (*T, bool, error) {
	meta := r.meta()
	var existing T
	err := r.db.NewSelect().Model(&existing).
		Where("?.? = ?", bun.Ident(meta.Alias()), bun.Ident(dedupField), meta.ColumnValue(row, dedupField)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if is, kind := database.IsSQLError(err); is && kind == database.NoRowsErr {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &existing, true, nil
}

// bulkRepopulate snapshots the live table, truncates it and reloads it from
// rows. Any failure restores the snapshot over the live table. The restore
// is rename-based, not atomic; a crash mid-sequence can leave the renamed
// tables behind.
func (r *baseRepositoryImpl[T]) bulkRepopulate(ctx context.Context, result *types.BulkResult, rows []*T) error {
	meta := r.meta()
	table := meta.Name()
	snapshot := table + "_snapshot"

	if err := r.snapshotTable(ctx, table, snapshot); err != nil {
		return fmt.Errorf("snapshot %s: %w", table, err)
	}
	if err := r.truncateTable(ctx); err != nil {
		r.logger().Warn("truncate failed, restoring snapshot", "table", table, "error", err.Error())
		if restoreErr := r.restoreSnapshot(ctx, table, snapshot); restoreErr != nil {
			return fmt.Errorf("truncate %s: %v: restore: %w", table, err, restoreErr)
		}
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	r.bulkCreate(ctx, result, rows)
	if result.Errored > 0 {
		r.logger().Warn("repopulate had failing rows, restoring snapshot",
			"table", table, "errored", result.Errored)
		if err := r.restoreSnapshot(ctx, table, snapshot); err != nil {
			return fmt.Errorf("restore %s: %w", table, err)
		}
		return nil
	}
	if err := r.dropTable(ctx, snapshot); err != nil {
		r.logger().Warn("snapshot left behind", "table", snapshot, "error", err.Error())
	}
	return nil
}

// snapshotTable copies the live table into the snapshot. A stale snapshot
// left by a crashed run is dropped and the copy retried once.
func (r *baseRepositoryImpl[T]) snapshotTable(ctx context.Context, table, snapshot string) error {
	err := r.copyTable(ctx, table, snapshot)
	if err == nil {
		return nil
	}
	if is, kind := database.IsSQLError(err); is && kind == database.ExistTableErr {
		r.logger().Warn("stale snapshot found, dropping", "table", snapshot)
		if dropErr := r.dropTable(ctx, snapshot); dropErr != nil {
			return dropErr
		}
		return r.copyTable(ctx, table, snapshot)
	}
	return err
}

// restoreSnapshot swaps the snapshot back over the live table: the failed
// load moves aside, the snapshot takes its name, the failed copy is dropped.
func (r *baseRepositoryImpl[T]) restoreSnapshot(ctx context.Context, table, snapshot string) error {
	failed := table + "_failed"
	if err := r.renameTable(ctx, table, failed); err != nil {
		return err
	}
	if err := r.renameTable(ctx, snapshot, table); err != nil {
		return err
	}
	if err := r.dropTable(ctx, failed); err != nil {
		r.logger().Warn("failed table left behind", "table", failed, "error", err.Error())
	}
	return nil
}

// copyTable clones the table's structure and content. MySQL preserves the
// structure via CREATE TABLE LIKE and postgres via INCLUDING ALL; sqlite
// only offers CREATE TABLE AS SELECT, which keeps data but not constraints.
func (r *baseRepositoryImpl[T]) copyTable(ctx context.Context, src, dst string) error {
	switch r.dialectName() {
	case "mysql":
		if _, err := r.db.ExecContext(ctx, "CREATE TABLE ? LIKE ?", bun.Ident(dst), bun.Ident(src)); err != nil {
			return err
		}
		_, err := r.db.ExecContext(ctx, "INSERT INTO ? SELECT * FROM ?", bun.Ident(dst), bun.Ident(src))
		return err
	case "pg":
		if _, err := r.db.ExecContext(ctx, "CREATE TABLE ? (LIKE ? INCLUDING ALL)", bun.Ident(dst), bun.Ident(src)); err != nil {
			return err
		}
		_, err := r.db.ExecContext(ctx, "INSERT INTO ? SELECT * FROM ?", bun.Ident(dst), bun.Ident(src))
		return err
	default:
		_, err := r.db.ExecContext(ctx, "CREATE TABLE ? AS SELECT * FROM ?", bun.Ident(dst), bun.Ident(src))
		return err
	}
}

// renameTable renames src to dst. MySQL uses RENAME TABLE; postgres and
// sqlite use ALTER TABLE RENAME.
func (r *baseRepositoryImpl[T]) renameTable(ctx context.Context, src, dst string) error {
	if r.dialectName() == "mysql" {
		_, err := r.db.ExecContext(ctx, "RENAME TABLE ? TO ?", bun.Ident(src), bun.Ident(dst))
		return err
	}
	_, err := r.db.ExecContext(ctx, "ALTER TABLE ? RENAME TO ?", bun.Ident(src), bun.Ident(dst))
	return err
}

// truncateTable empties the live table. Bun renders DELETE FROM on sqlite
// and TRUNCATE elsewhere.
func (r *baseRepositoryImpl[T]) truncateTable(ctx context.Context) error {
	var entity T
	_, err := r.db.NewTruncateTable().Model(&entity).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) dropTable(ctx context.Context, name string) error {
	_, err := r.db.NewDropTable().Table(name).IfExists().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) dialectName() string {
	return strings.ToLower(r.db.Dialect().Name().String())
}

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
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
	"github.com/wrenlib/wren/types"
)

// Subquery aliases for relation-scoped conditions. Underscore-prefixed so
// they cannot collide with Bun's model aliases.
const (
	relAlias   = "_rel"
	pivotAlias = "_pivot"
)

// applyFindOptions renders normalized options onto a select query.
func applyFindOptions(q *bun.SelectQuery, db *bun.DB, meta *tableMeta, opts *types.FindOptions) *bun.SelectQuery {
	if opts == nil {
		return q
	}
	if len(opts.Select) > 0 {
		q = q.Column(opts.Select...)
	}
	for _, name := range opts.Relations {
		q = q.Relation(name)
	}
	q = applyWhere(q, db, meta, opts.Where)
	for _, order := range opts.Order {
		q = q.OrderExpr("?.? ?", bun.Ident(meta.Alias()), bun.Ident(order.Column), bun.Safe(order.Type))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	return q
}

// applyFindOneOptions renders single-row options; the query is capped at one
// row.
func applyFindOneOptions(q *bun.SelectQuery, db *bun.DB, meta *tableMeta, opts *types.FindOneOptions) *bun.SelectQuery {
	if opts == nil {
		return q.Limit(1)
	}
	return applyFindOptions(q, db, meta, &types.FindOptions{
		Select:    opts.Select,
		Relations: opts.Relations,
		Where:     opts.Where,
		Order:     opts.Order,
		Limit:     1,
	})
}

// applyWhere renders the where clause: plain conditions ANDed together, each
// OR group appended as one parenthesized disjunction.
func applyWhere(q *bun.SelectQuery, db *bun.DB, meta *tableMeta, where *types.Where) *bun.SelectQuery {
	if where.IsZero() {
		return q
	}
	for _, cond := range where.Conditions {
		expr, args, ok := condExpr(db, meta, cond)
		if !ok {
			continue
		}
		q = q.Where(expr, args...)
	}
	for _, group := range where.OrGroups {
		if len(group) == 0 {
			continue
		}
		conds := group
		q = q.WhereGroup(" AND ", func(sub *bun.SelectQuery) *bun.SelectQuery {
			for _, cond := range conds {
				expr, args, ok := condExpr(db, meta, cond)
				if !ok {
					continue
				}
				sub = sub.WhereOr(expr, args...)
			}
			return sub
		})
	}
	return q
}

// condExpr renders one condition to a Bun expression. Relation-scoped
// conditions become correlated EXISTS subqueries, so conditions on has-many
// and belongs-to relations filter the base rows identically.
func condExpr(db *bun.DB, meta *tableMeta, cond types.Condition) (string, []any, bool) {
	if cond.Relation != "" {
		sub, ok := relationExists(db, meta, cond)
		if !ok {
			return "", nil, false
		}
		return "EXISTS (?)", []any{sub}, true
	}
	expr, args := columnExpr(meta.Alias(), cond)
	return expr, args, true
}

// columnExpr renders a single-column condition against the aliased table.
func columnExpr(alias string, cond types.Condition) (string, []any) {
	op := cond.Operator
	switch {
	case op.Unary():
		return fmt.Sprintf("?.? %s", op.SQL()),
			[]any{bun.Ident(alias), bun.Ident(cond.Column)}
	case cond.Fold:
		return fmt.Sprintf("LOWER(?.?) %s LOWER(?)", op.SQL()),
			[]any{bun.Ident(alias), bun.Ident(cond.Column), cond.Value}
	default:
		return fmt.Sprintf("?.? %s ?", op.SQL()),
			[]any{bun.Ident(alias), bun.Ident(cond.Column), cond.Value}
	}
}

// relationExists builds the correlated subquery for a relation-scoped
// condition, matching related rows on the join columns Bun resolved for the
// relation. Many-to-many correlates through the pivot table.
func relationExists(db *bun.DB, meta *tableMeta, cond types.Condition) (*bun.SelectQuery, bool) {
	_, rel, ok := meta.Relation(cond.Relation)
	if !ok {
		return nil, false
	}
	expr, args := columnExpr(relAlias, types.Condition{
		Column:   cond.Column,
		Operator: cond.Operator,
		Value:    cond.Value,
		Fold:     cond.Fold,
	})
	sub := db.NewSelect().ColumnExpr("1")
	if rel.Type == schema.ManyToManyRelation {
		sub = sub.TableExpr("? AS ?", bun.Ident(rel.M2MTable.Name), bun.Ident(pivotAlias)).
			Join("JOIN ? AS ?", bun.Ident(rel.JoinTable.Name), bun.Ident(relAlias))
		for i := range rel.M2MJoinPKs {
			sub = sub.JoinOn("?.? = ?.?",
				bun.Ident(relAlias), bun.Ident(rel.JoinPKs[i].Name),
				bun.Ident(pivotAlias), bun.Ident(rel.M2MJoinPKs[i].Name))
		}
		for i := range rel.M2MBasePKs {
			sub = sub.Where("?.? = ?.?",
				bun.Ident(pivotAlias), bun.Ident(rel.M2MBasePKs[i].Name),
				bun.Ident(meta.Alias()), bun.Ident(rel.BasePKs[i].Name))
		}
		return sub.Where(expr, args...), true
	}
	sub = sub.TableExpr("? AS ?", bun.Ident(rel.JoinTable.Name), bun.Ident(relAlias))
	for i := range rel.JoinPKs {
		sub = sub.Where("?.? = ?.?",
			bun.Ident(relAlias), bun.Ident(rel.JoinPKs[i].Name),
			bun.Ident(meta.Alias()), bun.Ident(rel.BasePKs[i].Name))
	}
	return sub.Where(expr, args...), true
}

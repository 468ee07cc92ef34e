package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/mrahman/sitebuilder/internal/apperror"
)

// GENERIC REPOSITORY:
// One implementation of find/create/update/delete serves every entity. Each
// entity contributes a Schema — an explicit descriptor of its table name,
// column set, and two tiny accessors — and gets a fully typed Repo[T] back.
//
// The descriptor is also the security boundary: filter, order, and update
// column names are checked against Schema.Columns before they're ever
// interpolated into SQL, so identifiers can't be injected. Values always go
// through placeholders.
//
// Every operation takes a Querier, so the same Repo works inside and outside
// a transaction — callers that need atomicity across several operations wrap
// them in Store.WithTx and pass the transaction-scoped Querier through.

// Schema describes how an entity maps onto its table.
type Schema[T any] struct {
	Table   string
	Columns []string // full column set, in insert order; doubles as the identifier whitelist

	// ID returns the entity's primary key.
	ID func(*T) string
	// Init assigns the generated id and creation timestamps before insert.
	Init func(*T, string, time.Time)
}

func (s Schema[T]) hasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Cond is one equality condition of a filter.
type Cond struct {
	Column string
	Value  any
}

// Eq builds a single equality condition.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Value: value}
}

// Where is an ordered conjunction of conditions. Ordered (a slice, not a map)
// so generated SQL is deterministic.
type Where []Cond

// OrderBy names the sort column and direction. The zero value means
// "created_at DESC" — newest first, matching the dashboard default.
type OrderBy struct {
	Column string
	Desc   bool
}

// Field is one column assignment of an update.
type Field struct {
	Column string
	Value  any
}

// Set builds a single update assignment.
func Set(column string, value any) Field {
	return Field{Column: column, Value: value}
}

// Fields is an ordered list of update assignments.
type Fields []Field

// Repo is the generic repository for one entity type.
type Repo[T any] struct {
	schema Schema[T]
}

func NewRepo[T any](schema Schema[T]) *Repo[T] {
	return &Repo[T]{schema: schema}
}

// FindByID returns the row with the given id, or (nil, nil) when absent.
func (r *Repo[T]) FindByID(ctx context.Context, q Querier, id string) (*T, error) {
	return r.FindUnique(ctx, q, Where{Eq("id", id)})
}

// FindUnique returns the row matching the filter, or (nil, nil) when absent.
// Absence is never an error here — callers that need a 404 translate it.
func (r *Repo[T]) FindUnique(ctx context.Context, q Querier, where Where) (*T, error) {
	clause, args, err := r.whereSQL(where)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s LIMIT 1", r.columnList(), r.schema.Table, clause)

	var dst T
	if err := sqlx.GetContext(ctx, q, &dst, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: finding %s: %w", r.schema.Table, err)
	}
	return &dst, nil
}

// FindFirst returns the first row matching the filter under the given order,
// or (nil, nil) when nothing matches.
func (r *Repo[T]) FindFirst(ctx context.Context, q Querier, where Where, order OrderBy) (*T, error) {
	clause, args, err := r.whereSQL(where)
	if err != nil {
		return nil, err
	}
	orderSQL, err := r.orderSQL(order)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT 1",
		r.columnList(), r.schema.Table, clause, orderSQL)

	var dst T
	if err := sqlx.GetContext(ctx, q, &dst, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: finding first %s: %w", r.schema.Table, err)
	}
	return &dst, nil
}

// FindMany returns all rows matching the filter in the given order.
// No matches means an empty slice, never an error.
func (r *Repo[T]) FindMany(ctx context.Context, q Querier, where Where, order OrderBy) ([]T, error) {
	clause, args, err := r.whereSQL(where)
	if err != nil {
		return nil, err
	}
	orderSQL, err := r.orderSQL(order)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s%s",
		r.columnList(), r.schema.Table, clause, orderSQL)

	rows := []T{}
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing %s: %w", r.schema.Table, err)
	}
	return rows, nil
}

// FindPage returns one page of rows. page is 1-indexed;
// offset = (page-1) * pageSize.
func (r *Repo[T]) FindPage(ctx context.Context, q Querier, where Where, order OrderBy, page, pageSize int) ([]T, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	clause, args, err := r.whereSQL(where)
	if err != nil {
		return nil, err
	}
	orderSQL, err := r.orderSQL(order)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT ? OFFSET ?",
		r.columnList(), r.schema.Table, clause, orderSQL)
	args = append(args, pageSize, (page-1)*pageSize)

	rows := []T{}
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: paging %s: %w", r.schema.Table, err)
	}
	return rows, nil
}

// Create inserts the entity, assigning a fresh xid and timestamps in place.
// Uniqueness violations come back as apperror.ErrConflict.
func (r *Repo[T]) Create(ctx context.Context, q Querier, entity *T) error {
	now := time.Now().UTC()
	r.schema.Init(entity, xid.New().String(), now)

	if _, err := sqlx.NamedExecContext(ctx, q, r.insertSQL(), entity); err != nil {
		if terr := translateErr(err, r.schema.Table); terr != err {
			return terr
		}
		return fmt.Errorf("sqlite: creating %s: %w", r.schema.Table, err)
	}
	return nil
}

// CreateMany bulk-inserts the entities in one statement and returns the
// number of rows inserted. The entities get their ids and timestamps
// assigned in place, like Create.
func (r *Repo[T]) CreateMany(ctx context.Context, q Querier, entities []T) (int64, error) {
	if len(entities) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	for i := range entities {
		r.schema.Init(&entities[i], xid.New().String(), now)
	}

	// sqlx expands a named exec over a slice into a multi-row VALUES list.
	res, err := sqlx.NamedExecContext(ctx, q, r.insertSQL(), entities)
	if err != nil {
		if terr := translateErr(err, r.schema.Table); terr != err {
			return 0, terr
		}
		return 0, fmt.Errorf("sqlite: bulk creating %s: %w", r.schema.Table, err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting inserted %s: %w", r.schema.Table, err)
	}
	return count, nil
}

// Update applies the field assignments to the row with the given id and
// returns the updated row. updated_at is stamped automatically unless the
// caller set it explicitly. A missing row is apperror.ErrNotFound.
func (r *Repo[T]) Update(ctx context.Context, q Querier, id string, fields Fields) (*T, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("sqlite: updating %s: no fields given", r.schema.Table)
	}

	touched := false
	for _, f := range fields {
		if f.Column == "updated_at" {
			touched = true
		}
	}
	if !touched && r.schema.hasColumn("updated_at") {
		fields = append(fields, Set("updated_at", time.Now().UTC()))
	}

	assignments := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		if !r.schema.hasColumn(f.Column) {
			return nil, fmt.Errorf("sqlite: unknown column %q on %s", f.Column, r.schema.Table)
		}
		assignments = append(assignments, fmt.Sprintf("%s = ?", f.Column))
		args = append(args, f.Value)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
		r.schema.Table, strings.Join(assignments, ", "))

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		if terr := translateErr(err, r.schema.Table); terr != err {
			return nil, terr
		}
		return nil, fmt.Errorf("sqlite: updating %s %s: %w", r.schema.Table, id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperror.NotFound(r.schema.Table, id)
	}

	return r.FindByID(ctx, q, id)
}

// Delete removes the row with the given id and returns it.
// A missing row is apperror.ErrNotFound.
func (r *Repo[T]) Delete(ctx context.Context, q Querier, id string) (*T, error) {
	existing, err := r.FindByID(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperror.NotFound(r.schema.Table, id)
	}

	if _, err := q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.schema.Table), id,
	); err != nil {
		return nil, fmt.Errorf("sqlite: deleting %s %s: %w", r.schema.Table, id, err)
	}

	return existing, nil
}

// Count returns the number of rows matching the filter.
func (r *Repo[T]) Count(ctx context.Context, q Querier, where Where) (int, error) {
	clause, args, err := r.whereSQL(where)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", r.schema.Table, clause)

	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, args...); err != nil {
		return 0, fmt.Errorf("sqlite: counting %s: %w", r.schema.Table, err)
	}
	return count, nil
}

func (r *Repo[T]) columnList() string {
	return strings.Join(r.schema.Columns, ", ")
}

func (r *Repo[T]) insertSQL() string {
	placeholders := make([]string, len(r.schema.Columns))
	for i, c := range r.schema.Columns {
		placeholders[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.schema.Table, r.columnList(), strings.Join(placeholders, ", "))
}

func (r *Repo[T]) whereSQL(where Where) (clause string, args []any, err error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	conds := make([]string, 0, len(where))
	for _, c := range where {
		if !r.schema.hasColumn(c.Column) {
			return "", nil, fmt.Errorf("sqlite: unknown column %q on %s", c.Column, r.schema.Table)
		}
		conds = append(conds, fmt.Sprintf("%s = ?", c.Column))
		args = append(args, c.Value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (r *Repo[T]) orderSQL(order OrderBy) (string, error) {
	column := order.Column
	if column == "" {
		column = "created_at"
		order.Desc = true
	}
	if !r.schema.hasColumn(column) {
		return "", fmt.Errorf("sqlite: unknown column %q on %s", column, r.schema.Table)
	}

	dir := "ASC"
	if order.Desc {
		dir = "DESC"
	}

	// id tiebreaker keeps ordering stable when the sort key has duplicates
	// (section orders are an opaque sort key and may collide).
	if column == "id" {
		return fmt.Sprintf(" ORDER BY id %s", dir), nil
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", column, dir), nil
}

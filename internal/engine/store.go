package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dynquery/internal/dbexec"
	"dynquery/internal/planner"
	"dynquery/internal/queryerr"
	"dynquery/internal/rowmap"
	"dynquery/internal/sqlutil"
)

// Store executes planned queries. Implementations must honor ctx cancellation.
type Store interface {
	// Execute runs a row-producing plan and returns its rows keyed by Plan.RowKeys.
	Execute(ctx context.Context, plan *planner.Plan) ([]rowmap.Row, error)
	// ExecuteCount runs a count plan.
	ExecuteCount(ctx context.Context, plan *planner.CountPlan) (uint64, error)
	// Snapshot runs fn against a store whose reads observe one consistent state.
	Snapshot(ctx context.Context, fn func(Store) error) error
}

// SQLStore is a Store over a database/sql executor.
type SQLStore struct {
	exec    dbexec.QueryExecutor
	dialect sqlutil.Dialect
}

// NewSQLStore creates a store that renders plans for dialect and runs them on exec.
func NewSQLStore(exec dbexec.QueryExecutor, dialect sqlutil.Dialect) *SQLStore {
	return &SQLStore{exec: exec, dialect: dialect}
}

// Dialect returns the SQL dialect plans are rendered in.
func (s *SQLStore) Dialect() sqlutil.Dialect {
	return s.dialect
}

func (s *SQLStore) Execute(ctx context.Context, plan *planner.Plan) ([]rowmap.Row, error) {
	query, err := plan.ToSQL(s.dialect)
	if err != nil {
		return nil, queryerr.Invariant("render query on %s: %v", plan.Table, err)
	}

	rows, err := s.exec.QueryContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return nil, normalizeStoreError(err)
	}
	defer func() {
		_ = rows.Close()
	}()

	results, err := scanRows(rows, plan.RowKeys())
	if err != nil {
		return nil, normalizeStoreError(err)
	}
	return results, nil
}

func (s *SQLStore) ExecuteCount(ctx context.Context, plan *planner.CountPlan) (uint64, error) {
	query, err := plan.ToSQL(s.dialect)
	if err != nil {
		return 0, queryerr.Invariant("render count on %s: %v", plan.Table, err)
	}

	rows, err := s.exec.QueryContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return 0, normalizeStoreError(err)
	}
	defer func() {
		_ = rows.Close()
	}()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, normalizeStoreError(err)
		}
		return 0, queryerr.Invariant("count on %s returned no rows", plan.Table)
	}
	var count int64
	if err := rows.Scan(&count); err != nil {
		return 0, normalizeStoreError(err)
	}
	if err := rows.Err(); err != nil {
		return 0, normalizeStoreError(err)
	}
	if count < 0 {
		return 0, queryerr.Invariant("count on %s returned %d", plan.Table, count)
	}
	return uint64(count), nil
}

// Snapshot runs fn inside a read-only transaction when the executor can open
// one. Otherwise fn runs against s directly.
func (s *SQLStore) Snapshot(ctx context.Context, fn func(Store) error) (err error) {
	beginner, ok := s.exec.(dbexec.TxBeginner)
	if !ok {
		return fn(s)
	}

	tx, err := beginner.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return normalizeStoreError(fmt.Errorf("begin snapshot: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&SQLStore{exec: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return normalizeStoreError(fmt.Errorf("commit snapshot: %w", err))
	}
	return nil
}

// scanRows reads every row into a Row keyed positionally by keys.
// database/sql copies driver []byte into *any destinations, so values stay
// valid after the next call to Next.
func scanRows(rows dbexec.Rows, keys []string) ([]rowmap.Row, error) {
	results := []rowmap.Row{}
	values := make([]any, len(keys))
	ptrs := make([]any, len(keys))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		for i := range values {
			values[i] = nil
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(rowmap.Row, len(keys))
		for i, key := range keys {
			row[key] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dynquery/internal/catalog"
	"dynquery/internal/dbexec"
	"dynquery/internal/planner"
	"dynquery/internal/queryerr"
	"dynquery/internal/queryspec"
	"dynquery/internal/sqlutil"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(dbexec.NewStandardExecutor(db), sqlutil.MySQL), mock
}

func expectSQL(t *testing.T, plan interface {
	ToSQL(sqlutil.Dialect) (planner.SQLQuery, error)
}) string {
	t.Helper()
	q, err := plan.ToSQL(sqlutil.MySQL)
	require.NoError(t, err)
	return "^" + regexp.QuoteMeta(q.SQL) + "$"
}

func TestSQLStore_Execute(t *testing.T) {
	store, mock := newMockStore(t)
	plan, err := planner.Build(catalog.MustBuild().Products, queryspec.QuerySpec{
		Fields: []string{"name", "tags.name"},
		Filter: cond("name", queryspec.OpEq, "fanpoll"),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"products.id", "products.name", "tags.id", "tags.name"}, plan.RowKeys())

	mock.ExpectQuery(expectSQL(t, plan)).
		WithArgs("fanpoll").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "id", "name"}).
			AddRow(int64(1), []byte("fanpoll"), int64(1), "silent").
			AddRow(int64(1), []byte("fanpoll"), nil, nil))

	rows, err := store.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(1), rows[0]["products.id"])
	assert.Equal(t, []byte("fanpoll"), rows[0]["products.name"])
	assert.Equal(t, "silent", rows[0]["tags.name"])
	assert.Contains(t, rows[1], "tags.id")
	assert.Nil(t, rows[1]["tags.id"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ExecuteEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	plan, err := planner.Build(catalog.MustBuild().Tags, queryspec.QuerySpec{})
	require.NoError(t, err)

	mock.ExpectQuery(expectSQL(t, plan)).WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	rows, err := store.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestSQLStore_ExecuteCount(t *testing.T) {
	store, mock := newMockStore(t)
	plan, err := planner.BuildCount(catalog.MustBuild().Products, queryspec.QuerySpec{
		Filter: cond("tags.name", queryspec.OpEq, "rgb"),
	})
	require.NoError(t, err)

	mock.ExpectQuery(expectSQL(t, plan)).
		WithArgs("rgb").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(2))

	count, err := store.ExecuteCount(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ExecuteCountNoRows(t *testing.T) {
	store, mock := newMockStore(t)
	plan, err := planner.BuildCount(catalog.MustBuild().Products, queryspec.QuerySpec{})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM`).WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}))

	_, err = store.ExecuteCount(context.Background(), plan)
	assert.True(t, queryerr.IsKind(err, queryerr.KindInvariant))
}

func TestSQLStore_ErrorsAreNormalized(t *testing.T) {
	store, mock := newMockStore(t)
	plan, err := planner.Build(catalog.MustBuild().Tags, queryspec.QuerySpec{})
	require.NoError(t, err)

	mock.ExpectQuery(`FROM`).WillReturnError(&mysql.MySQLError{Number: 1142, Message: "SELECT command denied"})

	_, err = store.Execute(context.Background(), plan)
	qe, ok := queryerr.As(err)
	require.True(t, ok)
	assert.Equal(t, queryerr.KindStore, qe.Kind)
	assert.Equal(t, CodeAccessDenied, qe.Code)
	assert.False(t, qe.Client())
}

func TestSQLStore_ScanError(t *testing.T) {
	store, mock := newMockStore(t)
	plan, err := planner.Build(catalog.MustBuild().Tags, queryspec.QuerySpec{})
	require.NoError(t, err)

	mock.ExpectQuery(`FROM`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "rgb").RowError(0, errors.New("connection reset")),
	)

	_, err = store.Execute(context.Background(), plan)
	assert.True(t, queryerr.IsKind(err, queryerr.KindStore))
}

func TestSQLStore_SnapshotCommits(t *testing.T) {
	store, mock := newMockStore(t)
	ms := catalog.MustBuild()
	plan, err := planner.Build(ms.Tags, queryspec.QuerySpec{Mode: queryspec.MustPaging(1, 10)})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(expectSQL(t, plan.CountPlan())).WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))
	mock.ExpectQuery(expectSQL(t, plan)).WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "silent"))
	mock.ExpectCommit()

	err = store.Snapshot(context.Background(), func(s Store) error {
		total, err := s.ExecuteCount(context.Background(), plan.CountPlan())
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(1), total)
		rows, err := s.Execute(context.Background(), plan)
		assert.Len(t, rows, 1)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SnapshotRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := errors.New("stop")
	err := store.Snapshot(context.Background(), func(Store) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SnapshotBeginFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(&pq.Error{Code: "42501", Message: "permission denied"})

	called := false
	err := store.Snapshot(context.Background(), func(Store) error {
		called = true
		return nil
	})
	assert.False(t, called)
	qe, ok := queryerr.As(err)
	require.True(t, ok)
	assert.Equal(t, CodeAccessDenied, qe.Code)
}

// queryOnly hides BeginTx so Snapshot falls back to the plain executor.
type queryOnly struct {
	dbexec.QueryExecutor
}

func TestSQLStore_SnapshotWithoutTransactions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(queryOnly{dbexec.NewStandardExecutor(db)}, sqlutil.MySQL)
	called := false
	require.NoError(t, store.Snapshot(context.Background(), func(s Store) error {
		called = true
		assert.Same(t, store, s)
		return nil
	}))
	assert.True(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, CodeTimeout},
		{fmt.Errorf("query: %w", context.Canceled), CodeCanceled},
		{&mysql.MySQLError{Number: 1044}, CodeAccessDenied},
		{&mysql.MySQLError{Number: 1143}, CodeAccessDenied},
		{&mysql.MySQLError{Number: 3024}, CodeTimeout},
		{&mysql.MySQLError{Number: 1317}, CodeCanceled},
		{&mysql.MySQLError{Number: 1064}, CodeStoreError},
		{&pq.Error{Code: "42501"}, CodeAccessDenied},
		{&pq.Error{Code: "57014"}, CodeTimeout},
		{&pq.Error{Code: "42P01"}, CodeStoreError},
		{errors.New("boom"), CodeStoreError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, storeErrorCode(tt.err))
		})
	}
}

func TestNormalizeStoreError_KeepsEngineErrors(t *testing.T) {
	assert.Nil(t, normalizeStoreError(nil))

	invariant := queryerr.Invariant("broken")
	assert.Same(t, invariant, normalizeStoreError(invariant))
}

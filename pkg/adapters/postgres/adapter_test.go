package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/schemashift/internal/testutil"
	"github.com/leapstack-labs/schemashift/pkg/adapter"
	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name: "defaults",
			config: adapter.Config{
				Database: "mydb",
			},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "application name",
			config: adapter.Config{
				Host:     "db.example.com",
				Port:     5433,
				Database: "market",
				Username: "loader",
				Options:  map[string]string{"application_name": "schemashift"},
			},
			expected: "host=db.example.com port=5433 dbname=market sslmode=disable user=loader application_name=schemashift",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.NotNil(t, adp, "New() should return non-nil adapter")
	assert.Nil(t, adp.DB, "DB should be nil before Connect")
	assert.False(t, adp.IsConnected(), "should not be connected initially")
	assert.Equal(t, "postgres", adp.DialectName(), "dialect name should be postgres")
	assert.Equal(t, "postgres", adp.Dialect().Name)

	var _ adapter.Adapter = adp
}

func TestAdapter_NotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, adp *Adapter) error
	}{
		{
			name: "begin without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.BeginTx(ctx, nil)
				return err
			},
		},
		{
			name: "describe without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.DescribeColumns(ctx, nil, core.TableRef{Name: "prices"})
				return err
			},
		},
		{
			name: "insert without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.InsertRecords(ctx, core.TableRef{Name: "prices"},
					[]core.Column{{Name: "close", Type: core.Real}}, [][]any{{1.5}})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.operation(context.Background(), New(nil))
			assert.ErrorIs(t, err, adapter.ErrNotConnected)
		})
	}
}

func TestAdapter_Registry(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"), "postgres adapter should be registered")

	factory, ok := adapter.Get("postgres")
	require.True(t, ok, "should be able to get postgres factory")

	pg, ok := factory(nil).(*Adapter)
	require.True(t, ok, "factory should return *Adapter")
	assert.Equal(t, "postgres", pg.DialectName())
}

func TestAdapter_Close(t *testing.T) {
	adp := New(nil)
	assert.NoError(t, adp.Close())
}

func mockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.Tx) {
	t.Helper()
	adp, mock := mockDB(t)

	mock.ExpectBegin()
	tx, err := adp.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	return adp, mock, tx
}

var lockQuery = regexp.QuoteMeta("SELECT pg_try_advisory_xact_lock(hashtext($1))")

func mockDB(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	adp := New(testutil.NewTestLogger(t))
	adp.DB = db
	return adp, mock
}

func TestAdapter_BeginLocked(t *testing.T) {
	tests := []struct {
		name       string
		table      core.TableRef
		results    []bool
		timeout    time.Duration
		wantErr    bool
		wantLocked string
	}{
		{
			name:       "acquired immediately",
			table:      core.TableRef{Name: "prices"},
			results:    []bool{true},
			timeout:    time.Second,
			wantLocked: "public.prices",
		},
		{
			name:       "acquired after contention",
			table:      core.TableRef{Schema: "market", Name: "prices"},
			results:    []bool{false, false, true},
			timeout:    5 * time.Second,
			wantLocked: "market.prices",
		},
		{
			name:       "contended beyond timeout",
			table:      core.TableRef{Name: "prices"},
			results:    []bool{false},
			timeout:    0,
			wantErr:    true,
			wantLocked: "public.prices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp, mock := mockDB(t)
			mock.ExpectBegin()
			for _, ok := range tt.results {
				mock.ExpectQuery(lockQuery).
					WithArgs(tt.wantLocked).
					WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(ok))
			}
			if tt.wantErr {
				mock.ExpectRollback()
			}

			tx, release, err := adp.BeginLocked(context.Background(), tt.table, tt.timeout)
			if tt.wantErr {
				require.ErrorIs(t, err, core.ErrConcurrentSchemaConflict)
				var conflict *core.ConcurrentSchemaConflictError
				require.ErrorAs(t, err, &conflict)
				assert.Equal(t, tt.wantLocked, conflict.Table.String())
				assert.Nil(t, tx)
			} else {
				require.NoError(t, err)
				require.NotNil(t, tx)
				release()
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_BeginLocked_ContextDone(t *testing.T) {
	adp, mock := mockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(false))
	mock.ExpectRollback()

	ctx, cancel := context.WithTimeout(context.Background(), lockPollInterval/5)
	defer cancel()

	_, _, err := adp.BeginLocked(ctx, core.TableRef{Name: "prices"}, time.Minute)
	require.ErrorIs(t, err, core.ErrConcurrentSchemaConflict)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAdapter_SetStatementTimeout(t *testing.T) {
	adp, mock, tx := mockAdapter(t)
	mock.ExpectExec(regexp.QuoteMeta("SELECT set_config('statement_timeout', $1, true)")).
		WithArgs("30000").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, adp.SetStatementTimeout(context.Background(), tx, 30*time.Second))
	require.NoError(t, adp.SetStatementTimeout(context.Background(), tx, 0), "zero disables the bound")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_DescribeColumns(t *testing.T) {
	adp, mock, tx := mockAdapter(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE table_schema = $1 AND table_name = $2")).
		WithArgs("public", "prices").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "character_maximum_length", "ordinal_position"}).
			AddRow("a", "smallint", nil, 1))

	cols, err := adp.DescribeColumns(context.Background(), tx, core.TableRef{Name: "prices"})
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, core.Smallint, adp.Dialect().ParseColumnType(cols[0]))
}

func TestCopyIdentifier(t *testing.T) {
	ident, err := copyIdentifier(core.TableRef{Name: "prices"})
	require.NoError(t, err)
	assert.Equal(t, `"public"."prices"`, ident.Sanitize())

	_, err = copyIdentifier(core.TableRef{Schema: "market", Name: "bad;name"})
	assert.ErrorIs(t, err, core.ErrInvalidIdentifier)
}

func TestAdapter_InsertRecords_ForeignColumnsUseInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	adp := New(nil)
	adp.DB = db

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "public"."prices" ("ts", "close") VALUES ($1, $2)`))
	prep.ExpectExec().WithArgs("2024-01-02T15:04:05Z", 1.5).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := adp.InsertRecords(context.Background(), core.TableRef{Name: "prices"},
		[]core.Column{{Name: "ts", Type: core.Foreign("timestamp with time zone")}, {Name: "close", Type: core.Real}},
		[][]any{{"2024-01-02T15:04:05Z", 1.5}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

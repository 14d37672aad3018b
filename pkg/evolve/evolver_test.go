package evolve

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/schemashift/internal/testutil"
	"github.com/leapstack-labs/schemashift/pkg/adapters/postgres"
	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memJournal struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (j *memJournal) Record(_ context.Context, a Attempt) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.attempts = append(j.attempts, a)
	return nil
}

func (j *memJournal) all() []Attempt {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Attempt(nil), j.attempts...)
}

var describeCols = []string{"column_name", "data_type", "character_maximum_length", "ordinal_position"}

func newMockEvolver(t *testing.T, cfg Config) (*Evolver, sqlmock.Sqlmock, *memJournal) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pg := postgres.New(testutil.NewTestLogger(t))
	pg.DB = db

	journal := &memJournal{}
	cfg.Adapter = pg
	cfg.Journal = journal
	cfg.Logger = testutil.NewTestLogger(t)

	e, err := New(cfg)
	require.NoError(t, err)
	return e, mock, journal
}

func expectLockedIntrospection(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("pg_try_advisory_xact_lock")).
		WithArgs("public.prices").
		WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("set_config('statement_timeout', $1, true)")).
		WithArgs("30000").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("information_schema.columns").
		WithArgs("public", "prices").
		WillReturnRows(rows)
}

func TestEvolver_Evolve(t *testing.T) {
	e, mock, journal := newMockEvolver(t, Config{})

	expectLockedIntrospection(mock, sqlmock.NewRows(describeCols).AddRow("a", "smallint", nil, 1))
	mock.ExpectExec(q(`ALTER TABLE "public"."prices" ADD COLUMN IF NOT EXISTS "b" varchar(255)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q(`ALTER TABLE "public"."prices" ALTER COLUMN "a" TYPE integer USING CAST("a" AS integer)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	res, err := e.Evolve(context.Background(), core.TableRef{Name: "prices"}, []core.Record{{"a": 50000, "b": "hello"}})
	require.NoError(t, err)
	assert.True(t, res.Changed())
	assert.Len(t, res.Statements, 2)
	assert.Equal(t, core.Varchar255, res.Delta.Add["b"])
	assert.NoError(t, mock.ExpectationsWereMet())

	attempts := journal.all()
	require.Len(t, attempts, 1)
	assert.Equal(t, StatusApplied, attempts[0].Status)
	assert.Equal(t, "postgres", attempts[0].Dialect)
	assert.Equal(t, 1, attempts[0].Records)
}

func TestEvolver_Evolve_Unchanged(t *testing.T) {
	e, mock, journal := newMockEvolver(t, Config{})

	expectLockedIntrospection(mock, sqlmock.NewRows(describeCols).
		AddRow("a", "integer", nil, 1).
		AddRow("b", "character varying", int64(255), 2))
	mock.ExpectCommit()

	res, err := e.Evolve(context.Background(), core.TableRef{Name: "prices"}, []core.Record{{"a": 7, "b": "hello"}})
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, journal.all(), 1)
	assert.Equal(t, StatusUnchanged, journal.all()[0].Status)
}

func TestEvolver_Evolve_FailureRollsBack(t *testing.T) {
	e, mock, journal := newMockEvolver(t, Config{})

	expectLockedIntrospection(mock, sqlmock.NewRows(describeCols).AddRow("a", "smallint", nil, 1))
	mock.ExpectExec(`ADD COLUMN IF NOT EXISTS "b"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`ALTER COLUMN "a"`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := e.Evolve(context.Background(), core.TableRef{Name: "prices"}, []core.Record{{"a": 50000, "b": "hello"}})
	require.ErrorIs(t, err, core.ErrMigrationFailed)

	var mf *core.MigrationFailedError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "a", mf.Column)
	assert.NoError(t, mock.ExpectationsWereMet())

	attempts := journal.all()
	require.Len(t, attempts, 1)
	assert.Equal(t, StatusFailed, attempts[0].Status)
	assert.ErrorIs(t, attempts[0].Err, core.ErrMigrationFailed)
}

func TestEvolver_Evolve_MissingTable(t *testing.T) {
	e, mock, _ := newMockEvolver(t, Config{})

	expectLockedIntrospection(mock, sqlmock.NewRows(describeCols))
	mock.ExpectRollback()

	_, err := e.Evolve(context.Background(), core.TableRef{Name: "prices"}, []core.Record{{"a": 1}})
	require.ErrorIs(t, err, core.ErrSchemaIntrospection)
	assert.ErrorIs(t, err, core.ErrTableNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvolver_Evolve_UnsupportedValueTouchesNothing(t *testing.T) {
	e, mock, journal := newMockEvolver(t, Config{})

	_, err := e.Evolve(context.Background(), core.TableRef{Name: "prices"}, []core.Record{{"a": "123456789012345678901234"}})
	require.ErrorIs(t, err, core.ErrUnsupportedType)
	assert.NoError(t, mock.ExpectationsWereMet(), "classification fails before the database is touched")
	require.Len(t, journal.all(), 1)
	assert.Equal(t, StatusFailed, journal.all()[0].Status)
}

func TestEvolver_Evolve_LockConflict(t *testing.T) {
	e, mock, _ := newMockEvolver(t, Config{LockTimeout: time.Nanosecond})

	mock.ExpectBegin()
	mock.ExpectQuery("pg_try_advisory_xact_lock").
		WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(false))
	mock.ExpectRollback()

	_, err := e.Evolve(context.Background(), core.TableRef{Name: "prices"}, []core.Record{{"a": 1}})
	require.ErrorIs(t, err, core.ErrConcurrentSchemaConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvolver_Evolve_RetypesNullOnlyColumn(t *testing.T) {
	e, mock, _ := newMockEvolver(t, Config{RetypeNullOnly: true})

	expectLockedIntrospection(mock, sqlmock.NewRows(describeCols).
		AddRow("a", "smallint", nil, 1).
		AddRow("notes", "text", nil, 2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT("notes") FROM "public"."prices"`)).
		WillReturnRows(sqlmock.NewRows([]string{"notes"}).AddRow(int64(0)))
	mock.ExpectExec(q(`ALTER TABLE "public"."prices" ALTER COLUMN "notes" TYPE smallint USING CAST(NULL AS smallint)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	res, err := e.Evolve(context.Background(), core.TableRef{Name: "prices"}, []core.Record{{"a": 1, "notes": 4}})
	require.NoError(t, err)
	assert.Equal(t, core.TypeChange{From: core.Text, To: core.Smallint}, res.Delta.Retype["notes"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvolver_Preview(t *testing.T) {
	e, mock, journal := newMockEvolver(t, Config{})

	mock.ExpectQuery("information_schema.columns").
		WithArgs("public", "prices").
		WillReturnRows(sqlmock.NewRows(describeCols).AddRow("a", "smallint", nil, 1))

	res, err := e.Preview(context.Background(), core.TableRef{Name: "prices"}, []core.Record{{"a": 50000}})
	require.NoError(t, err)
	require.Len(t, res.Statements, 1)
	assert.Equal(t, KindWiden, res.Statements[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet(), "preview issues no DDL and takes no lock")
	assert.Empty(t, journal.all(), "previews are not journaled")
}

func TestNew_RequiresAdapter(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

type failingJournal struct{}

func (failingJournal) Record(context.Context, Attempt) error { return assert.AnError }

func TestEvolver_JournalFailureIsLogged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pg := postgres.New(nil)
	pg.DB = db
	logger, rec := testutil.NewRecordingLogger(slog.LevelWarn)

	e, err := New(Config{Adapter: pg, Journal: failingJournal{}, Logger: logger})
	require.NoError(t, err)

	expectLockedIntrospection(mock, sqlmock.NewRows(describeCols).AddRow("a", "integer", nil, 1))
	mock.ExpectCommit()

	res, err := e.Evolve(context.Background(), core.TableRef{Name: "prices"}, []core.Record{{"a": 7}})
	require.NoError(t, err, "a journal failure must not fail the evolution")
	assert.False(t, res.Changed())
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []string{"failed to record evolution attempt"}, rec.Messages(slog.LevelWarn))
}

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MediSynth-io/casetracker/internal/config"
	"github.com/MediSynth-io/casetracker/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DatabaseTestSuite runs against a fresh SQLite file per test
type DatabaseTestSuite struct {
	suite.Suite
	db *DB
}

// SetupTest initializes the database for each test
func (s *DatabaseTestSuite) SetupTest() {
	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.Path = filepath.Join(s.T().TempDir(), "data", "casetracker_test.db")

	db, err := Open(context.Background(), cfg, logging.Discard())
	s.Require().NoError(err, "Database initialization should succeed")
	s.Require().NoError(db.Migrate(context.Background()))
	s.db = db
}

// TearDownTest closes the connection after each test
func (s *DatabaseTestSuite) TearDownTest() {
	if s.db != nil {
		s.db.Close()
	}
}

func TestDatabaseTestSuite(t *testing.T) {
	suite.Run(t, new(DatabaseTestSuite))
}

func (s *DatabaseTestSuite) TestMigrateIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.db.Migrate(ctx))

	version, err := s.db.SchemaVersion(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), version)

	var count int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM test_cases").Scan(&count)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *DatabaseTestSuite) TestForeignKeysEnforced() {
	_, err := s.db.ExecContext(context.Background(),
		"INSERT INTO test_cases (title, description, status, created_at, updated_at, owner_id) VALUES ('t', '', '', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, 999)")
	s.Error(err)
}

func (s *DatabaseTestSuite) insertUser(ctx context.Context, q Querier, username string) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO users (email, username, hashed_password) VALUES (?, ?, 'x')",
		username+"@example.com", username)
	return err
}

func (s *DatabaseTestSuite) countUsers() int {
	var count int
	s.Require().NoError(s.db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM users").Scan(&count))
	return count
}

func (s *DatabaseTestSuite) TestWithTxCommits() {
	err := s.db.WithTx(context.Background(), func(ctx context.Context, tx Querier) error {
		return s.insertUser(ctx, tx, "alice")
	})
	s.Require().NoError(err)
	s.Equal(1, s.countUsers())
}

func (s *DatabaseTestSuite) TestWithTxRollsBackOnError() {
	boom := errors.New("boom")
	err := s.db.WithTx(context.Background(), func(ctx context.Context, tx Querier) error {
		s.Require().NoError(s.insertUser(ctx, tx, "alice"))
		return boom
	})
	s.ErrorIs(err, boom)
	s.Equal(0, s.countUsers())
}

func (s *DatabaseTestSuite) TestWithTxRollsBackOnPanic() {
	s.Panics(func() {
		_ = s.db.WithTx(context.Background(), func(ctx context.Context, tx Querier) error {
			s.Require().NoError(s.insertUser(ctx, tx, "alice"))
			panic("boom")
		})
	})
	s.Equal(0, s.countUsers())
}

func TestOpenUnsupportedType(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Type = "mysql"

	_, err := Open(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		query   string
		want    string
	}{
		{DialectSQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{DialectPostgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{DialectPostgres, "SELECT 1", "SELECT 1"},
		{DialectPostgres, "LIMIT ? OFFSET ?", "LIMIT $1 OFFSET $2"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Rebind(tt.dialect, tt.query))
	}
}

func TestWithTxCommitFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	db := New(sqlDB, DialectPostgres, logging.Discard())
	err = db.WithTx(context.Background(), func(ctx context.Context, tx Querier) error {
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxBeginFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	db := New(sqlDB, DialectPostgres, logging.Discard())
	called := false
	err = db.WithTx(context.Background(), func(ctx context.Context, tx Querier) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollbackOnError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM test_cases").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	db := New(sqlDB, DialectPostgres, logging.Discard())
	err = db.WithTx(context.Background(), func(ctx context.Context, tx Querier) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM test_cases")
		return err
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/auth-gateway/internal/apperror"
	"github.com/sakif/auth-gateway/internal/model"
)

func newRepoWithMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewWithConn(conn), mock
}

const (
	insertQuery      = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*email,\s*password_hash,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)$`
	selectByEmail    = `(?s)^SELECT\s+id,\s*username,\s*email,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`
	selectByIDQuery  = `(?s)^SELECT\s+id,\s*username,\s*email,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	hashForTests     = "$2a$04$fakehash"
	emailForTests    = "alice@example.com"
	usernameForTests = "alice"
)

func userColumns() []string {
	return []string{"id", "username", "email", "password_hash", "created_at"}
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(insertQuery).
		WithArgs(sqlmock.AnyArg(), usernameForTests, emailForTests, hashForTests, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &model.User{Username: usernameForTests, Email: emailForTests, PasswordHash: hashForTests}
	err := repo.Create(context.Background(), u)

	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(insertQuery).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), &model.User{Username: "bob", Email: emailForTests, PasswordHash: hashForTests})

	assert.True(t, errors.Is(err, apperror.ErrDuplicateEmail), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(insertQuery).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &model.User{Email: emailForTests})

	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrDuplicateEmail))
	assert.Contains(t, err.Error(), "db down")
}

func TestFindByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(selectByEmail).
		WithArgs(emailForTests).
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow("u-1", usernameForTests, emailForTests, hashForTests, created))

	got, err := repo.FindByEmail(context.Background(), emailForTests)

	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, usernameForTests, got.Username)
	assert.Equal(t, hashForTests, got.PasswordHash)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(selectByEmail).WithArgs("nobody@example.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")

	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestFindByID_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(selectByIDQuery).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow("u-1", usernameForTests, emailForTests, hashForTests, time.Now()))

	got, err := repo.FindByID(context.Background(), "u-1")

	require.NoError(t, err)
	assert.Equal(t, emailForTests, got.Email)
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(selectByIDQuery).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userColumns()))

	_, err := repo.FindByID(context.Background(), "missing")

	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestFindByID_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(selectByIDQuery).WithArgs("u-1").WillReturnError(errors.New("connection reset"))

	_, err := repo.FindByID(context.Background(), "u-1")

	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrNotFound))
}

func TestRunMigrations_UsesEmbeddedDir(t *testing.T) {
	repo, _ := newRepoWithMock(t)

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, repo.RunMigrations(context.Background()))
	assert.Equal(t, "migrations", gotDir)

	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	repo, _ := newRepoWithMock(t)

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })
	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("boom") }

	assert.EqualError(t, repo.RunMigrations(context.Background()), "boom")
}

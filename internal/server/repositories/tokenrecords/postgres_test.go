package tokenrecords

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/spotivault/internal/common"
	"github.com/dmitrijs2005/spotivault/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+subject_id,.*FROM\s+token_records\s+WHERE\s+subject_id\s*=\s*\$1\s*$`

	expires := time.Now().Add(time.Hour)
	rows := sqlmock.NewRows([]string{"subject_id", "access_token", "refresh_token", "token_type", "scope", "expires_at"}).
		AddRow("user-1", "enc-at", "enc-rt", "Bearer", "user-read-email", expires)

	mock.ExpectQuery(q).
		WithArgs("user-1").
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SubjectID != "user-1" || got.AccessToken != "enc-at" || got.RefreshToken != "enc-rt" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected expiry: %v", got.ExpiresAt)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+subject_id,.*FROM\s+token_records\b`

	mock.ExpectQuery(q).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGet_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+subject_id,.*FROM\s+token_records\b`

	mock.ExpectQuery(q).
		WithArgs("user-1").
		WillReturnError(errors.New("db err"))

	_, err := repo.Get(context.Background(), "user-1")
	if err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+token_records\b.*ON\s+CONFLICT\s+\(subject_id\)\s+DO\s+UPDATE\s+SET\b`

	expires := time.Now().Add(time.Hour)
	mock.ExpectExec(q).
		WithArgs("user-1", "enc-at", "enc-rt", "Bearer", "user-read-email", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &models.TokenRecord{
		SubjectID:    "user-1",
		AccessToken:  "enc-at",
		RefreshToken: "enc-rt",
		TokenType:    "Bearer",
		Scope:        "user-read-email",
		ExpiresAt:    expires,
	}
	if err := repo.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+token_records\b`

	mock.ExpectExec(q).
		WithArgs("user-1", "enc-at", "enc-rt", "Bearer", "", sqlmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	rec := &models.TokenRecord{
		SubjectID:    "user-1",
		AccessToken:  "enc-at",
		RefreshToken: "enc-rt",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now(),
	}
	if err := repo.Upsert(context.Background(), rec); err == nil {
		t.Fatalf("expected wrapped db error")
	}
}

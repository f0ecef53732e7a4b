package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/GophVault/internal/common"
	"github.com/atinyakov/GophVault/internal/models"
)

var fileRowColumns = []string{"id", "display_name", "storage_key", "owner_id", "size", "content_type", "created_at"}

func setupFileMock(t *testing.T) (*PostgresFileRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	return NewPostgresFileRepository(db), mock, func() { db.Close() }
}

func TestFileCreate(t *testing.T) {
	repo, mock, cleanup := setupFileMock(t)
	defer cleanup()

	f := &models.StoredFile{
		ID: "f1", DisplayName: "notes.txt", StorageKey: "k1", OwnerID: "u1",
		Size: 5, ContentType: "text/plain", CreatedAt: time.Now(),
	}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO files`)).
		WithArgs("f1", "notes.txt", "k1", "u1", int64(5), "text/plain", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFileListAll(t *testing.T) {
	repo, mock, cleanup := setupFileMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"storage_key", "display_name", "username", "owner_id"}).
		AddRow("k1", "notes.txt", "alice", "u1").
		AddRow("k2", "todo.md", "bob", "u2")
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN users ON files.owner_id = users.id`)).
		WillReturnRows(rows)

	files, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].OwnerUsername != "alice" || files[1].StorageKey != "k2" {
		t.Errorf("unexpected files: %+v", files)
	}
}

func TestFileListAll_Empty(t *testing.T) {
	repo, mock, cleanup := setupFileMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM files`)).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key", "display_name", "username", "owner_id"}))

	files, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files == nil || len(files) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", files)
	}
}

func TestFileListByOwner(t *testing.T) {
	repo, mock, cleanup := setupFileMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE files.owner_id = $1`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"storage_key", "display_name", "username", "owner_id"}).
			AddRow("k1", "notes.txt", "alice", "u1"))

	files, err := repo.ListByOwner(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].OwnerID != "u1" {
		t.Errorf("unexpected files: %+v", files)
	}
}

func TestFileFindByStorageKey(t *testing.T) {
	repo, mock, cleanup := setupFileMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM files WHERE storage_key = $1`)).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows(fileRowColumns).
			AddRow("f1", "notes.txt", "k1", "u1", int64(5), "text/plain", time.Now()))

	f, err := repo.FindByStorageKey(context.Background(), "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID != "f1" || f.OwnerID != "u1" || f.Size != 5 {
		t.Errorf("unexpected file: %+v", f)
	}
}

func TestFileFindByStorageKey_NotFound(t *testing.T) {
	repo, mock, cleanup := setupFileMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM files WHERE storage_key = $1`)).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows(fileRowColumns))

	if _, err := repo.FindByStorageKey(context.Background(), "gone"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileDelete(t *testing.T) {
	repo, mock, cleanup := setupFileMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM files WHERE id = $1`)).
		WithArgs("f1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "f1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFileDelete_NotFound(t *testing.T) {
	repo, mock, cleanup := setupFileMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM files WHERE id = $1`)).
		WithArgs("f1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "f1"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/GophVault/internal/common"
	"github.com/atinyakov/GophVault/internal/models"
)

// PostgresFileRepository persists file metadata in PostgreSQL.
type PostgresFileRepository struct {
	DB *sql.DB
}

// NewPostgresFileRepository creates a new PostgresFileRepository.
func NewPostgresFileRepository(db *sql.DB) *PostgresFileRepository {
	return &PostgresFileRepository{DB: db}
}

const fileColumns = `id, display_name, storage_key, owner_id, size, content_type, created_at`

// Create inserts file metadata.
func (r *PostgresFileRepository) Create(ctx context.Context, f *models.StoredFile) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO files (id, display_name, storage_key, owner_id, size, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, f.ID, f.DisplayName, f.StorageKey, f.OwnerID, f.Size, f.ContentType, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

// ListAll returns every file joined with its owner's username, oldest first.
func (r *PostgresFileRepository) ListAll(ctx context.Context) ([]models.FileListing, error) {
	return r.list(ctx, `
		SELECT files.storage_key, files.display_name, users.username, files.owner_id
		FROM files
		JOIN users ON files.owner_id = users.id
		ORDER BY files.created_at, files.id
	`)
}

// ListByOwner returns the files owned by ownerID.
func (r *PostgresFileRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.FileListing, error) {
	return r.list(ctx, `
		SELECT files.storage_key, files.display_name, users.username, files.owner_id
		FROM files
		JOIN users ON files.owner_id = users.id
		WHERE files.owner_id = $1
		ORDER BY files.created_at, files.id
	`, ownerID)
}

func (r *PostgresFileRepository) list(ctx context.Context, query string, args ...any) ([]models.FileListing, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := make([]models.FileListing, 0)
	for rows.Next() {
		var f models.FileListing
		if err := rows.Scan(&f.StorageKey, &f.DisplayName, &f.OwnerUsername, &f.OwnerID); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// FindByStorageKey returns the file with the given storage key or common.ErrNotFound.
func (r *PostgresFileRepository) FindByStorageKey(ctx context.Context, key string) (*models.StoredFile, error) {
	return r.findOne(ctx, `SELECT `+fileColumns+` FROM files WHERE storage_key = $1`, key)
}

// FindByID returns the file with the given id or common.ErrNotFound.
func (r *PostgresFileRepository) FindByID(ctx context.Context, id string) (*models.StoredFile, error) {
	return r.findOne(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id)
}

func (r *PostgresFileRepository) findOne(ctx context.Context, query, arg string) (*models.StoredFile, error) {
	var f models.StoredFile
	err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&f.ID, &f.DisplayName, &f.StorageKey, &f.OwnerID, &f.Size, &f.ContentType, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("find file: %w", err)
	}
	return &f, nil
}

// Delete removes the metadata row of the file with the given id.
// Returns common.ErrNotFound if the row was already gone.
func (r *PostgresFileRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

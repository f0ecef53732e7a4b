package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophVault/internal/common"
	"github.com/atinyakov/GophVault/internal/models"
)

// PostgresShareRepository persists share links in PostgreSQL.
type PostgresShareRepository struct {
	DB *sql.DB
}

// NewPostgresShareRepository creates a new PostgresShareRepository.
func NewPostgresShareRepository(db *sql.DB) *PostgresShareRepository {
	return &PostgresShareRepository{DB: db}
}

// Create stores a new share link.
func (r *PostgresShareRepository) Create(ctx context.Context, link *models.ShareLink) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO shares (id, file_id, status, created_at) VALUES ($1, $2, $3, $4)
	`, link.ID, link.FileID, string(link.Status), link.CreatedAt)
	if err != nil {
		return fmt.Errorf("create share: %w", err)
	}
	return nil
}

// Resolve joins an active share link to its live file.
// Unknown, revoked and dangling links all yield common.ErrInvalidShare.
func (r *PostgresShareRepository) Resolve(ctx context.Context, shareID string) (*models.ShareLink, *models.StoredFile, error) {
	var (
		link   models.ShareLink
		file   models.StoredFile
		status string
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT shares.id, shares.file_id, shares.status, shares.created_at,
		       files.id, files.display_name, files.storage_key, files.owner_id,
		       files.size, files.content_type, files.created_at
		FROM shares
		JOIN files ON shares.file_id = files.id
		WHERE shares.id = $1 AND shares.status = 'active'
	`, shareID).Scan(
		&link.ID, &link.FileID, &status, &link.CreatedAt,
		&file.ID, &file.DisplayName, &file.StorageKey, &file.OwnerID,
		&file.Size, &file.ContentType, &file.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, common.ErrInvalidShare
		}
		return nil, nil, fmt.Errorf("resolve share: %w", err)
	}
	link.Status = models.ShareStatus(status)
	return &link, &file, nil
}

// Find returns a share link by id regardless of its status or target.
func (r *PostgresShareRepository) Find(ctx context.Context, shareID string) (*models.ShareLink, error) {
	var (
		link      models.ShareLink
		status    string
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, file_id, status, created_at, revoked_at FROM shares WHERE id = $1
	`, shareID).Scan(&link.ID, &link.FileID, &status, &link.CreatedAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("find share: %w", err)
	}
	link.Status = models.ShareStatus(status)
	link.RevokedAt = timePtr(revokedAt)
	return &link, nil
}

// ListByFile returns the active share links of a file, oldest first.
func (r *PostgresShareRepository) ListByFile(ctx context.Context, fileID string) ([]models.ShareLink, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, file_id, status, created_at FROM shares
		WHERE file_id = $1 AND status = 'active'
		ORDER BY created_at, id
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	links := make([]models.ShareLink, 0)
	for rows.Next() {
		var (
			link   models.ShareLink
			status string
		)
		if err := rows.Scan(&link.ID, &link.FileID, &status, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		link.Status = models.ShareStatus(status)
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return links, nil
}

// Revoke marks a single share link revoked.
func (r *PostgresShareRepository) Revoke(ctx context.Context, shareID string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE shares SET status = 'revoked', revoked_at = $2 WHERE id = $1 AND status = 'active'
	`, shareID, at)
	if err != nil {
		return fmt.Errorf("revoke share: %w", err)
	}
	return nil
}

// RevokeByFile revokes every active share link of a file and reports how many changed.
func (r *PostgresShareRepository) RevokeByFile(ctx context.Context, fileID string, at time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE shares SET status = 'revoked', revoked_at = $2 WHERE file_id = $1 AND status = 'active'
	`, fileID, at)
	if err != nil {
		return 0, fmt.Errorf("revoke shares: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/atinyakov/GophVault/internal/blob"
	"github.com/atinyakov/GophVault/internal/common"
	"github.com/atinyakov/GophVault/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// shareIDBytes is the amount of randomness in a share identifier.
const shareIDBytes = 32

// FileRepository defines the file metadata persistence operations.
type FileRepository interface {
	Create(ctx context.Context, f *models.StoredFile) error
	ListAll(ctx context.Context) ([]models.FileListing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.FileListing, error)
	// FindByStorageKey and FindByID return common.ErrNotFound when absent.
	FindByStorageKey(ctx context.Context, key string) (*models.StoredFile, error)
	FindByID(ctx context.Context, id string) (*models.StoredFile, error)
	Delete(ctx context.Context, id string) error
}

// ShareRepository defines the share link persistence operations.
type ShareRepository interface {
	Create(ctx context.Context, link *models.ShareLink) error
	// Resolve returns the active link and its live file or common.ErrInvalidShare.
	Resolve(ctx context.Context, shareID string) (*models.ShareLink, *models.StoredFile, error)
	// Find returns the link in any state or common.ErrNotFound.
	Find(ctx context.Context, shareID string) (*models.ShareLink, error)
	ListByFile(ctx context.Context, fileID string) ([]models.ShareLink, error)
	Revoke(ctx context.Context, shareID string, at time.Time) error
	RevokeByFile(ctx context.Context, fileID string, at time.Time) (int64, error)
}

// FilePolicy holds configurable lifecycle rules.
type FilePolicy struct {
	// RevokeSharesOnDelete revokes every share link of a file when it is deleted.
	// When false, links are left dangling and still fail to resolve.
	RevokeSharesOnDelete bool
}

// FileService runs every file operation through the Gate before touching
// metadata mutations or blob content.
type FileService struct {
	files  FileRepository
	shares ShareRepository
	blobs  blob.Store
	gate   Gate
	policy FilePolicy
	log    *zap.Logger
	now    func() time.Time
}

// NewFileService constructs a FileService.
func NewFileService(files FileRepository, shares ShareRepository, blobs blob.Store, policy FilePolicy, log *zap.Logger) *FileService {
	return &FileService{
		files:  files,
		shares: shares,
		blobs:  blobs,
		policy: policy,
		log:    log,
		now:    time.Now,
	}
}

// Upload describes new content submitted by an authenticated user.
type Upload struct {
	DisplayName string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Content is an authorized stream of a file for its owner.
type Content struct {
	File *models.StoredFile
	Body io.ReadCloser
}

// SharedContent is what a share link exposes: no owner, no storage key.
type SharedContent struct {
	DisplayName string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// Upload stores the content under a fresh storage key owned by userID.
// The blob is written first; if the metadata insert fails the blob is removed.
func (s *FileService) Upload(ctx context.Context, userID string, up Upload) (*models.StoredFile, error) {
	if userID == "" {
		return nil, common.ErrUnauthenticated
	}

	file := &models.StoredFile{
		ID:          uuid.NewString(),
		DisplayName: cleanDisplayName(up.DisplayName),
		StorageKey:  uuid.NewString(),
		OwnerID:     userID,
		Size:        up.Size,
		ContentType: up.ContentType,
		CreatedAt:   s.now().UTC(),
	}
	if file.ContentType == "" {
		file.ContentType = "application/octet-stream"
	}

	if err := s.blobs.Put(ctx, file.StorageKey, up.Content, up.Size); err != nil {
		return nil, fmt.Errorf("store content: %w", err)
	}
	if err := s.files.Create(ctx, file); err != nil {
		if delErr := s.blobs.Delete(ctx, file.StorageKey); delErr != nil {
			s.log.Warn("failed to remove orphaned blob",
				zap.String("storage_key", file.StorageKey), zap.Error(delErr))
		}
		return nil, err
	}
	return file, nil
}

// List returns every file in the system, or only the caller's when mineOnly.
// Everyone sees every file's name and owner; IsOwner marks the caller's rows.
func (s *FileService) List(ctx context.Context, userID string, mineOnly bool) ([]models.FileListing, error) {
	if err := s.gate.Authorize(OpList, Identity(userID), nil); err != nil {
		return nil, err
	}

	var (
		files []models.FileListing
		err   error
	)
	if mineOnly {
		files, err = s.files.ListByOwner(ctx, userID)
	} else {
		files, err = s.files.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}
	for i := range files {
		files[i].IsOwner = files[i].OwnerID == userID
	}
	return files, nil
}

// Open streams an owned file for OpRead or OpDownload.
func (s *FileService) Open(ctx context.Context, userID, storageKey string, op Operation) (*Content, error) {
	if op != OpRead && op != OpDownload {
		return nil, fmt.Errorf("open: unsupported operation %s", op)
	}
	file, err := s.authorizeFile(ctx, op, userID, storageKey)
	if err != nil {
		return nil, err
	}
	body, err := s.blobs.Open(ctx, file.StorageKey)
	if err != nil {
		return nil, err
	}
	return &Content{File: file, Body: body}, nil
}

// Delete removes an owned file. Metadata deletion is authoritative: a blob that
// cannot be removed is logged and otherwise ignored.
func (s *FileService) Delete(ctx context.Context, userID, storageKey string) error {
	file, err := s.authorizeFile(ctx, OpDelete, userID, storageKey)
	if err != nil {
		return err
	}

	if err := s.files.Delete(ctx, file.ID); err != nil {
		return err
	}

	if s.policy.RevokeSharesOnDelete {
		n, err := s.shares.RevokeByFile(ctx, file.ID, s.now().UTC())
		if err != nil {
			s.log.Warn("failed to revoke shares of deleted file",
				zap.String("file_id", file.ID), zap.Error(err))
		} else if n > 0 {
			s.log.Info("revoked shares of deleted file",
				zap.String("file_id", file.ID), zap.Int64("revoked", n))
		}
	}

	if err := s.blobs.Delete(ctx, file.StorageKey); err != nil {
		s.log.Warn("failed to delete blob",
			zap.String("storage_key", file.StorageKey), zap.Error(err))
	}
	return nil
}

// CreateShare issues a new share link for an owned file. Earlier links stay valid.
func (s *FileService) CreateShare(ctx context.Context, userID, storageKey string) (*models.ShareLink, error) {
	file, err := s.authorizeFile(ctx, OpShareCreate, userID, storageKey)
	if err != nil {
		return nil, err
	}

	id, err := common.MakeRandHexString(shareIDBytes)
	if err != nil {
		return nil, fmt.Errorf("generate share id: %w", err)
	}
	link := &models.ShareLink{
		ID:        id,
		FileID:    file.ID,
		Status:    models.ShareActive,
		CreatedAt: s.now().UTC(),
	}
	if err := s.shares.Create(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// ListShares returns the active share links of an owned file.
func (s *FileService) ListShares(ctx context.Context, userID, storageKey string) ([]models.ShareLink, error) {
	file, err := s.authorizeFile(ctx, OpShareList, userID, storageKey)
	if err != nil {
		return nil, err
	}
	return s.shares.ListByFile(ctx, file.ID)
}

// RevokeShare revokes a share link of a file owned by userID.
// Links that are unknown or point at a deleted file yield common.ErrInvalidShare.
func (s *FileService) RevokeShare(ctx context.Context, userID, shareID string) error {
	if userID == "" {
		return common.ErrUnauthenticated
	}
	link, err := s.shares.Find(ctx, shareID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidShare
		}
		return err
	}
	file, err := s.files.FindByID(ctx, link.FileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidShare
		}
		return err
	}
	if err := s.gate.Authorize(OpShareRevoke, Identity(userID), file); err != nil {
		return err
	}
	if link.Status != models.ShareActive {
		return nil
	}
	return s.shares.Revoke(ctx, link.ID, s.now().UTC())
}

// OpenShared streams the file behind a share link without any identity.
func (s *FileService) OpenShared(ctx context.Context, shareID string, op Operation) (*SharedContent, error) {
	if !op.capabilityBased() {
		return nil, fmt.Errorf("open shared: unsupported operation %s", op)
	}
	if shareID == "" {
		return nil, common.ErrInvalidShare
	}
	link, file, err := s.shares.Resolve(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(op, Holder(link), file); err != nil {
		return nil, err
	}
	body, err := s.blobs.Open(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidShare
		}
		return nil, err
	}
	return &SharedContent{
		DisplayName: file.DisplayName,
		ContentType: file.ContentType,
		Size:        file.Size,
		Body:        body,
	}, nil
}

func (s *FileService) authorizeFile(ctx context.Context, op Operation, userID, storageKey string) (*models.StoredFile, error) {
	if userID == "" {
		return nil, common.ErrUnauthenticated
	}
	file, err := s.files.FindByStorageKey(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(op, Identity(userID), file); err != nil {
		return nil, err
	}
	return file, nil
}

// cleanDisplayName strips any directory part a client sent along with the name.
func cleanDisplayName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimSpace(path.Base(name))
	if name == "" || name == "." || name == "/" {
		return "untitled"
	}
	return name
}

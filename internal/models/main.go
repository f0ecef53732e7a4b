// Package models defines the core data structures for users, sessions,
// stored files and share links.
package models

import "time"

// User represents a registered vault user.
type User struct {
	// ID is the unique, immutable identifier for the user.
	ID string
	// Username is the login name chosen by the user.
	Username string
	// PasswordHash is the bcrypt hash of the user's credential.
	PasswordHash []byte
	// CreatedAt is the registration time.
	CreatedAt time.Time
}

// Session binds an issued bearer token to a user.
// Only the SHA-256 digest of the token is persisted.
type Session struct {
	TokenHash string
	UserID    string
	IssuedAt  time.Time
	// ExpiresAt is nil when sessions never expire.
	ExpiresAt *time.Time
	// RevokedAt is set once the session was logged out.
	RevokedAt *time.Time
}

// Active reports whether the session may still authenticate requests at now.
func (s *Session) Active(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	if s.ExpiresAt != nil && !now.Before(*s.ExpiresAt) {
		return false
	}
	return true
}

// StoredFile holds metadata of an uploaded file.
type StoredFile struct {
	// ID is the internal identifier of the file row.
	ID string `json:"-"`
	// DisplayName is the user supplied file name, not guaranteed unique.
	DisplayName string `json:"filename"`
	// StorageKey is the server generated blob key and the external file identifier.
	StorageKey string `json:"id"`
	// OwnerID identifies the owning user. Ownership never changes.
	OwnerID string `json:"-"`
	// Size of the content in bytes.
	Size int64 `json:"size"`
	// ContentType is the sniffed MIME type of the content.
	ContentType string `json:"contentType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FileListing is a row of the global file list.
type FileListing struct {
	StorageKey    string `json:"id"`
	DisplayName   string `json:"filename"`
	OwnerUsername string `json:"owner"`
	// IsOwner is computed per requester and only drives UI affordances.
	IsOwner bool `json:"isOwner"`

	OwnerID string `json:"-"`
}

// ShareStatus is the lifecycle state of a share link.
type ShareStatus string

const (
	// ShareActive links grant read access to their file.
	ShareActive ShareStatus = "active"
	// ShareRevoked links no longer resolve.
	ShareRevoked ShareStatus = "revoked"
)

// ShareLink is a capability granting read access to exactly one file.
type ShareLink struct {
	ID        string      `json:"shareId"`
	FileID    string      `json:"-"`
	Status    ShareStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	RevokedAt *time.Time  `json:"revokedAt,omitempty"`
}

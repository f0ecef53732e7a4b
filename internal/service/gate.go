package service

import (
	"fmt"

	"github.com/atinyakov/GophVault/internal/common"
	"github.com/atinyakov/GophVault/internal/models"
)

// Operation names an action the gate can authorize.
type Operation int

const (
	OpList Operation = iota + 1
	OpRead
	OpDownload
	OpDelete
	OpShareCreate
	OpShareList
	OpShareRevoke
	OpShareRead
	OpShareDownload
)

var operationNames = map[Operation]string{
	OpList:          "list",
	OpRead:          "read",
	OpDownload:      "download",
	OpDelete:        "delete",
	OpShareCreate:   "share-create",
	OpShareList:     "share-list",
	OpShareRevoke:   "share-revoke",
	OpShareRead:     "share-read",
	OpShareDownload: "share-download",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// capabilityBased reports whether o is authorized by a share link rather than
// by an identity.
func (o Operation) capabilityBased() bool {
	return o == OpShareRead || o == OpShareDownload
}

// Subject is the requester presented to the gate: either an authenticated
// user or the holder of a share capability.
type Subject struct {
	UserID     string
	Capability *models.ShareLink
}

// Identity returns a subject authenticated as userID.
func Identity(userID string) Subject { return Subject{UserID: userID} }

// Holder returns an anonymous subject holding link.
func Holder(link *models.ShareLink) Subject { return Subject{Capability: link} }

// Gate decides whether a subject may perform an operation on a file.
//
// Two regimes never mix. Identity operations require an authenticated user
// and, except for listing, ownership of the file. Share operations require an
// active capability bound to exactly that file and ignore identity entirely;
// a capability never grants any identity operation.
type Gate struct{}

// Authorize returns nil when subj may perform op on file. file may be nil for OpList.
//
// Failures:
//   - common.ErrUnauthenticated: identity operation without an authenticated user
//   - common.ErrNotFound: identity operation on a missing file
//   - common.ErrForbidden: authenticated, but not the file owner
//   - common.ErrInvalidShare: share operation without a live capability for file
func (Gate) Authorize(op Operation, subj Subject, file *models.StoredFile) error {
	if op.capabilityBased() {
		link := subj.Capability
		if link == nil || link.Status != models.ShareActive {
			return common.ErrInvalidShare
		}
		if file == nil || link.FileID != file.ID {
			return common.ErrInvalidShare
		}
		return nil
	}

	if _, known := operationNames[op]; !known {
		return fmt.Errorf("%w: %s", common.ErrForbidden, op)
	}
	if subj.UserID == "" {
		return common.ErrUnauthenticated
	}
	if op == OpList {
		return nil
	}
	if file == nil {
		return common.ErrNotFound
	}
	if file.OwnerID != subj.UserID {
		return common.ErrForbidden
	}
	return nil
}

package transfer

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a transfer does not exist for the given
	// user. A transfer owned by someone else is indistinguishable from a
	// nonexistent one.
	ErrNotFound = errors.New("transfer not found")

	// ErrConflict is returned by Insert when the (user, idempotency key)
	// uniqueness constraint fires. Callers resolve it by re-reading the
	// winning row; it never reaches the API surface.
	ErrConflict = errors.New("transfer already exists for idempotency key")

	// ErrStaleStatus is returned by Update when ExpectStatus is set and the
	// row is no longer in that status. The caller lost a lifecycle race and
	// must re-read before deciding anything.
	ErrStaleStatus = errors.New("transfer status changed concurrently")
)

// Patch is a partial update. Nil fields are left untouched; the store bumps
// UpdatedAt on every applied patch.
type Patch struct {
	// ExpectStatus, when set, makes the update conditional: it applies only
	// while the row is still in this status, so a transition validated
	// against a stale read cannot overwrite a newer state.
	ExpectStatus *Status

	Status       *Status
	FromAddress  *string
	SrcTxHash    *string
	DstTxHash    *string
	Proof        *string
	ErrorMessage *string
	CompletedAt  *time.Time
}

// Store is the controller's only persistence dependency: a durable record
// keyed by transfer id, with atomic insert-or-conflict semantics on
// (user_id, idempotency_key). That constraint is the sole
// correctness-critical synchronization point in the system.
type Store interface {
	// Insert persists a new transfer. ErrConflict when another transfer
	// already holds the same (user, idempotency key).
	Insert(ctx context.Context, t *Transfer) error

	// FindByID looks up a transfer scoped to its owner.
	FindByID(ctx context.Context, userID, id string) (*Transfer, error)

	// GetByID looks up a transfer without ownership scoping. Reserved for
	// internal settlement paths; never exposed through the API surface.
	GetByID(ctx context.Context, id string) (*Transfer, error)

	// FindByIdempotencyKey looks up a transfer by the client-supplied key.
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*Transfer, error)

	// List returns a page ordered by creation time descending, plus the
	// total count independent of the page window.
	List(ctx context.Context, userID string, limit, offset int) ([]*Transfer, int, error)

	// ListByStatus returns up to limit transfers in the given status,
	// oldest first. Used by the settlement poller.
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Transfer, error)

	// Update applies a patch to a transfer by id. ErrStaleStatus when the
	// patch's ExpectStatus guard no longer holds.
	Update(ctx context.Context, id string, patch Patch) error
}

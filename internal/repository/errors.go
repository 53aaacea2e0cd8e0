// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrDuplicateIdempotencyKey signals that a sync batch with
// the same client retry token has already been recorded for the user,
// which handlers translate into the short-circuit "already processed"
// response rather than an error.
package repository

import (
	"errors"
	"strings"
)

// ErrEmailExists is returned by the user repository when an insert
// collides with the unique email index. Handlers translate this into
// an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateIdempotencyKey is returned by the sync log repository when
// inserting a log row collides with the (user_id, idempotency_key)
// unique index. The collision itself is the idempotency mechanism:
// callers must fetch the prior log and short-circuit processing.
var ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (error number 1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

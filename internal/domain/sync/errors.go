package sync

import (
	"context"
	"errors"
	"strings"

	"github.com/clinicore/clinicore/internal/platform/oracle"
	"github.com/clinicore/clinicore/internal/platform/store"
)

// ErrorKind classifies a failed action so offline clients can decide whether
// to drop, repair, or retry it.
type ErrorKind string

const (
	// KindValidation marks a malformed or semantically invalid payload.
	// Retrying the same payload can never succeed.
	KindValidation ErrorKind = "validation"

	// KindConflict marks a uniqueness collision, such as a duplicate
	// payment receipt. The conflicting record already exists server-side.
	KindConflict ErrorKind = "conflict"

	// KindNotFound marks a reference to a record the tenant does not own.
	// Cross-tenant references surface here, indistinguishable from a
	// genuinely missing record.
	KindNotFound ErrorKind = "not_found"

	// KindDependencyTimeout marks an upstream dependency that did not
	// answer in time. The action is safe to retry on the next sync.
	KindDependencyTimeout ErrorKind = "dependency_timeout"

	// KindInternal is the fallback for unclassified failures.
	KindInternal ErrorKind = "internal"
)

// Retryable reports whether a failure of this kind may succeed if the client
// resubmits the identical action later.
func (k ErrorKind) Retryable() bool {
	return k == KindDependencyTimeout || k == KindInternal
}

// classify maps an action error onto its kind. Sentinel errors from the
// store and oracle packages take priority; everything else that is not a
// timeout is treated as a validation failure, matching how the domain
// services report bad input (plain fmt errors).
func classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, store.ErrConflict):
		return KindConflict
	case errors.Is(err, oracle.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return KindDependencyTimeout
	case strings.Contains(err.Error(), "timeout"):
		return KindDependencyTimeout
	default:
		return KindValidation
	}
}

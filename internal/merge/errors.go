package merge

import (
	"errors"
	"fmt"

	"github.com/mmynk/housemerge/internal/storage"
)

var (
	// ErrAuthentication means the request carries no caller identity.
	ErrAuthentication = errors.New("authentication required")

	// ErrAuthorization means the caller is authenticated but lacks the
	// required role in the group.
	ErrAuthorization = errors.New("caller is not allowed to perform this action in the group")

	// ErrNotFound is returned when a row disappears between validation and
	// mutation.
	ErrNotFound = storage.ErrNotFound

	// ErrConfiguration means the engine was built without a working store.
	ErrConfiguration = errors.New("merge engine is misconfigured")

	// ErrConservation means the reconciled records would change how much
	// money someone in the group owes or is owed. The merge is rolled back.
	ErrConservation = errors.New("merge would not conserve group balances")
)

// ValidationKind identifies which identity rule a merge request broke.
type ValidationKind string

const (
	KindMissingField          ValidationKind = "missing_field"
	KindSameIdentity          ValidationKind = "same_identity"
	KindPersonNotFound        ValidationKind = "person_not_found"
	KindGroupMismatch         ValidationKind = "group_mismatch"
	KindSourceAlreadyArchived ValidationKind = "source_already_archived"
	KindSourceMustBeUnclaimed ValidationKind = "source_must_be_unclaimed"
	KindTargetMustBeClaimed   ValidationKind = "target_must_be_claimed"
	KindTargetArchived        ValidationKind = "target_archived"
)

var kindMessages = map[ValidationKind]string{
	KindMissingField:          "required field is missing",
	KindSameIdentity:          "source and target must be different people",
	KindPersonNotFound:        "person not found",
	KindGroupMismatch:         "person does not belong to this group",
	KindSourceAlreadyArchived: "source person is already archived",
	KindSourceMustBeUnclaimed: "source person is linked to an account; only unclaimed placeholders can be merged",
	KindTargetMustBeClaimed:   "target person must be linked to an account",
	KindTargetArchived:        "target person is archived",
}

// ValidationError reports a rejected merge request. No data was changed.
type ValidationError struct {
	Kind   ValidationKind
	Detail string
}

func (e *ValidationError) Error() string {
	msg := kindMessages[e.Kind]
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

func invalid(kind ValidationKind, format string, args ...any) error {
	return &ValidationError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// ValidationKindOf returns the kind of a ValidationError anywhere in err's
// chain, or "" if there is none.
func ValidationKindOf(err error) ValidationKind {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return ""
}

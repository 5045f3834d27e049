package ledger

import (
	"errors"
	"fmt"

	"library-backend/internal/shared/apperr"
)

var (
	// ErrInvalidReference is returned when a write names a row that does not exist
	ErrInvalidReference = apperr.Validation("INVALID_REFERENCE", "referenced entity does not exist")

	// ErrDuplicate is returned when a write violates a uniqueness rule
	ErrDuplicate = apperr.Conflict("DUPLICATE_ENTRY", "entity already exists")

	// ErrStoreUnavailable wraps driver failures; never retried by the engine
	ErrStoreUnavailable = &apperr.Error{Kind: apperr.KindInternal, Code: "STORE_UNAVAILABLE", Message: "ledger store unavailable"}
)

func NewInvalidReferenceError(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvalidReference, detail)
}

func NewDuplicateError(detail string) error {
	return fmt.Errorf("%w: %s", ErrDuplicate, detail)
}

func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicate) }

func IsInvalidReference(err error) bool { return errors.Is(err, ErrInvalidReference) }

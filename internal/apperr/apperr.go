// Package apperr is the error taxonomy shared by the stores and the handlers.
//
// Expected outcomes (bad input, missing or foreign rows, unknown coupons) are
// *Error values carrying a Kind. Infrastructure failures are wrapped with
// Storage so the handler layer can log the cause and show a generic message.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindStorage
	KindCouponNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	case KindCouponNotFound:
		return "coupon_not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a classified application error. Message is safe to show to the
// customer; Op and Err are for logs only.
type Error struct {
	Kind    Kind
	Op      string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports a missing or malformed field.
func Validation(field, message string) error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// NotFound reports a row that does not exist or is not owned by the caller.
// The two cases are deliberately indistinguishable.
func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// Conflict reports a request that clashes with current state (stock, duplicates).
func Conflict(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

// CouponNotFound reports an unknown, inactive or expired coupon code.
func CouponNotFound(code string) error {
	return &Error{Kind: KindCouponNotFound, Field: "coupon_code", Message: fmt.Sprintf("coupon %q is not valid", code)}
}

// Storage wraps a database failure. A nil err returns nil so call sites can
// wrap unconditionally.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindStorage, Op: op, Message: "an error occurred while processing your request", Err: err}
}

// KindOf returns the Kind of err, KindStorage for unclassified errors and
// KindUnknown for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStorage
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Message returns the customer-facing text for err.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != KindStorage {
		return ae.Message
	}
	return "an error occurred while processing your request"
}

package tx

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrValidation     = errors.New("tx: invalid argument")
	ErrDecode         = errors.New("tx: malformed encoding")
	ErrUnknownVariant = errors.New("tx: unknown variant")
)

// ValidationError reports a rejected constructor argument.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tx: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DecodeError reports a missing or malformed interchange field.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tx: decode %s: missing", e.Field)
	}
	return fmt.Sprintf("tx: decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

type UnknownVariantError struct {
	Tag string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("tx: unknown variant %q", e.Tag)
}

func (e *UnknownVariantError) Is(target error) bool { return target == ErrUnknownVariant }

// FailReason names the first check Validate rejected.
type FailReason string

const (
	ReasonNoPayload      FailReason = "no_payload"
	ReasonSenderMismatch FailReason = "sender_mismatch"
	ReasonPubHash        FailReason = "pubhash_mismatch"
	ReasonHash           FailReason = "hash_mismatch"
	ReasonNotSigned      FailReason = "not_signed"
	ReasonBadSignature   FailReason = "bad_signature"
)

// VerificationFailure is returned, never panicked, by Validate.
type VerificationFailure struct {
	Reason FailReason
	Hash   string
}

func (f *VerificationFailure) Error() string {
	return fmt.Sprintf("tx %s: verify:%s", f.Hash, f.Reason)
}

func negative(field string, v int64) error {
	if v < 0 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("negative value %d", v)}
	}
	return nil
}

// Package cryptoerr defines the error taxonomy shared by the codec, hashing,
// signing and signature packages.
//
// InputError and DecodeError are user-correctable and safe to surface verbatim.
// CryptoError is fatal for the request it occurred in. A failed verification is
// never an error; see signature.VerifyResult.
package cryptoerr

import (
	"errors"
	"fmt"
)

var (
	ErrMissingInput         = errors.New("missing input")
	ErrInvalidKeyFormat     = errors.New("invalid key format")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrUnsupportedKeySize   = errors.New("unsupported key size")
	ErrEntropyExhausted     = errors.New("secure random source exhausted")
)

type InputError struct {
	Field string
	Err   error
}

func NewInputError(field string, err error) *InputError {
	return &InputError{Field: field, Err: err}
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

type DecodeError struct {
	Format string
	Err    error
}

func NewDecodeError(format string, err error) *DecodeError {
	return &DecodeError{Format: format, Err: err}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type CryptoError struct {
	Op  string
	Err error
}

func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// IsUserError reports whether err is caused by the caller's input rather than by
// the system.
func IsUserError(err error) bool {
	var inputErr *InputError
	var decodeErr *DecodeError
	return errors.As(err, &inputErr) || errors.As(err, &decodeErr)
}

func IsCryptoError(err error) bool {
	var cryptoErr *CryptoError
	return errors.As(err, &cryptoErr)
}

// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

type xerror string

func (e xerror) Error() string {
	return string(e)
}

const (
	// Not enough bytes remain in the stream to decode a value
	ErrTruncated = xerror("bfp: Not enough bytes remain")

	// A field (or a whole record) was accessed outside of its version range
	//
	// Version discovery hooks also return this to signal that a record type is
	// unversioned; the engine then keeps the requested version.
	ErrVersionUnsupported = xerror("bfp: Not supported in this version")

	// A combinator or a coercion received a value of the wrong runtime kind
	ErrTypeMismatch = xerror("bfp: Type mismatch")

	// A combinator read a field before the parser reached it. This is a bug
	// in the schema, not in the data
	ErrUninitialized = xerror("bfp: Field read before initialisation")

	// A compressed section was requested but the record type has no
	// compression hook
	ErrCompressionUnsupported = xerror("bfp: Compression unsupported")

	// A value was outside of the range permitted for its use (e.g. a negative
	// length in a length comparison, or a negative repeat count)
	ErrValueOutOfRange = xerror("bfp: Value out of range")

	// A second relational call was made on a comparison builder
	ErrChainedComparison = xerror("bfp: Cannot chain comparisons, nest another conditional with Then")

	// Bytes were left over after a strict parse
	ErrTrailingBytes = xerror("bfp: Trailing bytes after record")

	// A field validator rejected a value
	ErrValidation = xerror("bfp: Validation failed")

	// A field name did not resolve to a field of the record
	ErrUnknownField = xerror("bfp: Unknown field")
)

// ShortReadError is returned by the byte cursor when a read or peek asks for
// more bytes than remain
type ShortReadError struct {
	Requested, Available int
}

func (err ShortReadError) Is(target error) bool {
	return target == ErrTruncated || target == io.ErrUnexpectedEOF
}

func (err ShortReadError) Error() string {
	return fmt.Sprintf("%s (requested %d bytes, only %d left)", ErrTruncated, err.Requested, err.Available)
}

// FieldError annotates an error with the path of the field being processed
// and the version the record was resolved to
type FieldError struct {
	Underlying error
	Path       string
	Version    string
}

func (err FieldError) Unwrap() error {
	return err.Underlying
}

func (err FieldError) Error() string {
	uerr := strings.TrimPrefix(err.Underlying.Error(), "bfp: ")
	if err.Version == "" {
		return fmt.Sprintf("bfp: %s (at %s)", uerr, err.Path)
	}
	return fmt.Sprintf("bfp: %s (at %s, %s)", uerr, err.Path, err.Version)
}

// WithFieldError wraps err with the field path given by parts. If err is
// already a FieldError (i.e. it came from a nested record), the new path is
// prepended to the existing one
func WithFieldError(err error, parts ...string) error {
	if err == nil {
		return nil
	}

	if parts[0] == "" {
		parts[0] = "<anonymous>"
	}
	combined := strings.Join(parts, ".")

	switch e := err.(type) {
	case FieldError:
		e.Path = fmt.Sprintf("%s %s", combined, e.Path)
		return e
	default:
		return FieldError{Underlying: err, Path: combined}
	}
}

// WithVersion records the resolved version on a FieldError. Errors which
// are not FieldErrors are wrapped with an empty path. An existing version
// (from a nested record) is kept
func WithVersion(err error, ver string) error {
	if err == nil {
		return nil
	}

	e, ok := err.(FieldError)
	if !ok {
		e = FieldError{Underlying: err, Path: "<record>"}
	}
	if e.Version == "" {
		e.Version = ver
	}
	return e
}

// Errorf builds an error wrapping the sentinel kind with extra detail. The
// result matches kind under errors.Is
func Errorf(kind error, format string, args ...interface{}) error {
	return detailError{kind, fmt.Sprintf(format, args...)}
}

type detailError struct {
	kind   error
	detail string
}

func (e detailError) Unwrap() error {
	return e.kind
}

func (e detailError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.detail)
}

// Is reports whether any error in err's chain matches target, as errors.Is
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

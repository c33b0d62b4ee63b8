// Package apperr defines the error taxonomy shared by the scale reader,
// the MiAll repository and the reconciliation engine.
//
// Run-level errors (ConfigurationError, NotFoundError, ValidationError,
// SourceReadError, ErrCancelled) abort a run. UpsertError is item-level and is
// recorded by the engine without stopping the loop.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled indicates the operator aborted the run.
var ErrCancelled = errors.New("sync cancelled")

// ConfigurationError reports a missing or invalid setting, including a
// category that does not exist in MiAll yet.
type ConfigurationError struct {
	Setting string
	Msg     string
	Hint    string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Setting != "" {
		b.WriteString(" (")
		b.WriteString(e.Setting)
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Hint != "" {
		b.WriteString(". ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// NotFoundError reports that a configured file does not exist.
type NotFoundError struct {
	What string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Path)
}

// ValidationError reports a source row that does not match the expected
// format. The label is usually the product name.
type ValidationError struct {
	Label string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Label == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Label, e.Msg)
}

// SourceReadError wraps a driver or I/O failure while reading the scale
// database and tells the operator which table and columns were expected.
type SourceReadError struct {
	Source  string
	Table   string
	Columns []string
	Hint    string
	Err     error
}

func (e *SourceReadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to read scale %s database: make sure it is the scale software database and contains table %s (columns %s)",
		e.Source, e.Table, strings.Join(e.Columns, "/"))
	if e.Hint != "" {
		b.WriteString(". ")
		b.WriteString(e.Hint)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// UpsertError reports a failed transaction for a single product.
type UpsertError struct {
	Barcode string
	Err     error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert %s: %v", e.Barcode, e.Err)
}

func (e *UpsertError) Unwrap() error { return e.Err }

// Cancelled wraps a context error so callers can match both ErrCancelled and
// the original context error.
func Cancelled(cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// IsCancelled reports whether err represents an operator-requested abort.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// Hint returns the remediation hint carried by err, if any.
func Hint(err error) string {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.Hint
	}
	var readErr *SourceReadError
	if errors.As(err, &readErr) {
		return readErr.Hint
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return "check the configured path"
	}
	return ""
}

// Package errors provides error handling utilities for gdcharvest.
// It offers consistent error wrapping with operation context, an error
// taxonomy matching the pipeline's failure handling, and helpers for
// warn-and-continue flows over partially bad data.
package errors

import (
	"fmt"
	"log"
	"strings"
)

// Op represents an operation name for error context.
type Op string

// Kind represents the category of error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNetwork      // transport failures talking to the GDC API
	KindIO           // local filesystem failures
	KindParse        // malformed responses or artifacts
	KindValidation   // rows that fail invariants (bad filenames, missing linkage)
	KindConfig       // operator configuration problems; fatal for the run
	KindCatalog      // run-catalog database failures
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	case KindCatalog:
		return "catalog"
	default:
		return "unknown"
	}
}

// Error represents an application error with context.
type Error struct {
	Op   Op     // Operation that failed
	Kind Kind   // Category of error
	Err  error  // Underlying error
	Msg  string // Additional context message
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(string(e.Op))
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
		if e.Err != nil {
			b.WriteString(": ")
		}
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new Error from its arguments: Op, Kind, error, or a
// message string, in any order.
func E(args ...interface{}) *Error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case error:
			e.Err = a
		case string:
			e.Msg = a
		}
	}
	return e
}

// Wrap wraps an error with an operation name for context.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapMsg wraps an error with an operation name and message.
func WrapMsg(op Op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Msg: msg, Err: err}
}

// IsKind checks if an error is of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}

// GetKind returns the kind of an error, or KindUnknown.
func GetKind(err error) Kind {
	e, ok := err.(*Error)
	if !ok {
		return KindUnknown
	}
	return e.Kind
}

// SkipCounter tracks how many items an operation has skipped, so
// warn-and-continue loops stay visible instead of silently dropping
// data.
type SkipCounter struct {
	Op         string
	Count      int
	LastErr    error
	LastDetail string
}

// NewSkipCounter creates a new skip counter for the given operation.
func NewSkipCounter(op string) *SkipCounter {
	return &SkipCounter{Op: op}
}

// Skip records a skipped item.
func (s *SkipCounter) Skip(err error, detail string) {
	s.Count++
	s.LastErr = err
	s.LastDetail = detail
}

// Report logs a summary if any items were skipped.
func (s *SkipCounter) Report() {
	if s.Count > 0 {
		log.Printf("Warning: %s skipped %d items (last error: %v, detail: %s)",
			s.Op, s.Count, s.LastErr, s.LastDetail)
	}
}

// LogAndContinue logs an error for use in continue patterns, replacing
// silent continue statements with visible logging.
func LogAndContinue(operation string, err error) {
	log.Printf("Warning: %s failed: %v", operation, err)
}

// LogAndContinueWith logs an error with additional context.
func LogAndContinueWith(operation string, err error, context string) {
	log.Printf("Warning: %s failed for %s: %v", operation, context, err)
}

// Must panics if the error is not nil and returns the value otherwise.
// Use this only for initialization code where errors are unexpected.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("unexpected error: %v", err))
	}
	return v
}

package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLoadTimeout means the initial readiness wait (or an element wait) ran past its bound.
	ErrLoadTimeout = errors.New("load timeout")
	// ErrPaginationFailure means a scroll/click interaction failed mid-loop.
	ErrPaginationFailure = errors.New("pagination failure")
	// ErrTransportFailure means the initial navigation failed or returned a non-success status.
	ErrTransportFailure = errors.New("transport failure")
	// ErrSinkFailure means the record destination could not be created or written.
	ErrSinkFailure = errors.New("sink failure")
)

// RunError attaches the URL or path a failure happened against, so a caller can retry by hand.
// errors.Is matches both Kind and the underlying Err.
type RunError struct {
	Kind error
	URL  string
	Path string
	Err  error
}

func (e *RunError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.URL != "" {
		fmt.Fprintf(&b, " (url=%s)", e.URL)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (path=%s)", e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RunError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// CardExtractionError is raised inside one item card when a located node lacks the
// attribute the record depends on. It never crosses the card boundary.
type CardExtractionError struct {
	Index int
	Field string
	Err   error
}

func (e *CardExtractionError) Error() string {
	return fmt.Sprintf("card %d: field %s: %v", e.Index, e.Field, e.Err)
}

func (e *CardExtractionError) Unwrap() error {
	return e.Err
}

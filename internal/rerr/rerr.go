// Package rerr defines the error values shared by the codec suite.
//
// Every stream and codec operation reports failure through one of these
// types so callers can branch on the kind with errors.As/errors.Is without
// string matching.
package rerr

import (
	"errors"
	"fmt"
)

// ErrEOF reports a read past the end of the input buffer.
var ErrEOF = errors.New("unexpected end of stream")

// MalformedError reports structurally invalid input. Site names the
// format region being decoded (e.g. "bmd/shp1"), Why describes the defect.
type MalformedError struct {
	Site       string
	Why        string
	Offset     int
	Underlying error
}

// Malformed creates a MalformedError without an underlying cause.
func Malformed(site, why string) *MalformedError {
	return &MalformedError{Site: site, Why: why, Offset: -1}
}

// Malformedf creates a MalformedError with a formatted reason.
func Malformedf(site, format string, args ...any) *MalformedError {
	return &MalformedError{Site: site, Why: fmt.Sprintf(format, args...), Offset: -1}
}

// At records the stream offset the defect was observed at.
func (e *MalformedError) At(offset int) *MalformedError {
	e.Offset = offset
	return e
}

// Wrap attaches an underlying cause.
func (e *MalformedError) Wrap(err error) *MalformedError {
	e.Underlying = err
	return e
}

func (e *MalformedError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: malformed at 0x%x: %s", e.Site, e.Offset, e.Why)
	}
	return fmt.Sprintf("%s: malformed: %s", e.Site, e.Why)
}

func (e *MalformedError) Unwrap() error { return e.Underlying }

// MagicError reports a four-character-code mismatch.
type MagicError struct {
	Site   string
	Want   string
	Got    string
	Offset int
}

func (e *MagicError) Error() string {
	return fmt.Sprintf("%s: magic mismatch at 0x%x: want %q, got %q", e.Site, e.Offset, e.Want, e.Got)
}

// VersionError reports a recognized format at an unsupported revision.
type VersionError struct {
	Site string
	Got  string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s: unsupported version %q", e.Site, e.Got)
}

// DependencyError reports an external file the codec needs but the caller
// could not resolve.
type DependencyError struct {
	Name string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("missing dependency %q", e.Name)
}

// RangeError reports an index or count outside its valid range.
type RangeError struct {
	Site  string
	What  string
	Value int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %s %d out of range [0, %d)", e.Site, e.What, e.Value, e.Max)
}

// InvariantError indicates a broken internal invariant: a programmer error,
// not bad input. It is still returned, not panicked, on any path reachable
// from file data.
type InvariantError struct {
	What string
}

func (e *InvariantError) Error() string {
	return "internal invariant violated: " + e.What
}

// Invariantf builds an InvariantError with a formatted description.
func Invariantf(format string, args ...any) *InvariantError {
	return &InvariantError{What: fmt.Sprintf(format, args...)}
}

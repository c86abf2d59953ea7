package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch covers transport failures, timeouts, non-success statuses and
	// oversized bodies.
	ErrFetch = errors.New("fetch failed")
	// ErrParse covers bodies no backend can decode.
	ErrParse = errors.New("parse failed")
)

// Error records the document and stage of a failed extraction.
type Error struct {
	Op   string // "fetch" or "parse"
	URL  string
	Err  error
	kind error
}

func (e *Error) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("extract %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("extract %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the ErrFetch or ErrParse sentinel for the failed stage.
func (e *Error) Is(target error) bool { return target == e.kind }

func fetchError(url string, err error) error {
	return &Error{Op: "fetch", URL: url, Err: err, kind: ErrFetch}
}

func parseError(url string, err error) error {
	return &Error{Op: "parse", URL: url, Err: err, kind: ErrParse}
}

// Package storeerr classifies backend failures as read or write errors so
// callers can pick a recovery policy without knowing the driver.
package storeerr

import "github.com/pkg/errors"

var (
	ErrRead  = errors.New("storage read failed")
	ErrWrite = errors.New("storage write failed")
)

type classified struct {
	kind error
	op   string
	err  error
}

func (e *classified) Error() string { return e.op + ": " + e.err.Error() }

func (e *classified) Unwrap() []error { return []error{e.kind, e.err} }

// Read wraps err as a read failure of op. A nil err stays nil.
func Read(err error, op string) error {
	if err == nil {
		return nil
	}
	return &classified{kind: ErrRead, op: op, err: err}
}

// Write wraps err as a write failure of op. A nil err stays nil.
func Write(err error, op string) error {
	if err == nil {
		return nil
	}
	return &classified{kind: ErrWrite, op: op, err: err}
}

func IsRead(err error) bool  { return errors.Is(err, ErrRead) }
func IsWrite(err error) bool { return errors.Is(err, ErrWrite) }

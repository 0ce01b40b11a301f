package stm

import "github.com/pkg/errors"

// ErrDuplicateEntry is the payload of the fatal panic raised when a log
// operation would leave more than one entry for the same TVar id. Per
// spec, this is a programmer error: it cannot occur if the log primitives
// in log.go are used as specified, so callers are not expected to recover
// from it. Nothing in this module recovers it: the panic ends the process
// with its message and stack trace.
var ErrDuplicateEntry = errors.New("stm: duplicate log entry for TVar id")

// duplicateEntryPanic wraps ErrDuplicateEntry with the offending id and
// panics with it.
func duplicateEntryPanic(id uint64) {
	panic(errors.Wrapf(ErrDuplicateEntry, "tvar id %d", id))
}

// ABOUTME: Fatal-failure path for host runtime invariant violations
// ABOUTME: Logs a diagnostic record with a stack trace, then halts by panicking

// Package fatal is where root enumeration escalates invariant violations.
// A silently skipped root would let the collector reclaim a live object, so
// nothing here is recoverable: Throw never returns.
package fatal

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
)

// Error is the panic value carried out of Throw
type Error struct {
	Msg   string
	Attrs []any
}

func (e *Error) Error() string {
	if len(e.Attrs) == 0 {
		return "fatal: " + e.Msg
	}
	return fmt.Sprintf("fatal: %s %v", e.Msg, e.Attrs)
}

var logger atomic.Pointer[slog.Logger]

// SetLogger directs diagnostic dumps to l. A nil l restores slog.Default.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}

func current() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// Throw reports an invariant violation and halts.
// attrs are slog key/value pairs describing the violation.
func Throw(msg string, attrs ...any) {
	args := append(append([]any{}, attrs...), slog.String("stack", string(debug.Stack())))
	current().Error("fatal: "+msg, args...)
	panic(&Error{Msg: msg, Attrs: attrs})
}

// Catch runs fn and returns the *Error it threw, or nil if it returned
// normally. Panics that did not come from Throw are propagated.
func Catch(fn func()) (err *Error) {
	defer func() {
		if r := recover(); r != nil {
			fe, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			err = fe
		}
	}()
	fn()
	return nil
}

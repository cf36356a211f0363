package actor

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DataDog/gostackparse"
)

const (
	// CodeInvalidMessage is returned when a message is executed by an actor
	// whose behavior does not support it.
	CodeInvalidMessage = -1
	// CodeFault is the code of every panic or foreign error converted at the
	// execution boundary.
	CodeFault = -2
)

// Error is the result of executing a message. It carries success or failure
// as a value, so nothing has to unwind across the worker goroutine.
//
// The zero value is [NoError].
type Error struct {
	failed  bool
	code    int
	message string
	trace   string
}

var (
	// NoError is the shared success result.
	NoError = Error{}

	// ErrInvalidMessage reports a message the receiving behavior cannot handle.
	ErrInvalidMessage = NewError(CodeInvalidMessage, "message not supported by this actor")
)

// NewError creates a failed result with an application defined code.
func NewError(code int, message string) Error {
	return Error{failed: true, code: code, message: message}
}

// Fault converts a recovered panic into a [CodeFault] result. stack is the
// output of debug.Stack and may be nil.
func Fault(recovered any, stack []byte) Error {
	e := NewError(CodeFault, fmt.Sprintf("panic: %v", recovered))
	if len(stack) > 0 {
		e.trace = string(compactTrace(stack))
	}
	return e
}

// FromErr converts a Go error into a result. Errors that are not already an
// [Error] become [CodeFault].
func FromErr(err error) Error {
	if err == nil {
		return NoError
	}
	var e Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(CodeFault, err.Error())
}

func (e Error) IsError() bool   { return e.failed }
func (e Error) Code() int       { return e.code }
func (e Error) Message() string { return e.message }

// Trace returns the compacted goroutine trace captured for a fault, if any.
func (e Error) Trace() string { return e.trace }

func (e Error) Error() string {
	if !e.failed {
		return "no error"
	}
	return fmt.Sprintf("error code = %d, %s", e.code, e.message)
}

// Is matches results by failure state and code, so errors.Is(err, ErrInvalidMessage)
// holds for any invalid message result.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok {
		return false
	}
	return e.failed == t.failed && e.code == t.code
}

// Err bridges the result into idiomatic Go: nil on success, the result otherwise.
func (e Error) Err() error {
	if !e.failed {
		return nil
	}
	return e
}

func (e Error) LogValue() slog.Value {
	if !e.failed {
		return slog.StringValue("ok")
	}
	return slog.GroupValue(
		slog.Int("code", e.code),
		slog.String("message", e.message),
	)
}

// compactTrace reduces a debug.Stack dump to function/location pairs, dropping
// the runtime frames that lead into the recover handler.
func compactTrace(stack []byte) []byte {
	goros, errs := gostackparse.Parse(bytes.NewReader(stack))
	if len(errs) > 0 || len(goros) != 1 {
		return stack
	}
	frames := goros[0].Stack
	if len(frames) > 4 {
		frames = frames[4:]
	}
	buf := bytes.NewBuffer(nil)
	_, _ = fmt.Fprintf(buf, "goroutine %d [%s]\n", goros[0].ID, goros[0].State)
	for _, frame := range frames {
		_, _ = fmt.Fprintf(buf, "%s\n\t%s:%d\n", frame.Func, frame.File, frame.Line)
	}
	return buf.Bytes()
}

package actor

import (
	"errors"
	"fmt"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_noError(t *testing.T) {
	require.False(t, NoError.IsError())
	require.NoError(t, NoError.Err())
	require.Equal(t, "no error", NoError.Error())
	require.Equal(t, NoError, Error{})
}

func TestError_newError(t *testing.T) {
	e := NewError(7, "out of stock")
	require.True(t, e.IsError())
	require.Equal(t, 7, e.Code())
	require.Equal(t, "out of stock", e.Message())
	require.Equal(t, "error code = 7, out of stock", e.Error())
	require.Error(t, e.Err())
}

func TestError_is(t *testing.T) {
	wrapped := fmt.Errorf("ask failed: %w", NewError(CodeInvalidMessage, "other text"))
	require.ErrorIs(t, wrapped, ErrInvalidMessage)
	require.NotErrorIs(t, NewError(3, "x"), ErrInvalidMessage)
	require.NotErrorIs(t, NoError, NewError(0, ""))
}

func TestError_fault(t *testing.T) {
	var e Error
	func() {
		defer func() {
			if r := recover(); r != nil {
				e = Fault(r, debug.Stack())
			}
		}()
		panic("boom")
	}()

	require.True(t, e.IsError())
	require.Equal(t, CodeFault, e.Code())
	require.Equal(t, "panic: boom", e.Message())
	require.Contains(t, e.Trace(), "TestError_fault")
}

func TestError_faultWithoutStack(t *testing.T) {
	e := Fault(errors.New("broken"), nil)
	require.Equal(t, CodeFault, e.Code())
	require.Empty(t, e.Trace())
}

func TestError_fromErr(t *testing.T) {
	require.Equal(t, NoError, FromErr(nil))

	e := FromErr(errors.New("disk full"))
	require.Equal(t, CodeFault, e.Code())
	require.Equal(t, "disk full", e.Message())

	orig := NewError(12, "quota")
	require.Equal(t, orig, FromErr(fmt.Errorf("wrapped: %w", orig)))
}

func TestPriority(t *testing.T) {
	require.True(t, Critical.Valid())
	require.True(t, Low.Valid())
	require.False(t, Priority(-1).Valid())
	require.False(t, Priority(NumPriorities).Valid())
	require.Equal(t, "critical", Critical.String())
	require.Equal(t, "low", Low.String())
}

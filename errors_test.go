package mainthread

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_InvalidArgumentClass(t *testing.T) {
	for _, err := range []error{ErrNilAction, ErrNilCoroutine, ErrNilDispatcher} {
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
	assert.NotErrorIs(t, ErrDriverRunning, ErrInvalidArgument)
	assert.Equal(t, `mainthread: invalid argument: nil action`, ErrNilAction.Error())
}

func TestPanicError(t *testing.T) {
	err := &PanicError{Value: io.EOF}
	assert.Equal(t, `mainthread: panic: EOF`, err.Error())
	assert.ErrorIs(t, err, io.EOF)

	err = &PanicError{Value: 42}
	assert.Equal(t, `mainthread: panic: 42`, err.Error())
	assert.Nil(t, err.Unwrap())

	var target *PanicError
	assert.True(t, errors.As(error(err), &target))
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, `Uninitialized`, ModeUninitialized.String())
	assert.Equal(t, `Active`, ModeActive.String())
	assert.Equal(t, `Dummy`, ModeDummy.String())
	assert.Equal(t, `Unknown`, Mode(42).String())
}

func TestLifecycleEvent_String(t *testing.T) {
	assert.Equal(t, `focus`, EventFocus.String())
	assert.Equal(t, `pause`, EventPause.String())
	assert.Equal(t, `unknown`, LifecycleEvent(0).String())
}

package mainthread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedFunc() {}

func TestFuncName(t *testing.T) {
	assert.Equal(t, `github.com/joeycumines/go-mainthread.namedFunc`, funcName(namedFunc))
	assert.Equal(t, `github.com/joeycumines/go-mainthread.TestFuncName.func1`, funcName(func() {}))
	assert.Equal(t, ``, funcName(nil))
	assert.Equal(t, ``, funcName((func())(nil)))
	assert.Equal(t, ``, funcName(42))
}

func TestNewFailureLog_InvalidRates(t *testing.T) {
	x, err := newFailureLog(nil, map[time.Duration]int{time.Second: 10, time.Minute: 5})
	assert.Nil(t, x)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// TestFailureLog_NilLogger verifies a nil logger neither panics nor counts
// suppressions.
func TestFailureLog_NilLogger(t *testing.T) {
	x, err := newFailureLog(nil, map[time.Duration]int{time.Hour: 1})
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		for i := 0; i < 3; i++ {
			x.actionPanic(`f`, &PanicError{Value: `v`})
			x.callbackPanic(&CallbackError{Event: EventFocus, ID: 1}, nil)
			x.coroutinePanic(1, &PanicError{Value: `v`})
		}
	})
	assert.Zero(t, x.Suppressed())
}

// TestFailureLog_CategoriesAreIndependent verifies each failure source is
// rate limited separately.
func TestFailureLog_CategoriesAreIndependent(t *testing.T) {
	var buf syncBuffer
	x, err := newFailureLog(newTestLogger(&buf), map[time.Duration]int{time.Hour: 1})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		x.actionPanic(`a`, &PanicError{Value: `v`})
		x.actionPanic(`b`, &PanicError{Value: `v`})
		x.updaterPanic(`a`, &PanicError{Value: `v`})
		x.callbackPanic(&CallbackError{Event: EventFocus, ID: 1}, nil)
		x.callbackPanic(&CallbackError{Event: EventPause, ID: 1}, nil)
		x.coroutinePanic(1, &PanicError{Value: `v`})
	}

	assert.Len(t, buf.Lines(), 6)
	assert.Equal(t, uint64(6), x.Suppressed())
}

func TestDefaultLogger(t *testing.T) {
	l := defaultLogger()
	require.NotNil(t, l)
	b := l.Warning()
	assert.True(t, b.Enabled())
	b.Release()
	assert.False(t, l.Info().Enabled())
}

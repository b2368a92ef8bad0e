package mainthread

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

// newTestLogger writes JSON lines at all levels to w, without timestamps.
func newTestLogger(w io.Writer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(stumpy.L.LevelDebug()),
	).Logger()
}

// newTestDispatcher creates a dispatcher that does not log, unless
// configured otherwise by opts.
func newTestDispatcher(t testing.TB, opts ...Option) *Dispatcher {
	t.Helper()
	d, err := New(append([]Option{WithLogger(nil)}, opts...)...)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

// syncBuffer is a bytes.Buffer that is safe for concurrent use.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (x *syncBuffer) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.Write(p)
}

func (x *syncBuffer) String() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.String()
}

// Lines returns the non-empty lines written so far.
func (x *syncBuffer) Lines() []string {
	var lines []string
	for _, line := range strings.Split(x.String(), "\n") {
		if line != `` {
			lines = append(lines, line)
		}
	}
	return lines
}

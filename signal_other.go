//go:build !unix

package mainthread

import (
	"context"
)

// NotifySignals is a no-op on this platform.
func (x *Driver) NotifySignals(ctx context.Context) (stop func()) {
	return func() {}
}

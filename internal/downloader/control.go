package downloader

import "sync/atomic"

// Control guards one job trigger against concurrent re-submission. The zero
// value is enabled.
type Control struct {
	busy atomic.Bool
}

// Enabled reports whether the control accepts a new submission.
func (c *Control) Enabled() bool {
	return !c.busy.Load()
}

// Do disables the control, runs fn and re-enables the control however fn
// returns. While disabled, Do returns ErrBusy without calling fn.
func (c *Control) Do(fn func() error) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)
	return fn()
}

package gosnd

import (
	"time"

	"github.com/daedaluz/fdev/poll"
)

// Poll blocks until the device fd is ready for the ioctl-transfer
// strategy (or a NONBLOCK-configured device becomes ready), or until
// timeout elapses. This is the suspension point named in §5 for
// non-mmap, non-interrupt-driven transfer: the transfer/sync ioctls
// themselves are the only other places this package blocks.
func (h *Handle) Poll(timeout time.Duration) error {
	if err := poll.WaitInput(h.fd, timeout); err != nil {
		return wrapErr(TransferError, "poll", err)
	}
	return nil
}

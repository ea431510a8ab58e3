package gosnd

import (
	"errors"
	"syscall"
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// transfer moves frames between buf and the device using whichever
// strategy Open selected. Both strategies express "transfer N frames
// to/from a user buffer"; only mmapTransfer touches the ring buffer
// directly.
func (h *Handle) transfer(buf []byte, frames uint32) (uint32, error) {
	if h.strategy == strategyMmap {
		return h.mmapTransfer(buf, frames)
	}
	return h.ioctlTransfer(buf, frames)
}

// Write transfers frames from buf to the device (OUTPUT direction).
func (h *Handle) Write(buf []byte, frames uint32) (uint32, error) {
	return h.transfer(buf, frames)
}

// Read transfers frames from the device into buf (INPUT direction).
func (h *Handle) Read(buf []byte, frames uint32) (uint32, error) {
	return h.transfer(buf, frames)
}

// mmapTransfer copies frames between the mapped ring buffer and buf,
// wrapping at the ring (buffer_size) on every iteration and advancing
// appl_ptr, wrapped at the boundary, after each chunk.
func (h *Handle) mmapTransfer(buf []byte, frames uint32) (uint32, error) {
	if uint64(frames) > h.bufferSize {
		frames = uint32(h.bufferSize)
	}
	remaining := frames
	var userOffset uint64
	ctl := h.controlPtr()

	for remaining > 0 {
		ringOffset := ctl.applPtr % h.bufferSize
		continuous := h.bufferSize - ringOffset
		chunk := uint64(remaining)
		if chunk > continuous {
			chunk = continuous
		}

		ringByte := h.FramesToBytes(ringOffset)
		userByte := h.FramesToBytes(userOffset)
		n := h.FramesToBytes(chunk)

		if h.direction == Output {
			copy(h.mmapBuf[ringByte:ringByte+n], buf[userByte:userByte+n])
		} else {
			copy(buf[userByte:userByte+n], h.mmapBuf[ringByte:ringByte+n])
		}

		if err := h.advanceApplPtr(chunk); err != nil {
			return frames - remaining, err
		}

		userOffset += chunk
		remaining -= uint32(chunk)
	}
	return frames, nil
}

// advanceApplPtr moves appl_ptr forward by delta frames, wrapping at
// the boundary with a single comparison+subtraction (never modulo),
// and pushes the new value to the kernel.
func (h *Handle) advanceApplPtr(delta uint64) error {
	ctl := h.controlPtr()
	applPtr := ctl.applPtr + delta
	if applPtr > h.boundary {
		applPtr -= h.boundary
	}
	ctl.applPtr = applPtr
	return h.sync(0)
}

// ioctlTransfer issues READI_FRAMES or WRITEI_FRAMES. The kernel owns
// appl_ptr advancement in this mode; a broken-pipe errno indicates an
// xrun, which this package does not attempt to recover from.
func (h *Handle) ioctlTransfer(buf []byte, frames uint32) (uint32, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var x xferi
	x.buf = uintptr(unsafe.Pointer(&buf[0]))
	x.frames = uint64(frames)

	req := ioctlWriteI
	if h.direction == Input {
		req = ioctlReadI
	}
	if err := ioctl.Ioctl(uintptr(h.fd), req, uintptr(unsafe.Pointer(&x))); err != nil {
		if errors.Is(err, syscall.EPIPE) {
			return 0, wrapErr(TransferError, "xrun", err)
		}
		return 0, wrapErr(TransferError, "", err)
	}
	return uint32(x.result), nil
}

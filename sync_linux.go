package gosnd

import (
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// sync reconciles hw_ptr/appl_ptr/avail_min with the kernel. flags is
// any subset of {syncPtrHWSync, syncPtrAppl, syncPtrAvailMin} (GET maps
// to appl+avail_min, SET is the zero value, HWSYNC requests a fresh
// hw_ptr).
//
// When status/control are memory-mapped, GET/SET are no-ops (the
// memory is already shared) and HWSYNC is satisfied by a dedicated
// ioctl. Otherwise flags are written into the sync_ptr block and the
// SYNC_PTR ioctl both pushes our values and reads fresh ones back.
func (h *Handle) sync(flags uint32) error {
	if h.sp == nil {
		if flags&syncPtrHWSync != 0 {
			if err := ioctl.Ioctl(uintptr(h.fd), ioctlHWSync, 0); err != nil {
				return wrapErr(SyncError, "HWSYNC", err)
			}
		}
		return nil
	}
	h.sp.flags = flags
	if err := ioctl.Ioctl(uintptr(h.fd), ioctlSyncPtr, uintptr(unsafe.Pointer(h.sp))); err != nil {
		return wrapErr(SyncError, "SYNC_PTR", err)
	}
	return nil
}

// predictHWPtr estimates the current hw_ptr from the last
// atomically-read (hw_ptr, tstamp) pair plus elapsed monotonic time,
// for diagnostic use; the main scheduler loop relies on
// sync(HWSync|GET) plus the deviation filter instead, since mapped
// status may tear under a concurrent hardware interrupt.
func (h *Handle) predictHWPtr(frameNs int64, nowNs int64) (uint64, error) {
	sp := h.sp
	if sp == nil {
		sp = &syncPtr{}
	}
	sp.flags = syncPtrAppl | syncPtrAvailMin
	if err := ioctl.Ioctl(uintptr(h.fd), ioctlSyncPtr, uintptr(unsafe.Pointer(sp))); err != nil {
		return 0, wrapErr(SyncError, "SYNC_PTR", err)
	}
	st := &sp.status
	tstampNs := st.tstamp.sec*1e9 + st.tstamp.nsec
	elapsed := nowNs - tstampNs
	if elapsed < 0 {
		elapsed = 0
	}
	estimate := uint64(elapsed / frameNs)
	return st.hwPtr + estimate, nil
}

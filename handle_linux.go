package gosnd

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
	"golang.org/x/sys/unix"
)

// transferStrategy is a sealed tag distinguishing the two transfer
// strategies. Tag-dispatch rather than a stored function pointer or
// interface, to keep the hot path free of a vtable indirection.
type transferStrategy uint8

const (
	strategyMmap transferStrategy = iota
	strategyIoctl
)

// Handle is one open PCM device. Exactly one of (statusRegion +
// controlRegion) or sp is non-nil: sp is present iff status/control
// could not be memory-mapped.
type Handle struct {
	fd            int
	direction     Direction
	bytesPerFrame uint32
	bufferSize    uint64
	boundary      uint64
	periodSize    uint32
	strategy      transferStrategy

	statusRegion  []byte
	controlRegion []byte
	sp            *syncPtr
	mmapBuf       []byte

	closed atomic.Bool
}

func devicePath(card, device int, dir Direction) string {
	suffix := byte('p')
	if dir == Input {
		suffix = 'c'
	}
	return fmt.Sprintf("/dev/snd/pcmC%dD%d%c", card, device, suffix)
}

func pageAlign(n int) int {
	pageSize := syscall.Getpagesize()
	return (n + pageSize - 1) &^ (pageSize - 1)
}

// Open opens the PCM character device named by cfg.Card/cfg.Device,
// negotiates hardware and software parameters, and sets up the
// status/control and (if requested) data regions. Any failure unwinds
// previously acquired resources in reverse order.
func Open(cfg Config) (*Handle, error) {
	path := devicePath(cfg.Card, cfg.Device, cfg.Direction)
	flags := syscall.O_RDWR
	if cfg.Options.has(OptNonblock) {
		flags |= syscall.O_NONBLOCK
	}
	fd, err := syscall.Open(path, flags, 0)
	if err != nil {
		return nil, wrapErr(DeviceOpenFailed, path, err)
	}

	h := &Handle{fd: fd, direction: cfg.Direction}

	periodCount := cfg.PeriodCount
	if periodCount == 0 {
		periodCount = 2
	}

	var hw hwParams
	fillHWParams(&hw)
	access := uint32(accessRWInterleaved)
	if cfg.Options.has(OptMMap) {
		access = accessMMapInterleaved
	}
	set(&hw, hwParamAccess, access)
	set(&hw, hwParamFormat, uint32(cfg.Format))
	set(&hw, hwParamSubformat, 0)
	setInterval(&hw, hwParamChannels, cfg.Channels, cfg.Channels)
	setInterval(&hw, hwParamRate, cfg.Rate, cfg.Rate)
	setInterval(&hw, hwParamPeriodSize, cfg.PeriodSize, cfg.PeriodSize)
	setInterval(&hw, hwParamPeriods, periodCount, periodCount)
	if cfg.Options.has(OptNoIRQ) {
		hw.flags |= noPeriodWakeupFlag
	}

	if err := ioctl.Ioctl(uintptr(fd), ioctlHWParams, uintptr(unsafe.Pointer(&hw))); err != nil {
		syscall.Close(fd)
		return nil, wrapErr(ParameterRejected, "HW_PARAMS", err)
	}

	h.bytesPerFrame = cfg.Channels * cfg.Format.bytes()
	h.bufferSize = uint64(cfg.PeriodSize) * uint64(periodCount)
	h.periodSize = cfg.PeriodSize

	var sw swParams
	sw.tstampMode = tstampEnable
	if cfg.Options.has(OptMonotonic) {
		sw.tstampType = tstampMonotonic
		var arg int32 = int32(tstampMonotonic)
		if err := ioctl.Ioctl(uintptr(fd), ioctlTTStamp, uintptr(unsafe.Pointer(&arg))); err != nil {
			syscall.Close(fd)
			return nil, wrapErr(ParameterRejected, "TTSTAMP", err)
		}
	}
	availMin := cfg.AvailMin
	if availMin == 0 {
		availMin = uint64(cfg.PeriodSize)
	}
	sw.availMin = availMin
	sw.startThreshold = cfg.StartThreshold
	if sw.startThreshold == 0 {
		sw.startThreshold = 1
	}
	sw.stopThreshold = cfg.StopThreshold
	if sw.stopThreshold == 0 {
		sw.stopThreshold = ^uint64(0)
	}
	sw.silenceThreshold = cfg.SilenceThreshold
	sw.silenceSize = 0
	sw.periodStep = 1

	if err := ioctl.Ioctl(uintptr(fd), ioctlSWParams, uintptr(unsafe.Pointer(&sw))); err != nil {
		syscall.Close(fd)
		return nil, wrapErr(ParameterRejected, "SW_PARAMS", err)
	}
	h.boundary = sw.boundary

	if cfg.Options.has(OptMMap) {
		size := pageAlign(int(h.bufferSize) * int(h.bytesPerFrame))
		buf, err := unix.Mmap(fd, mmapOffsetData, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			syscall.Close(fd)
			return nil, wrapErr(MapFailed, "data buffer", err)
		}
		h.mmapBuf = buf
		h.strategy = strategyMmap
	} else {
		h.strategy = strategyIoctl
	}

	pageSize := syscall.Getpagesize()
	statusRegion, statusErr := unix.Mmap(fd, mmapOffsetStatus, pageSize, unix.PROT_READ, unix.MAP_SHARED)
	var controlRegion []byte
	var controlErr error
	if statusErr == nil {
		controlRegion, controlErr = unix.Mmap(fd, mmapOffsetControl, pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	}
	if statusErr != nil || controlErr != nil {
		if statusErr == nil {
			unix.Munmap(statusRegion)
		}
		h.sp = &syncPtr{}
	} else {
		h.statusRegion = statusRegion
		h.controlRegion = controlRegion
	}

	ctl := h.controlPtr()
	ctl.applPtr = 0
	ctl.availMin = availMin

	return h, nil
}

// Close releases every resource Open acquired, in reverse order. Nil
// status, control and data regions are skipped, so a handle whose
// regions were never set up can be closed; the fd is always closed.
// Calls after the first return nil.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if h.statusRegion != nil {
		unix.Munmap(h.statusRegion)
	}
	if h.controlRegion != nil {
		unix.Munmap(h.controlRegion)
	}
	if h.strategy == strategyMmap {
		_ = ioctl.Ioctl(uintptr(h.fd), ioctlDrop, 0)
		if h.mmapBuf != nil {
			unix.Munmap(h.mmapBuf)
		}
	}
	return syscall.Close(h.fd)
}

// Stop halts a running stream (issues DROP) without closing the
// handle.
func (h *Handle) Stop() error {
	if err := ioctl.Ioctl(uintptr(h.fd), ioctlDrop, 0); err != nil {
		return wrapErr(SyncError, "DROP", err)
	}
	return nil
}

// Start issues PREPARE then START.
func (h *Handle) Start() error {
	if err := ioctl.Ioctl(uintptr(h.fd), ioctlPrepare, 0); err != nil {
		return wrapErr(SyncError, "PREPARE", err)
	}
	if err := ioctl.Ioctl(uintptr(h.fd), ioctlStart, 0); err != nil {
		return wrapErr(SyncError, "START", err)
	}
	return nil
}

// IsRunning reports whether the stream is actively running, or still
// draining an output stream.
func (h *Handle) IsRunning() bool {
	st := h.statusPtr().state
	return st == stateRunning || (st == stateDraining && h.direction == Output)
}

// BytesPerFrame returns the negotiated frame size in bytes.
func (h *Handle) BytesPerFrame() uint32 { return h.bytesPerFrame }

// BufferSize returns the negotiated buffer size in frames.
func (h *Handle) BufferSize() uint64 { return h.bufferSize }

// Boundary returns the kernel-supplied pointer wrap boundary.
func (h *Handle) Boundary() uint64 { return h.boundary }

// FramesToBytes converts a frame count to a byte count at this
// handle's negotiated frame size.
func (h *Handle) FramesToBytes(frames uint64) uint64 {
	return frames * uint64(h.bytesPerFrame)
}

// BytesToFrames converts a byte count to a frame count at this
// handle's negotiated frame size.
func (h *Handle) BytesToFrames(n uint64) uint64 {
	return n / uint64(h.bytesPerFrame)
}

func (h *Handle) statusPtr() *mmapStatus {
	if h.sp != nil {
		return &h.sp.status
	}
	return (*mmapStatus)(unsafe.Pointer(&h.statusRegion[0]))
}

func (h *Handle) controlPtr() *mmapControl {
	if h.sp != nil {
		return &h.sp.control
	}
	return (*mmapControl)(unsafe.Pointer(&h.controlRegion[0]))
}

// triggerTstamp reads the kernel-recorded timestamp of the last
// START/STOP/PAUSE/SUSPEND/RESUME transition via the STATUS ioctl. Kept
// as its own call rather than folded into sync(), matching the source:
// most of snd_pcm_status duplicates SYNC_PTR/HWSYNC information, only
// the trigger timestamp is unique to it.
func (h *Handle) triggerTstamp() (timespec, error) {
	var st pcmStatus
	if err := ioctl.Ioctl(uintptr(h.fd), ioctlStatus, uintptr(unsafe.Pointer(&st))); err != nil {
		return timespec{}, wrapErr(SyncError, "STATUS", err)
	}
	return st.triggerTstamp, nil
}

// ProbeLimits opens the device just long enough to read the hardware's
// allowed PERIOD_SIZE and BUFFER_SIZE ranges via HW_REFINE, for a
// caller (typically the timer scheduler) that wants to configure the
// real open() at the hardware's limits rather than guess them.
func ProbeLimits(card, device int, dir Direction) (periodSizeMax, bufferSizeMax uint32, err error) {
	path := devicePath(card, device, dir)
	flags := syscall.O_RDWR | syscall.O_NONBLOCK
	fd, err := syscall.Open(path, flags, 0)
	if err != nil {
		return 0, 0, wrapErr(DeviceOpenFailed, path, err)
	}
	defer syscall.Close(fd)

	var hw hwParams
	fillHWParams(&hw)
	if err := ioctl.Ioctl(uintptr(fd), ioctlHWRefine, uintptr(unsafe.Pointer(&hw))); err != nil {
		return 0, 0, wrapErr(ParameterRejected, "HW_REFINE", err)
	}
	_, periodMax := getInterval(&hw, hwParamPeriodSize)
	_, bufferMax := getInterval(&hw, hwParamBufferSize)
	return periodMax, bufferMax, nil
}

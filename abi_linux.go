package gosnd

import (
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// hardware-parameter id ranges, matching enum snd_pcm_hw_param_t.
const (
	hwParamAccess    = 0
	hwParamFormat    = 1
	hwParamSubformat = 2
	firstMaskParam   = hwParamAccess
	lastMaskParam    = hwParamSubformat

	hwParamSampleBits  = 8
	hwParamFrameBits   = 9
	hwParamChannels    = 10
	hwParamRate        = 11
	hwParamPeriodTime  = 12
	hwParamPeriodSize  = 13
	hwParamPeriodBytes = 14
	hwParamPeriods     = 15
	hwParamBufferTime  = 16
	hwParamBufferSize  = 17
	hwParamBufferBytes = 18
	hwParamTickTime    = 19
	firstIntervalParam = hwParamSampleBits
	lastIntervalParam  = hwParamTickTime

	numMaskParams     = lastMaskParam - firstMaskParam + 1
	numIntervalParams = lastIntervalParam - firstIntervalParam + 1
	maskWords         = 8 // 256 candidate values per mask, 32 bits/word

	numMaskReserved     = 5
	numIntervalReserved = 9
)

// access modes, the one mask this package ever sets directly.
const (
	accessMMapInterleaved = 0
	accessRWInterleaved   = 3
)

// interval flag bits, packed the way the kernel packs its bitfield.
const (
	intervalOpenMin = 1 << 0
	intervalOpenMax = 1 << 1
	intervalInteger = 1 << 2
	intervalEmpty   = 1 << 3
)

// PCM states, matching enum snd_pcm_state_t.
const (
	stateOpen = iota
	stateSetup
	statePrepared
	stateRunning
	stateXRun
	stateDraining
	statePaused
	stateSuspended
	stateDisconnected
)

// hw_params top-level flags.
const noPeriodWakeupFlag uint32 = 1 << 2

// sw_params tstamp mode/type.
const (
	tstampEnable    int32  = 1
	tstampMonotonic uint32 = 1
)

// sync_ptr flags.
const (
	syncPtrHWSync   uint32 = 1
	syncPtrAppl     uint32 = 2
	syncPtrAvailMin uint32 = 4
)

// mmap region offsets, matching SNDRV_PCM_MMAP_OFFSET_*.
const (
	mmapOffsetData    = 0x00000000
	mmapOffsetStatus  = 0x80000000
	mmapOffsetControl = 0x81000000
)

const pcmIoctlMagic = 'A'

var (
	ioctlTTStamp  = ioctl.IOW(pcmIoctlMagic, 0x03, unsafe.Sizeof(int32(0)))
	ioctlHWRefine = ioctl.IOWR(pcmIoctlMagic, 0x10, unsafe.Sizeof(hwParams{}))
	ioctlHWParams = ioctl.IOWR(pcmIoctlMagic, 0x11, unsafe.Sizeof(hwParams{}))
	ioctlSWParams = ioctl.IOWR(pcmIoctlMagic, 0x13, unsafe.Sizeof(swParams{}))
	ioctlStatus   = ioctl.IOR(pcmIoctlMagic, 0x20, unsafe.Sizeof(pcmStatus{}))
	ioctlHWSync   = ioctl.IO(pcmIoctlMagic, 0x22)
	ioctlSyncPtr  = ioctl.IOWR(pcmIoctlMagic, 0x23, unsafe.Sizeof(syncPtr{}))
	ioctlPrepare  = ioctl.IO(pcmIoctlMagic, 0x40)
	ioctlStart    = ioctl.IO(pcmIoctlMagic, 0x42)
	ioctlDrop     = ioctl.IO(pcmIoctlMagic, 0x43)
	ioctlWriteI   = ioctl.IOW(pcmIoctlMagic, 0x50, unsafe.Sizeof(xferi{}))
	ioctlReadI    = ioctl.IOR(pcmIoctlMagic, 0x51, unsafe.Sizeof(xferi{}))
)

// mask is a 256-candidate bitset, word = v>>5, bit = 1<<(v&31).
type mask struct {
	bits [maskWords]uint32
}

func (m *mask) set(value uint32) {
	m.bits[value>>5] |= 1 << (value & 31)
}

func (m *mask) test(value uint32) bool {
	return m.bits[value>>5]&(1<<(value&31)) != 0
}

// interval is [min, max] with four packed single-bit flags.
type interval struct {
	min, max uint32
	flags    uint32
}

func (iv *interval) openMin() bool   { return iv.flags&intervalOpenMin != 0 }
func (iv *interval) openMax() bool   { return iv.flags&intervalOpenMax != 0 }
func (iv *interval) isInteger() bool { return iv.flags&intervalInteger != 0 }
func (iv *interval) isEmpty() bool   { return iv.flags&intervalEmpty != 0 }

// hwParams mirrors struct snd_pcm_hw_params: parallel mask/interval
// tables plus request/changed masks and info flags. Reserved arrays are
// carried to keep the struct the same shape the kernel expects, even
// though this package never reads them.
type hwParams struct {
	flags        uint32
	masks        [numMaskParams]mask
	maskReserved [numMaskReserved]mask
	intervals    [numIntervalParams]interval
	intervalRes  [numIntervalReserved]interval
	rmask        uint32
	cmask        uint32
	info         uint32
	msbits       uint32
	rateNum      uint32
	rateDen      uint32
	fifoSize     uint64
	reserved     [64]byte
}

// swParams mirrors struct snd_pcm_sw_params.
type swParams struct {
	tstampMode       int32
	periodStep       uint32
	sleepMin         uint32
	availMin         uint64
	xferAlign        uint64
	startThreshold   uint64
	stopThreshold    uint64
	silenceThreshold uint64
	silenceSize      uint64
	boundary         uint64
	proto            uint32
	tstampType       uint32
	reserved         [56]byte
}

type timespec struct {
	sec  int64
	nsec int64
}

// mmapStatus mirrors struct snd_pcm_mmap_status, the kernel-written
// half of the shared status/control pair.
type mmapStatus struct {
	state          int32
	pad1           int32
	hwPtr          uint64
	tstamp         timespec
	suspendedState int32
	pad2           int32
	audioTstamp    timespec
}

// mmapControl mirrors struct snd_pcm_mmap_control, the userspace-written
// half.
type mmapControl struct {
	applPtr  uint64
	availMin uint64
}

// syncPtr mirrors struct snd_pcm_sync_ptr, used either as the SYNC_PTR
// ioctl argument or, when status/control could not be mapped, as the
// backing store status/control alias into directly.
type syncPtr struct {
	flags   uint32
	pad     uint32
	status  mmapStatus
	sresv   [16]byte
	control mmapControl
	cresv   [48]byte
}

// pcmStatus mirrors struct snd_pcm_status, used only to read
// trigger_tstamp via the STATUS ioctl.
type pcmStatus struct {
	state               int32
	pad1                int32
	triggerTstamp       timespec
	tstamp              timespec
	applPtr             uint64
	hwPtr               uint64
	delay               int64
	avail               uint64
	availMax            uint64
	overrange           uint64
	suspendedState      int32
	pad2                int32
	audioTstampData     uint32
	pad3                uint32
	audioTstamp         timespec
	driverTstamp        timespec
	audioTstampAccuracy uint32
	reserved            [48]byte
}

// xferi mirrors struct snd_xferi, the READI/WRITEI_FRAMES descriptor.
type xferi struct {
	buf    uintptr
	frames uint64
	result uint64
}

package gosnd

import (
	"unsafe"

	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestHandle builds a Handle whose mmap regions are plain slices
// rather than real kernel mappings. sync() with status/control "mapped"
// (sp == nil) and no HWSYNC bit is a pure no-op, so the transfer
// engine's ring/boundary arithmetic is testable without a device.
func newTestHandle(bufferSize, boundary uint64, bytesPerFrame uint32, dir Direction) *Handle {
	h := &Handle{
		direction:     dir,
		bytesPerFrame: bytesPerFrame,
		bufferSize:    bufferSize,
		boundary:      boundary,
		strategy:      strategyMmap,
		mmapBuf:       make([]byte, bufferSize*uint64(bytesPerFrame)),
		controlRegion: make([]byte, unsafe.Sizeof(mmapControl{})),
	}
	return h
}

func TestMmapTransferE2TwoChunks(t *testing.T) {
	const b = 4096
	const boundary = 4096 * 1024
	h := newTestHandle(b, boundary, 4, Output)

	buf := make([]byte, 4096*4)
	for i := range buf {
		buf[i] = byte(i)
	}

	n, err := h.mmapTransfer(buf, 4096)
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), n)
	assert.Equal(t, uint64(4096), h.controlPtr().applPtr)

	n, err = h.mmapTransfer(buf, 4096)
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), n)
	assert.Equal(t, uint64(8192), h.controlPtr().applPtr)
}

func TestMmapTransferRingWrapMatchesDirectCopy(t *testing.T) {
	const b = 16
	const boundary = 16 * 4
	h := newTestHandle(b, boundary, 1, Output)
	h.controlPtr().applPtr = 10 // starts 6 frames from ring wrap

	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	n, err := h.mmapTransfer(buf, 8)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), n)

	want := make([]byte, b)
	copy(want[10:16], buf[0:6])
	copy(want[0:2], buf[6:8])
	assert.Equal(t, want, h.mmapBuf)
	assert.Equal(t, uint64(18), h.controlPtr().applPtr)
}

func TestAdvanceApplPtrWrapsAtBoundaryNotBufferSize(t *testing.T) {
	h := newTestHandle(64, 128, 1, Output)
	h.controlPtr().applPtr = 127

	err := h.advanceApplPtr(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), h.controlPtr().applPtr)
}

func TestMmapTransferClampsToBufferSize(t *testing.T) {
	h := newTestHandle(16, 64, 1, Output)
	buf := make([]byte, 32)

	n, err := h.mmapTransfer(buf, 32)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), n)
}

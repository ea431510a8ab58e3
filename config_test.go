package gosnd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	cases := map[Format]uint32{
		FormatS8:    1,
		FormatU8:    1,
		FormatS16LE: 2,
		FormatS16BE: 2,
		FormatU16LE: 2,
		FormatU16BE: 2,
		FormatS32LE: 4,
		FormatS32BE: 4,
		FormatU32LE: 4,
		FormatU32BE: 4,
	}
	for f, want := range cases {
		assert.Equal(t, want, f.bytes())
	}
}

func TestDefaultConfigDerivedBytesPerFrameE1(t *testing.T) {
	// E1: S16_LE, 2 channels -> bytes_per_frame = 4.
	cfg := DefaultConfig(0, 0, Output)
	assert.Equal(t, uint32(4), cfg.Channels*cfg.Format.bytes())
}

func TestOptionHas(t *testing.T) {
	opts := OptMMap | OptMonotonic
	assert.True(t, opts.has(OptMMap))
	assert.True(t, opts.has(OptMonotonic))
	assert.False(t, opts.has(OptNoIRQ))
}

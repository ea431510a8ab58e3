package gosnd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFillHWParamsGivesEverythingAllowed(t *testing.T) {
	var p hwParams
	fillHWParams(&p)

	min, max := getInterval(&p, hwParamRate)
	assert.Equal(t, uint32(0), min)
	assert.Equal(t, uint32(math.MaxUint32), max)

	for v := uint32(0); v < 32; v++ {
		assert.True(t, getMask(&p, hwParamFormat, v))
	}
}

func TestSetMaskThenGetMask(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		value := rapid.Uint32Range(0, 255).Draw(rt, "value")

		var p hwParams
		fillHWParams(&p)
		setMask(&p, hwParamFormat, value)

		for v := uint32(0); v < 256; v++ {
			if v == value {
				assert.True(t, getMask(&p, hwParamFormat, v))
			} else {
				assert.False(t, getMask(&p, hwParamFormat, v))
			}
		}
	})
}

func TestSetIntervalThenGetInterval(t *testing.T) {
	var p hwParams
	fillHWParams(&p)
	setInterval(&p, hwParamPeriodSize, 1024, 1024)

	min, max := getInterval(&p, hwParamPeriodSize)
	assert.Equal(t, uint32(1024), min)
	assert.Equal(t, uint32(1024), max)
}

func TestGetInvalidParamID(t *testing.T) {
	var p hwParams
	fillHWParams(&p)
	// id 3..7 names neither a mask nor an interval.
	_, err := get(&p, 5, 0)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestGetIntervalPanicsOnOpenInterval(t *testing.T) {
	var p hwParams
	fillHWParams(&p)
	p.intervals[hwParamRate-firstIntervalParam].flags = intervalOpenMin
	assert.Panics(t, func() {
		getInterval(&p, hwParamRate)
	})
}

package gosnd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviationAveragerE4SingleOutlierIgnored(t *testing.T) {
	// E4: rate=44100, period_size=441, expected=220; sequence
	// 220,220,...,220,236 with a single outlier (allowed=16): filter
	// returns 0 throughout. The outlier's diff of -16 lies on the band
	// edge, and even one out-of-band sample never exceeds half the window.
	var d deviationAverager
	d.reset(101, 16)

	var last int64
	for i := 0; i < 100; i++ {
		last = d.calculate(0)
	}
	assert.Zero(t, last)
	last = d.calculate(-16) // expected-filled = 220-236
	assert.Zero(t, last)
}

func TestDeviationAveragerE5SustainedDriftTriggersCorrection(t *testing.T) {
	// E5: feed filled=240 sustained (diff = expected-filled = -20) for
	// more than half the window: filter should report a non-zero
	// correction of about -20.
	var d deviationAverager
	d.reset(9, 16)

	var corr int64
	for i := 0; i < 5; i++ {
		corr = d.calculate(-20)
	}
	assert.Equal(t, int64(-20), corr)
}

func TestDeviationAveragerZeroWhileWithinBand(t *testing.T) {
	var d deviationAverager
	d.reset(11, 16)
	for i := 0; i < 20; i++ {
		got := d.calculate(int64(i%10 - 5)) // stays within +-16
		assert.Zero(t, got)
	}
}

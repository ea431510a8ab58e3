package gosnd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSmoothCorrectionSumsExactly(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		delta := rapid.Int64Range(-10000, 10000).Draw(rt, "delta")
		wakeups := rapid.IntRange(1, 200).Draw(rt, "wakeups")

		var s smoothCorrector
		s.start(delta, wakeups)

		var sum int64
		ceilAbs := (abs64(delta) + int64(wakeups) - 1) / int64(wakeups)
		if delta == 0 {
			ceilAbs = 0
		}
		for i := 0; i < wakeups; i++ {
			d := s.get()
			sum += d
			assert.LessOrEqual(t, abs64(d), ceilAbs)
		}
		assert.Equal(t, delta, sum)
		assert.True(t, s.idle())
		assert.Zero(t, s.get())
	})
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestSmoothCorrectionE5(t *testing.T) {
	var s smoothCorrector
	s.start(20, 3)
	var sum int64
	for i := 0; i < 3; i++ {
		sum += s.get()
	}
	assert.Equal(t, int64(20), sum)
}

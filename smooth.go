package gosnd

// smoothCorrector distributes a one-time pointer adjustment across
// many wakeups instead of applying it in a single jump, to avoid
// audible artifacts. Idle when remaining == 0.
type smoothCorrector struct {
	remaining int
	step      int64 // base per-tick delta, truncated toward zero
	extra     int   // number of leading ticks that take one more unit
	sign      int64
}

// start schedules delta frames of correction spread across wakeups
// ticks. The per-tick step plus a remainder distribution across the
// first `extra` ticks guarantees the returned sequence sums to delta
// exactly.
func (s *smoothCorrector) start(delta int64, wakeups int) {
	if wakeups <= 0 || delta == 0 {
		s.remaining = 0
		return
	}
	s.sign = 1
	abs := delta
	if delta < 0 {
		s.sign = -1
		abs = -delta
	}
	s.step = s.sign * (abs / int64(wakeups))
	s.extra = int(abs % int64(wakeups))
	s.remaining = wakeups
}

// get returns the next delta and decrements the remaining count. Once
// remaining reaches zero it returns 0 and stays idle.
func (s *smoothCorrector) get() int64 {
	if s.remaining <= 0 {
		return 0
	}
	d := s.step
	if s.extra > 0 {
		d += s.sign
		s.extra--
	}
	s.remaining--
	return d
}

// idle reports whether a correction is not in progress.
func (s *smoothCorrector) idle() bool {
	return s.remaining == 0
}

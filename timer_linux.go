package gosnd

import (
	"golang.org/x/sys/unix"
)

// TimerScheduler drives a PCM handle from a monotonic timerfd instead
// of device interrupts, correcting for drift between the OS timer and
// the audio clock via the deviation filter and smooth correction.
type TimerScheduler struct {
	handle *Handle

	timerFd int

	periodSize uint32
	frameNs    int64
	periodNs   int64
	expected   int64
	nWakeups   int

	allowedDeviation int64
	avg              deviationAverager
	smooth           smoothCorrector
}

// OpenTimer probes the device's hardware limits, configures the real
// open() at those limits with NO_IRQ and MONOTONIC forced on, and sets
// up the timerfd and deviation-tracking state.
func OpenTimer(cfg Config) (*TimerScheduler, error) {
	periodMax, bufferMax, err := ProbeLimits(cfg.Card, cfg.Device, cfg.Direction)
	if err != nil {
		return nil, err
	}
	cfg.PeriodSize = periodMax
	cfg.PeriodCount = bufferMax / periodMax
	cfg.AvailMin = ^uint64(0)
	cfg.StartThreshold = 0
	cfg.StopThreshold = 0
	cfg.SilenceThreshold = 0
	cfg.Options |= OptNoIRQ | OptMonotonic

	h, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	timerFd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK)
	if err != nil {
		h.Close()
		return nil, wrapErr(SchedulerError, "timerfd_create", err)
	}

	t := &TimerScheduler{
		handle:           h,
		timerFd:          timerFd,
		periodSize:       cfg.PeriodSize,
		allowedDeviation: 16,
	}
	t.frameNs = int64(1e9) / int64(cfg.Rate)
	t.periodNs = t.frameNs * int64(cfg.PeriodSize)
	t.expected = int64(cfg.PeriodSize) / 2

	periodsPerSec := int(cfg.Rate / cfg.PeriodSize)
	t.avg.reset(periodsPerSec+1, t.allowedDeviation)

	return t, nil
}

// TimerFd returns the file descriptor the caller should poll/read to
// learn of each wakeup; this is the only suspension point this
// scheduler introduces.
func (t *TimerScheduler) TimerFd() int { return t.timerFd }

// Start issues PREPARE+START, reads the trigger timestamp, and arms
// the timerfd at trigger_tstamp + period_ns/2 with interval period_ns.
// appl_ptr is pre-advanced by one period, since the first period is
// considered already written.
func (t *TimerScheduler) Start() error {
	h := t.handle
	if err := h.Start(); err != nil {
		return err
	}
	ts, err := h.triggerTstamp()
	if err != nil {
		return err
	}
	deadline := ts.sec*1e9 + ts.nsec + t.periodNs/2

	spec := unix.ItimerSpec{
		Interval: unix.NsecToTimespec(t.periodNs),
		Value:    unix.NsecToTimespec(deadline),
	}
	if err := unix.TimerfdSettime(t.timerFd, unix.TFD_TIMER_ABSTIME, &spec, nil); err != nil {
		return wrapErr(SchedulerError, "timerfd_settime", err)
	}

	ctl := h.controlPtr()
	ctl.applPtr += uint64(t.periodSize)
	return h.sync(0)
}

// wakeupStep implements the shared wakeup-step logic §4.6 steps 1-6:
// update the deviation filter from the measured "filled" amount,
// possibly start a smooth correction, and return this tick's
// period_size+d frame count. Shared between TimerScheduler and
// DeadlineScheduler, which differ only in how they wait between ticks.
func wakeupStep(h *Handle, periodSize uint32, expected int64, avg *deviationAverager, smooth *smoothCorrector, nWakeups *int) (uint32, error) {
	*nWakeups++

	if err := h.sync(syncPtrHWSync | syncPtrAppl | syncPtrAvailMin); err != nil {
		return 0, err
	}
	st := h.statusPtr()
	ctl := h.controlPtr()

	filledNow := int64(filled(h.direction, st.hwPtr, ctl.applPtr, h.boundary))
	diff := expected - filledNow

	corr := avg.calculate(diff)
	if corr != 0 && smooth.idle() {
		avg.reset(len(avg.history), avg.allowed)
		smooth.start(corr, *nWakeups)
		*nWakeups = 0
	}

	d := smooth.get()
	frames := int64(periodSize) + d
	if frames < 0 {
		frames = 0
	}
	return uint32(frames), nil
}

// Write performs one wakeup step and transfers the resulting frame
// count from buf, which must be large enough to hold period_size plus
// the largest delta a smooth correction can ask for.
func (t *TimerScheduler) Write(buf []byte) (uint32, error) {
	frames, err := wakeupStep(t.handle, t.periodSize, t.expected, &t.avg, &t.smooth, &t.nWakeups)
	if err != nil {
		return 0, err
	}
	return t.handle.Write(buf, frames)
}

// Stop frees the deviation history, closes the timerfd, and closes
// the underlying handle.
func (t *TimerScheduler) Stop() error {
	t.avg.history = nil
	unix.Close(t.timerFd)
	return t.handle.Close()
}

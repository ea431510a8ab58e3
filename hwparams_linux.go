package gosnd

import "math"

// fillHWParams resets p to "everything allowed": every mask byte 0xFF,
// every interval [0, UINT_MAX], rmask/info all-ones, cmask zero. The
// refine step narrows this by intersecting with hardware capability;
// a field fill() left untouched would otherwise read as disallowed.
func fillHWParams(p *hwParams) {
	*p = hwParams{}
	for i := range p.masks {
		for w := range p.masks[i].bits {
			p.masks[i].bits[w] = math.MaxUint32
		}
	}
	for i := range p.maskReserved {
		for w := range p.maskReserved[i].bits {
			p.maskReserved[i].bits[w] = math.MaxUint32
		}
	}
	for i := range p.intervals {
		p.intervals[i] = interval{min: 0, max: math.MaxUint32}
	}
	for i := range p.intervalRes {
		p.intervalRes[i] = interval{min: 0, max: math.MaxUint32}
	}
	p.rmask = math.MaxUint32
	p.cmask = 0
	p.info = math.MaxUint32
	p.msbits = 0
	p.rateNum = 0
	p.rateDen = 0
}

func isMaskParam(id uint32) bool {
	return id >= firstMaskParam && id <= lastMaskParam
}

func isIntervalParam(id uint32) bool {
	return id >= firstIntervalParam && id <= lastIntervalParam
}

// setInterval writes [min, max] at parameter id, narrowed to an
// integer interval (openmin=openmax=empty=0, integer=1).
func setInterval(p *hwParams, id uint32, min, max uint32) {
	p.intervals[id-firstIntervalParam] = interval{min: min, max: max, flags: intervalInteger}
}

// setMask clears the mask at id and sets a single candidate value.
func setMask(p *hwParams, id uint32, value uint32) {
	m := &p.masks[id-firstMaskParam]
	*m = mask{}
	m.set(value)
}

// set dispatches to setInterval (min=max=value) or setMask by id range.
func set(p *hwParams, id uint32, value uint32) {
	if isIntervalParam(id) {
		setInterval(p, id, value, value)
		return
	}
	setMask(p, id, value)
}

// getInterval returns [min, max] at id. It panics if the post-refine
// invariant (openmin==openmax==0 for an integer interval) does not
// hold: this is a programmer error, not a runtime condition a caller
// can recover from.
func getInterval(p *hwParams, id uint32) (min, max uint32) {
	iv := &p.intervals[id-firstIntervalParam]
	if iv.openMin() || iv.openMax() {
		panic("gosnd: getInterval on a non-integer interval")
	}
	return iv.min, iv.max
}

// getMask reports whether value is a candidate at id.
func getMask(p *hwParams, id uint32, value uint32) bool {
	return p.masks[id-firstMaskParam].test(value)
}

// get dispatches to getInterval (returning min) or getMask by id
// range. An id naming neither a mask nor an interval is reported as
// ErrInvalidParam rather than returning an undefined value, resolving
// the undefined case the C source leaves unassigned.
func get(p *hwParams, id uint32, value uint32) (uint32, error) {
	switch {
	case isIntervalParam(id):
		min, _ := getInterval(p, id)
		return min, nil
	case isMaskParam(id):
		if getMask(p, id, value) {
			return value, nil
		}
		return 0, nil
	default:
		return 0, ErrInvalidParam
	}
}

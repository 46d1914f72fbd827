package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

type sampleRatio struct {
	num, den uint64
}

// debugSampler lets num out of every den events through.
// Without a ratio every event passes.
type debugSampler struct {
	ratio atomic.Pointer[sampleRatio]
	seq   atomic.Uint64
}

func (s *debugSampler) set(num, den int) {
	if num <= 0 || den <= 0 {
		s.ratio.Store(nil)
		return
	}
	s.ratio.Store(&sampleRatio{num: uint64(min(num, den)), den: uint64(den)})
	s.seq.Store(0)
}

func (s *debugSampler) allow() bool {
	r := s.ratio.Load()
	if r == nil {
		return true
	}
	return (s.seq.Add(1)-1)%r.den < r.num
}

// parseSampleRatio accepts "n/d" or a bare "d" meaning 1/d.
// ok is false for malformed input; "0" disables sampling.
func parseSampleRatio(raw string) (num, den int, ok bool) {
	raw = strings.TrimSpace(raw)
	if a, b, found := strings.Cut(raw, "/"); found {
		n, err1 := strconv.Atoi(strings.TrimSpace(a))
		d, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil || n < 0 || d <= 0 {
			return 0, 0, false
		}
		return n, d, true
	}
	d, err := strconv.Atoi(raw)
	switch {
	case err != nil || d < 0:
		return 0, 0, false
	case d == 0:
		return 0, 0, true
	}
	return 1, d, true
}

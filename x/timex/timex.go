package timex

import (
	"math"
	"time"
)

// Forever is the delay that never elapses on a 32-bit millisecond clock.
const Forever uint32 = math.MaxUint32

// Clock is a monotonic millisecond counter. It may wrap at 2^32.
type Clock interface {
	NowMs() uint32
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() uint32

func (f ClockFunc) NowMs() uint32 { return f() }

// System returns a Clock counting milliseconds since the call.
func System() Clock {
	start := time.Now()
	return ClockFunc(func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	})
}

// Elapsed returns now-since in modular arithmetic, so a single wrap of
// the counter between the two readings is harmless.
func Elapsed(now, since uint32) uint32 { return now - since }

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}

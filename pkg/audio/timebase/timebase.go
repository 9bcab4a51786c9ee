// ABOUTME: Conversions between PCM frame counts and wall-clock time
// ABOUTME: Frames are the source of truth; milliseconds are derived from them
package timebase

import (
	"fmt"
	"math"
	"math/bits"
	"time"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
)

// maxFrames is the first float64 that no longer fits in a uint64.
const maxFrames = float64(1 << 64)

func checkRate(rate uint32) error {
	if rate == 0 {
		return fmt.Errorf("%w: sample rate must be positive", audio.ErrConfiguration)
	}
	return nil
}

// FramesToMillis returns frames*1000/rate as an exact fractional value.
func FramesToMillis(frames uint64, rate uint32) (float64, error) {
	if err := checkRate(rate); err != nil {
		return 0, err
	}
	whole := frames / uint64(rate)
	rem := frames % uint64(rate)
	// Split so large frame counts keep their low bits.
	return float64(whole)*1000 + float64(rem)*1000/float64(rate), nil
}

// FramesToWholeMillis returns frames*1000/rate truncated to an integer.
func FramesToWholeMillis(frames uint64, rate uint32) (uint64, error) {
	if err := checkRate(rate); err != nil {
		return 0, err
	}
	hi, lo := bits.Mul64(frames, 1000)
	if hi >= uint64(rate) {
		return 0, fmt.Errorf("%w: %d frames at %d Hz overflows milliseconds", audio.ErrInvalidArgument, frames, rate)
	}
	ms, _ := bits.Div64(hi, lo, uint64(rate))
	return ms, nil
}

// MillisToFrames returns ms*rate/1000 rounded half up.
func MillisToFrames(ms float64, rate uint32) (uint64, error) {
	if err := checkRate(rate); err != nil {
		return 0, err
	}
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return 0, fmt.Errorf("%w: milliseconds must be a finite non-negative value, got %v", audio.ErrInvalidArgument, ms)
	}
	frames := math.Floor(ms*float64(rate)/1000 + 0.5)
	if frames >= maxFrames {
		return 0, fmt.Errorf("%w: %v ms at %d Hz overflows frame counter", audio.ErrInvalidArgument, ms, rate)
	}
	return uint64(frames), nil
}

// FramesToDuration converts a frame count to a truncated time.Duration,
// saturating at the largest representable duration.
func FramesToDuration(frames uint64, rate uint32) (time.Duration, error) {
	if err := checkRate(rate); err != nil {
		return 0, err
	}
	hi, lo := bits.Mul64(frames, uint64(time.Second))
	if hi >= uint64(rate) {
		return time.Duration(math.MaxInt64), nil
	}
	ns, _ := bits.Div64(hi, lo, uint64(rate))
	if ns > math.MaxInt64 {
		return time.Duration(math.MaxInt64), nil
	}
	return time.Duration(ns), nil
}

// DurationToFrames converts a non-negative duration to frames, rounded half up.
func DurationToFrames(d time.Duration, rate uint32) (uint64, error) {
	if err := checkRate(rate); err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: duration must be non-negative, got %v", audio.ErrInvalidArgument, d)
	}
	hi, lo := bits.Mul64(uint64(d), uint64(rate))
	lo, carry := bits.Add64(lo, uint64(time.Second)/2, 0)
	hi += carry
	if hi >= uint64(time.Second) {
		return 0, fmt.Errorf("%w: %v at %d Hz overflows frame counter", audio.ErrInvalidArgument, d, rate)
	}
	frames, _ := bits.Div64(hi, lo, uint64(time.Second))
	return frames, nil
}

// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Carries the last input frame across chunks so boundaries interpolate cleanly
package resample

import "math"

// Resampler performs linear interpolation to convert between sample rates.
// Input may arrive in chunks of any size; output is continuous across them.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64

	// position is the next output point in units of 1/outputRate input
	// frames, measured from lastFrame when primed and from the first input
	// frame otherwise. Integer steps keep chunked and whole-stream output
	// identical.
	position  int64
	lastFrame []int32 // one sample per channel
	primed    bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]int32, channels),
	}
}

// Passthrough reports whether input and output rates match.
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Process resamples interleaved input and appends the result to output.
// The final input frame is held back until the next call or Flush.
func (r *Resampler) Process(input, output []int32) []int32 {
	if r.Passthrough() {
		return append(output, input...)
	}

	inFrames := len(input) / r.channels
	if inFrames == 0 {
		return output
	}

	offset := 0
	if r.primed {
		offset = 1
	}
	windowFrames := inFrames + offset

	// at returns sample ch of window frame i
	at := func(i, ch int) int32 {
		if i < offset {
			return r.lastFrame[ch]
		}
		return input[(i-offset)*r.channels+ch]
	}

	out := int64(r.outputRate)
	for {
		idx := int(r.position / out)
		if idx+1 >= windowFrames {
			break
		}
		frac := float64(r.position%out) / float64(out)
		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(at(idx, ch))
			s2 := float64(at(idx+1, ch))
			output = append(output, int32(math.Round(s1+(s2-s1)*frac)))
		}
		r.position += int64(r.inputRate)
	}

	copy(r.lastFrame, input[(inFrames-1)*r.channels:inFrames*r.channels])
	r.position -= int64(windowFrames-1) * out
	r.primed = true

	return output
}

// Flush emits the output frames that fall between the held-back last frame
// and the end of the stream, holding that frame's value.
func (r *Resampler) Flush(output []int32) []int32 {
	if r.Passthrough() || !r.primed {
		return output
	}
	for r.position < int64(r.outputRate) {
		output = append(output, r.lastFrame...)
		r.position += int64(r.inputRate)
	}
	r.primed = false
	r.position = 0
	return output
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// Ratio returns input frames consumed per output frame
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(math.Ceil(float64(inputFrames)/r.ratio)) + 1
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(math.Ceil(float64(outputFrames) * r.ratio))
	if inputFrames < 1 {
		inputFrames = 1
	}
	return inputFrames * r.channels
}

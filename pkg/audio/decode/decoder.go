// ABOUTME: Source interfaces implemented by the file decoders
// ABOUTME: Native sources yield interleaved int32 samples at their own rate
package decode

// Source provides PCM samples from a decoded file at its native format
type Source interface {
	// Read fills samples with interleaved PCM (int32 in 24-bit range).
	// Returns the number of samples written; io.EOF marks the end of data.
	Read(samples []int32) (int, error)
	// SampleRate returns the native sample rate
	SampleRate() int
	// Channels returns the native channel count
	Channels() int
	// Close releases the decoder and its file
	Close() error
}

// Seeker is implemented by sources that can reposition to a frame.
type Seeker interface {
	SeekFrame(frame uint64) error
}

// Lengther is implemented by sources that may know their length in frames.
type Lengther interface {
	Frames() (uint64, bool)
}

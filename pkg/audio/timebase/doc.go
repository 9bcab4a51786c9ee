// ABOUTME: Time base package for playback positions
// ABOUTME: Converts between frames, milliseconds and durations
// Package timebase converts playback positions between PCM frames and time.
//
// A frame is one sample per channel. Positions are always stored as frame
// counts; millisecond and time.Duration values are derived from them for a
// given sample rate. A zero sample rate is a configuration error.
//
// Example:
//
//	frames, _ := timebase.MillisToFrames(5000, 44100) // 220500
//	ms, _ := timebase.FramesToWholeMillis(frames, 44100) // 5000
package timebase

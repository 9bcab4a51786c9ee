// ABOUTME: Audio decoder package for file playback
// ABOUTME: Provides Source implementations for WAV, FLAC, MP3, Vorbis and Opus
// Package decode opens audio files and streams them as PCM.
//
// Supports: WAV, FLAC, MP3, Ogg Vorbis, Ogg Opus
//
// Every native Source outputs int32 samples in 24-bit range at the file's
// own rate and channel count. Open wraps the source in a Stream that maps
// channels and resamples to the requested output format, so consumers only
// ever see one format.
//
// Example:
//
//	stream, err := decode.Open("song.flac", 2, 48000)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	frames, err := stream.ReadFrames(buf)
package decode

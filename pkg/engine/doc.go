// ABOUTME: Package documentation for the playback engine
// ABOUTME: Describes the control and real-time contexts
/*
Package engine plays one audio file at a time on an output device.

An Engine is created with a fixed channel count and sample rate. PlayAudio
decodes the file into that format, opens the device on first use and returns
an acknowledgement as soon as audio is flowing. When the file ends the
optional callback receives a single CompletionNotice. Stop ends playback
without a notice.

	e, err := engine.New(engine.DefaultConfig())
	if err != nil {
		return err
	}
	defer e.Close()

	ack, err := e.PlayAudio("song.flac", func(n engine.CompletionNotice) {
		fmt.Println(n.Status)
	})

Two contexts share a Transport. Control calls decode and seek on ordinary
goroutines. The device callback only copies decoded frames out of a
lock-free ring, scales them by the volume and advances the position; it
never blocks, allocates or logs.
*/
package engine

// ABOUTME: Engine control protocol package
// ABOUTME: Defines protocol messages and the WebSocket client
// Package protocol implements the engine control protocol.
//
// Messages are JSON envelopes over a WebSocket. After the hello exchange a
// client sends one request per operation; the server answers each with a
// result or an error carrying the same ID. Sessions started by playAudio
// later push a single completed message to the same connection.
//
// Example:
//
//	client, err := protocol.Dial(ctx, protocol.Config{URL: "ws://localhost:8937/control"})
//	res, err := client.PlayAudio(ctx, "/music/song.flac")
//	notice := <-client.Completed
package protocol

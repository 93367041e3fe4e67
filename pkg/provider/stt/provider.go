// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a real-time transcription service (e.g., Deepgram or
// a local whisper.cpp model) and exposes a uniform streaming interface. The
// central abstraction is SessionHandle: once opened, a session accepts raw
// PCM audio frames and emits a stream of [Snapshot] values, each carrying the
// complete text recognized so far. Snapshot semantics, rather than deltas,
// are what the alignment tracker consumes: it re-derives the reading position
// from the trailing window of every snapshot, so providers are free to revise
// earlier output at any time.
//
// Implementations must be safe for concurrent use. Audio input and snapshot
// output channels are goroutine-safe by construction.
package stt

import "context"

// SessionHandle represents an open STT streaming session. It is an interface
// so that test code can provide mock implementations without requiring a live
// provider connection.
//
// Callers must call Close when the session is no longer needed. Failing to do
// so may leak goroutines and network connections inside the provider
// implementation. All methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio bytes to the provider for
	// transcription. The chunk should match the SampleRate, Channels, and
	// bit-depth agreed in StreamConfig. Calling SendAudio after Close returns
	// an error.
	SendAudio(chunk []byte) error

	// Snapshots returns a read-only channel that emits the full recognized
	// text after every recognition event, both interim revisions and
	// committed segments. The channel is closed when the session ends.
	Snapshots() <-chan Snapshot

	// Close terminates the session, flushes any pending audio, and releases
	// all associated resources. After Close returns, the Snapshots channel
	// will be closed. Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any STT backend.
//
// Implementations must be safe for concurrent use. Multiple sessions may be
// open simultaneously (one per prompter session).
type Provider interface {
	// StartStream opens a new streaming transcription session with the given
	// audio format and recognition configuration. The returned SessionHandle
	// is ready to accept audio immediately.
	//
	// Returns an error if the provider cannot establish the session (e.g.,
	// authentication failure, unsupported configuration, or ctx already
	// cancelled). The caller owns the SessionHandle and must call Close when
	// done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}

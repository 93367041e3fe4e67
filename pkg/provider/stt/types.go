package stt

// Snapshot is a full-text speech recognition state: everything the provider
// has recognized for the session so far, not a delta. Providers re-emit the
// complete accumulated text on every recognition event, which lets the
// consumer treat each snapshot as authoritative and re-derive its own state
// from scratch; earlier snapshots may be revised wholesale while the
// recognizer reconsiders an utterance.
type Snapshot struct {
	// Text is the full recognized text so far: all committed segments plus
	// the current in-flight hypothesis, joined in spoken order.
	Text string

	// Final indicates that the most recent segment has been committed by the
	// recognizer and will no longer be revised.
	Final bool

	// Confidence is the provider's confidence in the most recent segment
	// (0.0–1.0). Zero when the provider does not report confidence.
	Confidence float64
}

// StreamConfig describes the audio format and recognition hints for a new
// STT session. All fields must be compatible with what the underlying
// provider supports.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. Common values: 16000
	// (STT-optimised mono), 48000 (typical capture-device output).
	SampleRate int

	// Channels is the number of audio channels. 1 = mono (required by most
	// STT providers). Implementors may downmix stereo internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en-US",
	// "zh-CN"). An empty string lets the provider auto-detect the language,
	// if supported.
	Language string
}

package ports

import "time"

// TrackInfo describes a track resolved by the audio node.
type TrackInfo struct {
	Identifier string
	Encoded    string
	Title      string
	Artist     string
	Duration   time.Duration
	URI        string
	ArtworkURL string
	SourceName string
	IsStream   bool
}

// Frame is one unit of audio produced by a Stream and consumed by a VoiceLink.
// A stream and a link always come from the same backend, so each backend only
// ever fills the field it understands.
type Frame struct {
	// Opus holds a single Opus packet for links that send audio themselves.
	Opus []byte

	// Track is set when the voice node streams the audio itself and the
	// frame only names what to play next.
	Track *TrackInfo
}

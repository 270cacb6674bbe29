package domain

import "errors"

// Errors shared by the station registry and guild sessions.
var (
	// ErrUnknownStation is returned when a command names a station the guild does not have.
	ErrUnknownStation = errors.New("unknown station")

	// ErrDuplicateName is returned when adding a station whose name is already taken (case-insensitive).
	ErrDuplicateName = errors.New("a station with that name already exists")

	// ErrNotFound is returned when a registry or store lookup finds nothing.
	ErrNotFound = errors.New("not found")

	// ErrStreamUnavailable is returned when a station's stream cannot be opened or stops delivering audio.
	ErrStreamUnavailable = errors.New("stream unavailable")

	// ErrTransportFailure is returned when the voice connection fails or drops.
	ErrTransportFailure = errors.New("voice transport failure")

	// ErrTeardownTimeout is returned when closing a session's voice and stream handles takes too long.
	ErrTeardownTimeout = errors.New("timed out tearing down voice session")

	// ErrReconnectExhausted is recorded when a session gives up reconnecting and returns to idle.
	ErrReconnectExhausted = errors.New("gave up reconnecting")

	// ErrNoChannel is returned when a command needs a voice channel and none is known.
	ErrNoChannel = errors.New("no voice channel to play in")

	// ErrInvalidStationName is returned for empty or overlong station names.
	ErrInvalidStationName = errors.New("invalid station name")

	// ErrInvalidStationURL is returned for station URLs that are not absolute http(s) URLs.
	ErrInvalidStationURL = errors.New("invalid station url")
)

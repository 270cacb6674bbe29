package usecases

import "errors"

// User-facing errors for the radio module.
var (
	// ErrUserNotInVoice is returned when no channel was given and the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrNotPlaying is returned when an operation needs an active radio session.
	ErrNotPlaying = errors.New("the radio is not playing")

	// ErrNothingToRestart is returned when restart finds neither a session target nor an autoplay binding.
	ErrNothingToRestart = errors.New("there is no station to restart")

	// ErrInvalidVolume is returned for volumes outside MinVolume..MaxVolume.
	ErrInvalidVolume = errors.New("volume must be between 1 and 1000")

	// ErrVolumeUnsupported is returned when the audio backend cannot change volume.
	ErrVolumeUnsupported = errors.New("volume control is not available on this audio backend")

	// ErrNoAutoplayBinding is returned when the guild has no autoplay station.
	ErrNoAutoplayBinding = errors.New("this server has no autoplay station")

	// ErrStoreFailed is returned when a change could not be persisted and was rolled back.
	ErrStoreFailed = errors.New("failed to save changes")
)

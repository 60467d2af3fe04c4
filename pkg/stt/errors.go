package stt

import "errors"

var (
	ErrNoSpeech           = errors.New("no speech detected")
	ErrServiceUnreachable = errors.New("transcription service unreachable")
)

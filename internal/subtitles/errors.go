package subtitles

import "errors"

var (
	// ErrLoad marks a caption or style file that could not be read or parsed.
	ErrLoad = errors.New("load failure")
	// ErrWrite marks a caption track that could not be persisted.
	ErrWrite = errors.New("write failure")
	// ErrEmptyInput marks a generation call that produced no usable events.
	ErrEmptyInput = errors.New("empty input")
)

package engine

import "errors"

var (
	ErrUnknownObjectType = errors.New("unknown object type")
	ErrInvalidTraits     = errors.New("invalid trait combination")
	ErrOutOfBounds       = errors.New("position out of bounds")
	ErrEditorInactive    = errors.New("editor mode is not active")
	ErrSaveRefused       = errors.New("level must contain exactly one player to be saved")
	ErrLevelNotFound     = errors.New("level not found")
	ErrNoLevels          = errors.New("level source is empty")
	ErrNilState          = errors.New("state cannot be nil")
)

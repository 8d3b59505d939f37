package camera

import "errors"

var (
	ErrUnknownCamera   = errors.New("unknown camera")
	ErrOverrideActive  = errors.New("camera override already active")
	ErrOverrideNotHeld = errors.New("camera override not active")
)

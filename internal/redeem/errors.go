package redeem

import "errors"

var (
	ErrNoCandidate = errors.New("no camera available for a random pick")
	ErrNoTarget    = errors.New("no target acquired")
)

package telemetry

import "errors"

var (
	ErrNotConnected   = errors.New("telemetry source not connected")
	ErrInvalidFrame   = errors.New("invalid telemetry frame")
	ErrReplayFinished = errors.New("replay finished")
)

package rewards

import "errors"

var (
	ErrNotFound    = errors.New("redemption not found")
	ErrRateLimited = errors.New("rate limited by rewards API")
	ErrAuthFailed  = errors.New("rewards API authentication failed")
)

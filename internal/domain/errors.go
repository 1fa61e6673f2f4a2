package domain

import "errors"

var (
	ErrMissingConfig       = errors.New("missing required configuration")
	ErrSettingsUnavailable = errors.New("monitoring settings unavailable")
	ErrInvalidCursor       = errors.New("invalid tweet id")
	ErrProviderRejected    = errors.New("call provider rejected request")
	ErrNoRoute             = errors.New("no call provider for number")
)

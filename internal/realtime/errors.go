package realtime

import "errors"

var (
	ErrConnectionFailed = errors.New("realtime: connection failed")
	ErrMalformedFrame   = errors.New("realtime: malformed frame")
	ErrUnauthorized     = errors.New("realtime: unauthorized")
	ErrTimeout          = errors.New("realtime: timeout")
)

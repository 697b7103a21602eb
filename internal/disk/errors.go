package disk

import "errors"

var (
	ErrInvalidPosition    = errors.New("invalid track/sector")
	ErrIO                 = errors.New("short read")
	ErrMalformedDirectory = errors.New("malformed directory")
	ErrBAMUnreadable      = errors.New("BAM unreadable")
)

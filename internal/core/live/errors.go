package live

import "errors"

var (
	ErrChannelClosed = errors.New("live channel is closed")
)

package sync

import "errors"

var (
	ErrClientClosed  = errors.New("sync client is closed")
	ErrLoadFailed    = errors.New("document load failed")
	ErrSaveFailed    = errors.New("patch save failed")
	ErrInvalidDoc    = errors.New("document body is structurally invalid")
	ErrInvalidConfig = errors.New("invalid sync client configuration")
)

package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrClosed  = errors.New("queue closed")
	ErrConnect = errors.New("broker connect failed")
)

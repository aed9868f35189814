package buildqueue

import "errors"

var (
	// ErrQueueClosed is returned by Pop when the queue has been closed.
	ErrQueueClosed = errors.New("buildqueue: queue is closed")
)

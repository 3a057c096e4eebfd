package server

import "errors"

// ErrWorkerStopped is returned by VMWorker.Do after Stop.
var ErrWorkerStopped = errors.New("vm worker stopped")

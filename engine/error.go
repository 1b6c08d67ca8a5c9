package engine

import "errors"

var (
	// ErrNoServerAddr is returned by Create when the server address does
	// not resolve to any endpoint.
	ErrNoServerAddr = errors.New("no server address resolved")

	// ErrAlreadyRunning is returned by StartWorker when a worker for the
	// given function name is already registered.
	ErrAlreadyRunning = errors.New("worker already running for this function")

	// ErrUnknownWorker is returned by StopWorker when no worker is
	// registered under the given function name.
	ErrUnknownWorker = errors.New("no worker registered for this function")

	// ErrOrderTimedOut marks an Order whose child process exceeded its
	// worker's timeout.
	ErrOrderTimedOut = errors.New("order timed out")

	// ErrOrderSpawnFailed marks an Order whose child process could not be
	// started at all; this is an engine-level failure, not a job failure.
	ErrOrderSpawnFailed = errors.New("order process failed to start")

	// ErrMalformedFrame is returned by decode when the buffered bytes do
	// not form a valid frame, as distinct from simply being incomplete.
	ErrMalformedFrame = errors.New("malformed frame")
)

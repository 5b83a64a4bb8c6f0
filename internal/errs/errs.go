package errs

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidBackend      = errors.New("invalid storage backend")
	ErrNoWaitingGeneration = errors.New("no generation waiting for activation")
	ErrInstallFailed       = errors.New("generation install failed")
	ErrUnsupportedMedia    = errors.New("unsupported media type")
	ErrQueueUnavailable    = errors.New("queue unavailable")
)

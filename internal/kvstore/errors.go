package kvstore

import (
	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
)

var (
	// ErrOpenFailed indicates a backend could not be opened or connected.
	ErrOpenFailed = errors.StoreError("could not open key-value backend").Build()

	// ErrGetFailed indicates a read failed for a reason other than a missing key.
	ErrGetFailed = errors.StoreError("failed to read key").Build()

	// ErrPutFailed indicates a write was not acknowledged.
	ErrPutFailed = errors.StoreError("failed to write key").Build()

	// ErrWatchFailed indicates the change stream could not be started.
	ErrWatchFailed = errors.StoreError("failed to watch keys").Build()

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.StoreError("backend is closed").Build()

	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.ConfigError("unknown key-value driver").Build()
)

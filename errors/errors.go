package errors

import "github.com/pkg/errors"

var (
	// configuration errors
	ErrNoAccountsConfigured = errors.New("no accounts configured")
	ErrCredentialsMissing   = errors.New("credentials file is missing")

	// account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrWatchFailed     = errors.New("watch registration failed")

	// provider errors
	ErrMessageNotFound = errors.New("message not found")

	// bus errors
	ErrBusUnavailable = errors.New("notification bus is unavailable")
)

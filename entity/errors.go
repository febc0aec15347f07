package entity

import "errors"

var (
	// ErrPremiumRequired marks a premium-gated feature used by a guild
	// without an active premium flag. Recoverable; callers turn it into a
	// declined response, never a crash.
	ErrPremiumRequired = errors.New("premium required")
)

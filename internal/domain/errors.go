package domain

import "errors"

// Coordination errors. Both reject an attempt before it starts and are not
// retriable by the same call.
var (
	ErrLockHeld       = errors.New("backup lock already held")
	ErrTooManyBackups = errors.New("max concurrent backups reached")
)

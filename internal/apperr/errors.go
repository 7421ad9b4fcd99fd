// Package apperr holds the error conditions a pipeline run can stop on.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnreadable      = errors.New("content unreadable")
	ErrNoConnections   = errors.New("no connections")
	ErrService         = errors.New("generative service failure")
	ErrInvalidResponse = errors.New("invalid response")
	ErrPersist         = errors.New("persist failed")
	ErrConfig          = errors.New("configuration error")
)

// UserFacing reports whether err is a condition that has already been shown
// to the user and should end the run normally (exit code 0).
func UserFacing(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrUnreadable,
		ErrNoConnections,
		ErrService,
		ErrInvalidResponse,
		ErrPersist,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

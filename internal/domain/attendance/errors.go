package attendance

import "errors"

// Attendance domain errors
var (
	// Punch workflow errors
	ErrPunchInProgress     = errors.New("a punch is already in progress")
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("unable to acquire device location")
	ErrOutsideGeofence     = errors.New("you are outside the allowed radius")
	ErrPunchRejected       = errors.New("punch was not accepted by the server")

	// Request errors
	ErrInvalidPunchRequest = errors.New("punch request is missing a permission gate or location provider")
)

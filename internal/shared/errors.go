package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidDate indicates a leave date in the past or unparsable.
	ErrInvalidDate = errors.New("invalid leave date")
	// ErrNoActivePeriod indicates no administrative period is active.
	ErrNoActivePeriod = errors.New("no active period")
	// ErrInactiveTeacher indicates the teacher is not active in the directory.
	ErrInactiveTeacher = errors.New("teacher is not active")
	// ErrPendingExists indicates the teacher already has a pending request.
	ErrPendingExists = errors.New("pending request already exists")
	// ErrDuplicateDate indicates an open request already covers the date.
	ErrDuplicateDate = errors.New("request for this date already exists")
	// ErrInsufficientBalance indicates no leave days remain.
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	// ErrInvalidTransition indicates a state change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNotOwner indicates the caller does not own the request.
	ErrNotOwner = errors.New("not the request owner")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing or expired token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

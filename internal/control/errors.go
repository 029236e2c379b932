package control

import "errors"

// Domain errors for the control package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, control.ErrControlNotFound) {
//	    // handle not found case
//	}
var (
	// ErrControlNotFound is returned when a control ID does not exist.
	ErrControlNotFound = errors.New("control: not found")

	// ErrControlExists is returned when creating a control with an ID that already exists.
	ErrControlExists = errors.New("control: already exists")

	// ErrInvalidControl is returned when control validation fails.
	ErrInvalidControl = errors.New("control: invalid")

	// ErrInvalidType is returned when a control type is not recognised.
	ErrInvalidType = errors.New("control: invalid type")
)

package lab

import (
	"errors"

	"github.com/trezcool/cyberlab/core"
)

var (
	ErrLabNotFound        = core.NewNotFoundError(errors.New("lab not found"))
	ErrDeviceNotFound     = core.NewNotFoundError(errors.New("device not found"))
	ErrConnectionNotFound = core.NewNotFoundError(errors.New("connection not found"))
	ErrSessionNotFound    = core.NewNotFoundError(errors.New("lab session not found"))

	ErrConnectionExists = core.NewConflictError(errors.New("these devices are already connected"))

	ErrSelfLoop = core.NewValidationError(
		errors.New("a device cannot be connected to itself"),
		core.FieldError{Field: "target_device_id", Error: "a device cannot be connected to itself"},
	)
	ErrDeviceNotInLab = core.NewValidationError(
		errors.New("both devices must belong to the lab"),
		core.FieldError{Field: "target_device_id", Error: "both devices must belong to the lab"},
	)
	ErrInvalidStatus = core.NewValidationError(
		errors.New("invalid connection status"),
		core.FieldError{Field: "status", Error: "invalid connection status"},
	)

	ErrSessionNotRunning = core.NewForbiddenError(errors.New("the lab session is not running"))
	ErrDeviceUnreachable = core.NewForbiddenError(errors.New("the device has no active connection"))
	ErrNoRemoteAccess    = core.NewValidationError(errors.New("the device has no remote access url"))
)

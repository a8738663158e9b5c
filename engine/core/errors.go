package core

import (
	"errors"
	"fmt"
)

// Error kinds, split the way the render loop reacts to them:
// configuration errors abort startup, build errors abort the build that
// raised them (the previous pipeline stays active on hot-reload), the
// swapchain error is recovered by a rebuild-and-retry, device errors
// terminate the session after teardown.
var (
	ErrNoSuitableDevice   = errors.New("no suitable device")
	ErrMissingCapability  = errors.New("missing device capability")
	ErrBuildFailed        = errors.New("build failed")
	ErrReflectionMismatch = errors.New("shader reflection mismatch")
	ErrUnsupportedStage   = errors.New("unsupported shader stage")
	ErrGeometryTooLarge   = errors.New("geometry too large")
	ErrRecordOverflow     = errors.New("shader binding table record overflow")
	ErrInvalidUsage       = errors.New("invalid buffer usage")
	ErrOutOfDeviceMemory  = errors.New("out of device memory")
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	ErrDeviceLost         = errors.New("device lost")
	ErrTornDown           = errors.New("resources already torn down")
)

// IsFatal reports whether err must terminate the session. Transient
// swapchain errors and build errors are survivable.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrSwapchainOutOfDate):
		return false
	case errors.Is(err, ErrBuildFailed),
		errors.Is(err, ErrReflectionMismatch),
		errors.Is(err, ErrUnsupportedStage),
		errors.Is(err, ErrRecordOverflow):
		return false
	}
	return true
}

// BuildErrorf wraps a build-time failure so callers can match it with
// errors.Is(err, ErrBuildFailed).
func BuildErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrBuildFailed)...)
}

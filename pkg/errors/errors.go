package errors

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceNotFound       = errors.New("device node not found, device is absent from the bus")
	ErrPermissionDenied     = errors.New("permission denied opening device node")
	ErrUnsupportedPlatform  = errors.New("board reset is not supported on Arm hosts, reboot the system to reset the boards")
	ErrDriverNotLoaded      = errors.New("no tenstorrent driver detected, install it with tt-kmd: https://github.com/tenstorrent/tt-kmd")
	ErrLinkResetIncomplete  = errors.New("secondary bus reset not completed")
	ErrFirmwareChannelUnset = errors.New("firmware message channel is not available")
	ErrNoRetimerPorts       = errors.New("no retimer ports declared")
)

// IoctlFailureError reports a reset ioctl that was delivered but rejected
// by the driver.
type IoctlFailureError struct {
	Flag        string
	InterfaceID int
}

func (e IoctlFailureError) Error() string {
	return fmt.Sprintf("reset ioctl %s rejected by the driver for device at PCI index %d", e.Flag, e.InterfaceID)
}

// CapabilityGateError is returned when the installed driver is too old for
// the requested operation.
type CapabilityGateError struct {
	Operation string
	Current   string
	Minimum   string
}

func (e CapabilityGateError) Error() string {
	return fmt.Sprintf(
		"operation %q requires driver version %s or greater, current version is %s, update with tt-kmd: https://github.com/tenstorrent/tt-kmd",
		e.Operation, e.Minimum, e.Current,
	)
}

// ReappearanceTimeoutError means a device never came back on the bus after
// an ASIC reset. Downstream callers cannot use the device, so this aborts
// the whole batch.
type ReappearanceTimeoutError struct {
	BusAddress string
}

func (e ReappearanceTimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for device at %s to reappear on the PCI bus", e.BusAddress)
}

// PostResetVerificationError means the device re-enumerated but its
// post-reset health check did not pass.
type PostResetVerificationError struct {
	InterfaceID int
}

func (e PostResetVerificationError) Error() string {
	return fmt.Sprintf("post-reset actions did not complete successfully for device at PCI index %d", e.InterfaceID)
}

// RefClockError reports a reset that did not electrically take effect: the
// free-running reference clock kept advancing across the reset window.
type RefClockError struct {
	InterfaceID int
	Before      uint64
	After       uint64
}

func (e RefClockError) Error() string {
	return fmt.Sprintf(
		"reset for PCI index %d didn't go through, refclk didn't reset (before: %d, after: %d)",
		e.InterfaceID, e.Before, e.After,
	)
}

// HostSyncTimeoutError means the hypervisor host never acknowledged
// completion of its side of the reset.
type HostSyncTimeoutError struct {
	Key string
}

func (e HostSyncTimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for host to clear control-store key %s", e.Key)
}

// RemoteProtocolError is a request-level or surfaced asynchronous failure
// from a rack-unit management endpoint.
type RemoteProtocolError struct {
	Unit     string
	Endpoint string
	Detail   string
}

func (e RemoteProtocolError) Error() string {
	return fmt.Sprintf("%s request %s returned with error: %s", e.Unit, e.Endpoint, e.Detail)
}

// BootTimeoutError means a rack unit did not finish booting in time.
type BootTimeoutError struct {
	Unit string
}

func (e BootTimeoutError) Error() string {
	return fmt.Sprintf("%s boot timeout, power cycle the galaxy and try again", e.Unit)
}

// ResetFailedError aggregates per-device reset failures. Failures is used
// as the process exit code by the CLI.
type ResetFailedError struct {
	Failures int
}

func (e ResetFailedError) Error() string {
	return fmt.Sprintf("reset failed for %d device(s)", e.Failures)
}

// ExitCode returns the process exit code for err: the failure count for
// ResetFailedError, 1 for any other error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var rf ResetFailedError
	if errors.As(err, &rf) && rf.Failures > 0 {
		return rf.Failures
	}

	return 1
}

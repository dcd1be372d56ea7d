package ports

import (
	"context"
	"time"
	"ttreset/pkg/devctl"
	"ttreset/pkg/models"
)

// ControlChannel is the port for the per-device reset ioctl channel.
type ControlChannel interface {
	// ResetIoctl opens the device node for id, issues the reset ioctl
	// carrying flag and reports whether the driver accepted it. The
	// device node is closed before return on every path.
	ResetIoctl(interfaceID int, flag devctl.ResetFlag) (bool, error)
}

// BusTopology is the port for sysfs-level device location and state.
type BusTopology interface {
	// ResolveBusAddress maps an interface id to its bus address. Must be
	// called before any mutation, the id does not survive a reset.
	ResolveBusAddress(interfaceID int) (models.BusAddress, error)
	// WaitForReappearance blocks until the device at bdf is re-enumerated
	// and its device node exists, returning the new interface id.
	WaitForReappearance(ctx context.Context, bdf models.BusAddress, timeout time.Duration) (int, error)
	// ReadConfigByte reads one byte of the device's PCI configuration
	// space at the given offset.
	ReadConfigByte(bdf models.BusAddress, offset int64) (byte, error)
}

// FirmwareChannel is the port for the firmware mailbox used by the oldest
// reset protocol. The transport is provided by an external collaborator.
type FirmwareChannel interface {
	// SendMessage posts a firmware message to the device.
	SendMessage(ctx context.Context, interfaceID int, msg FirmwareMessage) error
	// RefClockCounter samples the device's free-running reference clock.
	RefClockCounter(interfaceID int) (uint64, error)
}

// FirmwareMessage is one firmware mailbox request.
type FirmwareMessage struct {
	Code        uint32
	Arg0        uint32
	WaitForDone bool
}

// ControlStoreClient is the port for the shared host/guest control-plane
// key/value store used on virtualized hosts. Privilege elevation is an
// implementation detail of the client.
type ControlStoreClient interface {
	Write(ctx context.Context, key, value string) error
	Read(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
}

// HostInfo is the port for host platform facts consulted by the gates.
type HostInfo interface {
	// Platform returns the machine architecture string, e.g. x86_64.
	Platform() string
	// Hostname returns the host name.
	Hostname() string
	// DriverVersion returns the loaded driver version string, or an
	// error when no driver is present.
	DriverVersion() (string, error)
}

package devctl

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"unsafe"

	"golang.org/x/sys/unix"

	"ttreset/pkg/defaults"
	"ttreset/pkg/errors"
)

const (
	// ioctlMagic is the driver's ioctl class byte.
	ioctlMagic = 0xFA

	// ioctlResetDevice is the composed request number, constant for all
	// reset flags.
	ioctlResetDevice = (ioctlMagic << 8) | 6
)

// resetDeviceRequest is the fixed-layout ioctl payload: two input words
// (output buffer size, flag) followed by two output words (reserved,
// result code).
type resetDeviceRequest struct {
	OutputSize uint32
	Flags      uint32
	Reserved   uint32
	Result     uint32
}

// Channel issues reset ioctls against device nodes under DeviceDir.
type Channel struct {
	// DeviceDir overrides the device node directory, for tests.
	DeviceDir string
}

// New returns a Channel addressing the default device directory.
func New() *Channel {
	return &Channel{DeviceDir: defaults.DeviceDir}
}

// DevicePath returns the device node path for an interface id.
func (c *Channel) DevicePath(interfaceID int) string {
	return filepath.Join(c.DeviceDir, strconv.Itoa(interfaceID))
}

// ResetIoctl opens the device node for interfaceID, issues one reset ioctl
// carrying flag and returns true iff the driver reported success. The node
// is opened read-write with close-on-exec and closed on every exit path.
func (c *Channel) ResetIoctl(interfaceID int, flag ResetFlag) (bool, error) {
	path := c.DevicePath(interfaceID)

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return false, fmt.Errorf("%w: %s", errors.ErrDeviceNotFound, path)
		case err == unix.EACCES || err == unix.EPERM:
			return false, fmt.Errorf("%w: %s", errors.ErrPermissionDenied, path)
		default:
			return false, fmt.Errorf("opening %s: %w", path, err)
		}
	}
	defer unix.Close(fd)

	req := resetDeviceRequest{
		// Size of the two output words.
		OutputSize: 8,
		Flags:      uint32(flag),
	}

	if err := ioctl(fd, ioctlResetDevice, unsafe.Pointer(&req)); err != nil {
		return false, fmt.Errorf("reset ioctl %s on %s: %w", flag, path, err)
	}

	return req.Result == 0, nil
}

func ioctl(fd int, request uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(request), uintptr(arg))
	if errno != 0 {
		return errno
	}

	return nil
}

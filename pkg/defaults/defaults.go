package defaults

import "time"

const (
	// DeviceDir is the directory holding the per-device character nodes.
	DeviceDir = "/dev/tenstorrent"

	// PCIDeviceDir is the sysfs directory enumerating PCIe devices by bus address.
	PCIDeviceDir = "/sys/bus/pci/devices"

	// DriverBinding is the driver name devices are bound to under sysfs.
	DriverBinding = "tenstorrent"

	// DriverVersionFile holds the loaded kernel driver version.
	DriverVersionFile = "/sys/module/tenstorrent/version"

	// HypervisorTypeFile and HypervisorGuestTypeFile identify a virtualized host.
	HypervisorTypeFile      = "/sys/hypervisor/type"
	HypervisorGuestTypeFile = "/sys/hypervisor/guest_type"

	// MinDriverVersionLegacyReset is the oldest driver that supports any reset.
	MinDriverVersionLegacyReset = "1.26.0"

	// MinDriverVersionIoctlReset selects the ioctl-driven reset sequence.
	MinDriverVersionIoctlReset = "2.4.0"

	// MinDriverVersionIoctlPrecheck is the hard gate inside the ioctl sequence.
	MinDriverVersionIoctlPrecheck = "2.4.1"

	// ReappearanceTimeout bounds the wait for a device to re-enumerate.
	ReappearanceTimeout = 10 * time.Second

	// ReappearancePollInterval is the topology scan interval.
	ReappearancePollInterval = 100 * time.Millisecond

	// CoprocResetWait is the post-reset wait when the management
	// co-processor was reset. Its firmware update path can be slow.
	CoprocResetWait = 20 * time.Second

	// HostSyncTimeout bounds the wait for the hypervisor host to finish
	// its side of a device reset.
	HostSyncTimeout = 5 * time.Minute

	// HostSyncPollInterval is the control-store poll interval.
	HostSyncPollInterval = time.Second

	// MoboPort is the rack-unit management service port.
	MoboPort = 8000

	// MoboBootTimeout bounds the rack-unit boot-progress wait.
	MoboBootTimeout = 600 * time.Second

	// MoboRequestTimeout bounds a single rack-unit request.
	MoboRequestTimeout = 30 * time.Second

	// ConfigDir is where reset reports and config templates are written,
	// relative to the user home directory.
	ConfigDir = ".config/tenstorrent"

	// DataDirPerm is the permissions to use for data folders.
	DataDirPerm = 0o755

	// DataFilePerm is the permissions to use for data files.
	DataFilePerm = 0o644
)

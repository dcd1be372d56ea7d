package pcibus

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"ttreset/pkg/defaults"
	"ttreset/pkg/errors"
	"ttreset/pkg/log"
	"ttreset/pkg/models"
)

// Topology scans the sysfs PCI tree for devices bound to the driver. All
// filesystem access goes through afero so tests can run against an
// in-memory bus.
type Topology struct {
	fs           afero.Fs
	pciDir       string
	deviceDir    string
	driver       string
	pollInterval time.Duration
	sleep        func(time.Duration)
}

// NewTopology returns a Topology over the real sysfs tree.
func NewTopology() *Topology {
	return NewTopologyWithFs(afero.NewOsFs())
}

// NewTopologyWithFs returns a Topology over the supplied filesystem.
func NewTopologyWithFs(fs afero.Fs) *Topology {
	return &Topology{
		fs:           fs,
		pciDir:       defaults.PCIDeviceDir,
		deviceDir:    defaults.DeviceDir,
		driver:       defaults.DriverBinding,
		pollInterval: defaults.ReappearancePollInterval,
		sleep:        time.Sleep,
	}
}

// bindingPrefix is the name prefix of per-interface entries under a bus
// device's driver directory, e.g. tenstorrent!3.
func (t *Topology) bindingPrefix() string {
	return t.driver + "!"
}

// ResolveBusAddress maps an interface id to the bus address currently
// exposing it. The mapping is only valid until the device is reset.
func (t *Topology) ResolveBusAddress(interfaceID int) (models.BusAddress, error) {
	entries, err := afero.ReadDir(t.fs, t.pciDir)
	if err != nil {
		return models.BusAddress{}, fmt.Errorf("scanning %s: %w", t.pciDir, err)
	}

	marker := t.bindingPrefix() + strconv.Itoa(interfaceID)

	for _, entry := range entries {
		candidate := filepath.Join(t.pciDir, entry.Name(), t.driver, marker)

		ok, err := afero.Exists(t.fs, candidate)
		if err != nil {
			return models.BusAddress{}, fmt.Errorf("checking %s: %w", candidate, err)
		}

		if ok {
			return models.ParseBusAddress(entry.Name())
		}
	}

	return models.BusAddress{}, fmt.Errorf("%w: no bus device exposes interface %d", errors.ErrDeviceNotFound, interfaceID)
}

// WaitForReappearance polls the bus device directory for bdf until the
// driver re-binds and the device node exists, returning the new interface
// id. The node existence check guards against the enumeration race between
// bus attach and device-node creation.
func (t *Topology) WaitForReappearance(ctx context.Context, bdf models.BusAddress, timeout time.Duration) (int, error) {
	logger := log.GetLogger(ctx)
	logger.Infof("Waiting for device at %s to reappear on the PCI bus...", bdf)

	deadline := time.Now().Add(timeout)

	for {
		id, found, err := t.scanForInterface(bdf)
		if err != nil {
			return 0, err
		}

		if found {
			return id, nil
		}

		if time.Now().After(deadline) {
			return 0, errors.ReappearanceTimeoutError{BusAddress: bdf.String()}
		}

		t.sleep(t.pollInterval)
	}
}

func (t *Topology) scanForInterface(bdf models.BusAddress) (int, bool, error) {
	driverDir := filepath.Join(t.pciDir, bdf.String(), t.driver)

	entries, err := afero.ReadDir(t.fs, driverDir)
	if err != nil {
		// The directory is absent while the device is off the bus.
		return 0, false, nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, t.bindingPrefix()) {
			continue
		}

		id, err := strconv.Atoi(strings.TrimPrefix(name, t.bindingPrefix()))
		if err != nil {
			continue
		}

		nodeExists, err := afero.Exists(t.fs, filepath.Join(t.deviceDir, strconv.Itoa(id)))
		if err != nil {
			return 0, false, fmt.Errorf("checking device node for interface %d: %w", id, err)
		}

		if nodeExists {
			return id, true, nil
		}
	}

	return 0, false, nil
}

// ReadConfigByte reads one byte of PCI configuration space for bdf.
func (t *Topology) ReadConfigByte(bdf models.BusAddress, offset int64) (byte, error) {
	path := filepath.Join(t.pciDir, bdf.String(), "config")

	file, err := t.fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening config space %s: %w", path, err)
	}
	defer file.Close()

	buf := make([]byte, 1)
	if _, err := file.ReadAt(buf, offset); err != nil {
		return 0, fmt.Errorf("reading config space %s at offset %d: %w", path, offset, err)
	}

	return buf[0], nil
}

// Package reset drives the multi-phase reset state machine over a batch of
// accelerator devices. One engine is parameterized by a protocol variant
// selected once per operation by the driver capability gate.
package reset

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spf13/afero"

	"ttreset/pkg/defaults"
	"ttreset/pkg/errors"
	"ttreset/pkg/hypervisor"
	"ttreset/pkg/log"
	"ttreset/pkg/models"
	"ttreset/pkg/ports"
	"ttreset/pkg/system"
	"ttreset/pkg/vergate"
)

// Protocol is the reset protocol variant driving one operation.
type Protocol string

const (
	// ProtocolIoctl is the modern flag-based ioctl sequence with hotplug
	// reappearance and post-reset verification.
	ProtocolIoctl Protocol = "ioctl"
	// ProtocolConfigSpace is the older ioctl sequence that polls PCI
	// config space instead of waiting for re-enumeration.
	ProtocolConfigSpace Protocol = "config-space"
	// ProtocolFirmware is the oldest sequence, driven by firmware
	// mailbox messages and verified by the reference clock.
	ProtocolFirmware Protocol = "firmware"
)

// Sequencer runs reset operations against a collection of ports.
type Sequencer struct {
	ports           ports.Collection
	fs              afero.Fs
	syncPoint       *hypervisor.SyncPoint
	reappearTimeout time.Duration
}

// New returns a Sequencer over the supplied ports. fs is consulted for
// hypervisor detection. The control store may be nil on bare-metal hosts.
func New(collection ports.Collection, fs afero.Fs) *Sequencer {
	if collection.Clock == nil {
		collection.Clock = time.Now
	}

	if collection.Sleep == nil {
		collection.Sleep = time.Sleep
	}

	s := &Sequencer{
		ports:           collection,
		fs:              fs,
		reappearTimeout: defaults.ReappearanceTimeout,
	}

	if collection.ControlStore != nil {
		s.syncPoint = hypervisor.NewSyncPoint(collection.ControlStore)
	}

	return s
}

// SelectProtocol applies the capability gate once: drivers at or above the
// ioctl minimum route to the modern protocol, older drivers fall back to
// the generation's legacy variant.
func (s *Sequencer) SelectProtocol(generation models.Generation) (Protocol, error) {
	version, err := s.ports.Host.DriverVersion()
	if err != nil {
		return "", err
	}

	ok, err := vergate.AtLeast(version, defaults.MinDriverVersionIoctlReset)
	if err != nil {
		return "", fmt.Errorf("parsing driver version: %w", err)
	}

	if ok {
		return ProtocolIoctl, nil
	}

	if generation == models.GenerationBlackhole {
		return ProtocolConfigSpace, nil
	}

	return ProtocolFirmware, nil
}

// Reset performs one reset operation over the request's devices. Devices
// are deduplicated; an empty set is a no-op. Per-device failures are
// reported in the outcomes, and any fatal class aborts with an error whose
// exit code reflects the failure count where applicable.
func (s *Sequencer) Reset(ctx context.Context, req models.ResetRequest) ([]models.ResetOutcome, error) {
	ids := req.UniqueDeviceIDs()
	if len(ids) == 0 {
		return nil, nil
	}

	protocol, err := s.SelectProtocol(req.Generation)
	if err != nil {
		return nil, err
	}

	logger := log.GetLogger(ctx).WithField("protocol", string(protocol))
	ctx = log.WithLogger(ctx, logger)

	switch protocol {
	case ProtocolIoctl:
		return s.runIoctl(ctx, ids, req)
	case ProtocolConfigSpace:
		logger.Warn("Notice: using legacy config-space reset. Upgrade tt-kmd to 2.4.0 or newer for the updated sequence.")

		return s.runConfigSpace(ctx, ids, req)
	case ProtocolFirmware:
		logger.Warn("Notice: using legacy firmware-message reset. Upgrade tt-kmd to 2.4.0 or newer for the updated sequence.")

		return s.runFirmware(ctx, ids, req)
	default:
		return nil, fmt.Errorf("unknown reset protocol %q", protocol)
	}
}

// precheck applies the gates shared by every protocol: the driver version
// minimum for the operation and the host platform. Arm hosts abort before
// any device mutation, their bus-rescan behavior makes link reset unsafe.
func (s *Sequencer) precheck(operation, minimumVersion string) error {
	version, err := s.ports.Host.DriverVersion()
	if err != nil {
		return err
	}

	if err := vergate.Check(operation, version, minimumVersion); err != nil {
		return err
	}

	if system.IsArmPlatform(s.ports.Host.Platform()) {
		return errors.ErrUnsupportedPlatform
	}

	return nil
}

// captureBusAddresses resolves every device's bus address before any
// mutation. No handle to the device is retained afterward, so no open
// descriptor can block the forthcoming bus-level state change.
func (s *Sequencer) captureBusAddresses(ids []int) (map[int]models.BusAddress, error) {
	addrs := make(map[int]models.BusAddress, len(ids))

	for _, id := range ids {
		bdf, err := s.ports.Topology.ResolveBusAddress(id)
		if err != nil {
			return nil, fmt.Errorf("resolving bus address for interface %d: %w", id, err)
		}

		addrs[id] = bdf
	}

	return addrs, nil
}

// PostResetWait is the settle window after the ASIC reset is issued:
// max(2s, 0.4s per device) for a standard reset, a fixed longer window for
// a co-processor reset.
func PostResetWait(deviceCount int, coproc bool, override time.Duration) time.Duration {
	if coproc {
		if override > 0 {
			return override
		}

		return defaults.CoprocResetWait
	}

	seconds := math.Max(2, 0.4*float64(deviceCount))

	return time.Duration(seconds * float64(time.Second))
}

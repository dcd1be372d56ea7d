package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Generation identifies the board family, which selects the fallback reset
// protocol on old drivers.
type Generation string

const (
	// GenerationWormhole boards fall back to the firmware-message reset.
	GenerationWormhole Generation = "wh"
	// GenerationBlackhole boards fall back to the config-space reset.
	GenerationBlackhole Generation = "bh"
)

var bdfRe = regexp.MustCompile(`^([0-9a-fA-F]{4}):([0-9a-fA-F]{2}):([0-9a-fA-F]{2})\.([0-7])$`)

// BusAddress is the domain:bus:device.function identifier of a PCIe device.
// It is stable across ioctl-level interface id reassignment, so it is
// captured before a reset and used afterward to re-locate the device.
type BusAddress struct {
	Domain   string
	Bus      string
	Device   string
	Function string
}

// ParseBusAddress parses a bdf string of the form 0000:c3:00.0.
func ParseBusAddress(s string) (BusAddress, error) {
	m := bdfRe.FindStringSubmatch(s)
	if m == nil {
		return BusAddress{}, fmt.Errorf("malformed PCI bus address %q", s)
	}

	return BusAddress{Domain: m[1], Bus: m[2], Device: m[3], Function: m[4]}, nil
}

// String returns the canonical dddd:bb:dd.f representation.
func (a BusAddress) String() string {
	return fmt.Sprintf("%s:%s:%s.%s", a.Domain, a.Bus, a.Device, a.Function)
}

// ResetRequest describes one reset operation over a batch of devices.
type ResetRequest struct {
	// DeviceIDs are the ioctl-level interface ids to reset. Duplicates
	// are removed before processing.
	DeviceIDs []int
	// TriggerCoprocessorReset also resets the onboard management
	// co-processor, which requires a much longer settle window.
	TriggerCoprocessorReset bool
	// Silent suppresses start/finish progress output.
	Silent bool
	// PostResetDelayOverride replaces the default co-processor settle
	// window when non-zero.
	PostResetDelayOverride time.Duration
	// Generation selects the fallback protocol on pre-ioctl drivers.
	Generation Generation
}

// UniqueDeviceIDs returns the request's device ids deduplicated and sorted.
func (r ResetRequest) UniqueDeviceIDs() []int {
	seen := make(map[int]struct{}, len(r.DeviceIDs))
	ids := make([]int, 0, len(r.DeviceIDs))

	for _, id := range r.DeviceIDs {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}

// ResetOutcome is the per-device result of a reset operation.
type ResetOutcome struct {
	// InterfaceID is the id the device was addressed by when the
	// operation started.
	InterfaceID int `json:"interface_id"`
	// NewInterfaceID is the id assigned after re-enumeration. Equal to
	// InterfaceID on protocols that do not re-enumerate.
	NewInterfaceID int `json:"new_interface_id"`
	// BusAddress captured before the reset, empty when unresolved.
	BusAddress string `json:"bus_address,omitempty"`
	// Completed is true when every phase finished for this device.
	Completed bool `json:"completed"`
	// Detail carries the failure description for incomplete resets.
	Detail string `json:"detail,omitempty"`
}

// MoboDescriptor describes one rack-unit endpoint to orchestrate.
type MoboDescriptor struct {
	// Address is the hostname or IP of the unit's management service.
	Address string `json:"mobo"`
	// RetimerPorts lists retimer ports to boot, group:id form.
	RetimerPorts []string `json:"credo,omitempty"`
	// DisabledPorts lists ports to leave disabled during retimer boot.
	DisabledPorts []string `json:"disabled_ports,omitempty"`
	// HostLinkDeviceIDs are host-side interface ids whose links must be
	// reset after module shutdown.
	HostLinkDeviceIDs []int `json:"nb_host_pci_idx,omitempty"`
}

// ResetConfig is the on-disk reset configuration document. The JSON field
// names match what older tools emit, so existing configs load unchanged;
// YAML input is accepted through the same tags.
type ResetConfig struct {
	Time            string           `json:"time,omitempty"`
	HostName        string           `json:"host_name,omitempty"`
	LinkResetIDs    []int            `json:"wh_link_reset,omitempty"`
	ReinitDevices   bool             `json:"re_init_devices,omitempty"`
	MoboResets      []MoboDescriptor `json:"wh_mobo_reset,omitempty"`
	DisableSerial   bool             `json:"disable_serial_report,omitempty"`
	DisableVersions bool             `json:"disable_sw_version_report,omitempty"`
}

// PlaceholderMoboName marks template entries that were never filled in;
// such entries are skipped during orchestration.
const PlaceholderMoboName = "MOBO NAME"

// ActiveMobos returns the descriptors that have been filled in.
func (c ResetConfig) ActiveMobos() []MoboDescriptor {
	active := make([]MoboDescriptor, 0, len(c.MoboResets))

	for _, m := range c.MoboResets {
		if m.Address == "" || strings.Contains(m.Address, PlaceholderMoboName) {
			continue
		}

		active = append(active, m)
	}

	return active
}

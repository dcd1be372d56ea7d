// Package hypervisor coordinates device resets with a virtualization host.
// On an HVM guest the host must be told when an ASIC-level reset starts so
// it can replay its side of the PCIe handling, and the guest must wait for
// the host to finish before trusting the device again.
package hypervisor

import (
	"strings"

	"github.com/spf13/afero"

	"ttreset/pkg/defaults"
)

const (
	hypervisorTypeXen = "xen"
	guestTypeHVM      = "HVM"
)

// IsHVMGuest reports whether the host is a fully-virtualized Xen guest.
// Both indicators must match, a PV guest handles device resets natively.
func IsHVMGuest(fs afero.Fs) bool {
	hvType, err := readTrimmed(fs, defaults.HypervisorTypeFile)
	if err != nil || hvType != hypervisorTypeXen {
		return false
	}

	guestType, err := readTrimmed(fs, defaults.HypervisorGuestTypeFile)
	if err != nil {
		return false
	}

	return guestType == guestTypeHVM
}

func readTrimmed(fs afero.Fs, path string) (string, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(raw)), nil
}

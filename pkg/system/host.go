package system

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"

	"ttreset/pkg/defaults"
	"ttreset/pkg/errors"
)

// Host reports platform facts about the local machine.
type Host struct {
	fs afero.Fs
}

// NewHost returns a Host backed by the real filesystem.
func NewHost() *Host {
	return NewHostWithFs(afero.NewOsFs())
}

// NewHostWithFs returns a Host reading version files from fs.
func NewHostWithFs(fs afero.Fs) *Host {
	return &Host{fs: fs}
}

// Platform returns the machine hardware name, e.g. x86_64 or aarch64.
func (h *Host) Platform() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "unknown"
	}

	return charsToString(uts.Machine[:])
}

// Hostname returns the host name.
func (h *Host) Hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}

	return name
}

// DriverVersion reads the loaded driver version from sysfs.
func (h *Host) DriverVersion() (string, error) {
	raw, err := afero.ReadFile(h.fs, defaults.DriverVersionFile)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errors.ErrDriverNotLoaded, defaults.DriverVersionFile)
	}

	version := strings.TrimSpace(string(raw))
	if version == "" {
		return "", fmt.Errorf("%w: version file is empty", errors.ErrDriverNotLoaded)
	}

	return version, nil
}

// IsArmPlatform reports whether platform names an ARM-class machine, on
// which PCIe bus rescans make link resets unsafe.
func IsArmPlatform(platform string) bool {
	lower := strings.ToLower(platform)

	return strings.HasPrefix(lower, "arm") || strings.HasPrefix(lower, "aarch")
}

func charsToString(chars []byte) string {
	end := len(chars)

	for i, c := range chars {
		if c == 0 {
			end = i

			break
		}
	}

	return string(chars[:end])
}

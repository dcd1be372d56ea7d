package hypervisor_test

import (
	"testing"

	g "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"ttreset/pkg/hypervisor"
	"ttreset/pkg/models"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	g.Expect(afero.WriteFile(fs, path, []byte(content), 0o644)).To(g.Succeed())
}

func TestIsHVMGuest(t *testing.T) {
	g.RegisterTestingT(t)

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/sys/hypervisor/type", "xen\n")
	writeFile(t, fs, "/sys/hypervisor/guest_type", "HVM\n")

	g.Expect(hypervisor.IsHVMGuest(fs)).To(g.BeTrue())
}

func TestIsHVMGuest_paravirtualized(t *testing.T) {
	g.RegisterTestingT(t)

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/sys/hypervisor/type", "xen\n")
	writeFile(t, fs, "/sys/hypervisor/guest_type", "PV\n")

	g.Expect(hypervisor.IsHVMGuest(fs)).To(g.BeFalse())
}

func TestIsHVMGuest_bareMetal(t *testing.T) {
	g.RegisterTestingT(t)

	g.Expect(hypervisor.IsHVMGuest(afero.NewMemMapFs())).To(g.BeFalse())
}

func TestIsHVMGuest_otherHypervisor(t *testing.T) {
	g.RegisterTestingT(t)

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/sys/hypervisor/type", "kvm\n")
	writeFile(t, fs, "/sys/hypervisor/guest_type", "HVM\n")

	g.Expect(hypervisor.IsHVMGuest(fs)).To(g.BeFalse())
}

func TestResetKey(t *testing.T) {
	g.RegisterTestingT(t)

	bdf, err := models.ParseBusAddress("0000:c3:00.0")
	g.Expect(err).NotTo(g.HaveOccurred())

	g.Expect(hypervisor.ResetKey(bdf)).To(g.Equal("pci_hard_reset/c3_00-0"))
}

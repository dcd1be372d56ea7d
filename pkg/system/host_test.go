package system_test

import (
	"testing"

	g "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"ttreset/pkg/errors"
	"ttreset/pkg/system"
)

func TestIsArmPlatform(t *testing.T) {
	g.RegisterTestingT(t)

	g.Expect(system.IsArmPlatform("aarch64")).To(g.BeTrue())
	g.Expect(system.IsArmPlatform("armv7l")).To(g.BeTrue())
	g.Expect(system.IsArmPlatform("AArch64")).To(g.BeTrue())
	g.Expect(system.IsArmPlatform("x86_64")).To(g.BeFalse())
	g.Expect(system.IsArmPlatform("riscv64")).To(g.BeFalse())
}

func TestDriverVersion(t *testing.T) {
	g.RegisterTestingT(t)

	fs := afero.NewMemMapFs()
	g.Expect(afero.WriteFile(fs, "/sys/module/tenstorrent/version", []byte("2.4.1\n"), 0o644)).To(g.Succeed())

	version, err := system.NewHostWithFs(fs).DriverVersion()

	g.Expect(err).NotTo(g.HaveOccurred())
	g.Expect(version).To(g.Equal("2.4.1"))
}

func TestDriverVersion_notLoaded(t *testing.T) {
	g.RegisterTestingT(t)

	_, err := system.NewHostWithFs(afero.NewMemMapFs()).DriverVersion()

	g.Expect(err).To(g.MatchError(errors.ErrDriverNotLoaded))
}

func TestDriverVersion_emptyFile(t *testing.T) {
	g.RegisterTestingT(t)

	fs := afero.NewMemMapFs()
	g.Expect(afero.WriteFile(fs, "/sys/module/tenstorrent/version", []byte("\n"), 0o644)).To(g.Succeed())

	_, err := system.NewHostWithFs(fs).DriverVersion()

	g.Expect(err).To(g.MatchError(errors.ErrDriverNotLoaded))
}

package reset_test

import (
	"encoding/json"
	"testing"

	g "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"ttreset/pkg/models"
	"ttreset/pkg/reset"
)

func TestReportSave(t *testing.T) {
	g.RegisterTestingT(t)

	fs := afero.NewMemMapFs()

	report := reset.NewReport("testhost", models.ResetConfig{LinkResetIDs: []int{0, 1}}, []models.ResetOutcome{
		{InterfaceID: 0, NewInterfaceID: 0, Completed: true},
	})

	path, err := report.Save(fs, "/reports/run.json")

	g.Expect(err).NotTo(g.HaveOccurred())
	g.Expect(path).To(g.Equal("/reports/run.json"))

	raw, err := afero.ReadFile(fs, path)
	g.Expect(err).NotTo(g.HaveOccurred())

	loaded := reset.Report{}
	g.Expect(json.Unmarshal(raw, &loaded)).To(g.Succeed())
	g.Expect(loaded.HostName).To(g.Equal("testhost"))
	g.Expect(loaded.ID).To(g.Equal(report.ID))
	g.Expect(loaded.Outcomes).To(g.HaveLen(1))
	g.Expect(loaded.Outcomes[0].Completed).To(g.BeTrue())
}

func TestGenerateConfigTemplate(t *testing.T) {
	g.RegisterTestingT(t)

	fs := afero.NewMemMapFs()

	path, err := reset.GenerateConfigTemplate(fs, "testhost", []int{0, 1, 2, 3}, "/cfg/template.json")

	g.Expect(err).NotTo(g.HaveOccurred())

	cfg, err := reset.LoadConfig(fs, path)
	g.Expect(err).NotTo(g.HaveOccurred())
	g.Expect(cfg.HostName).To(g.Equal("testhost"))
	g.Expect(cfg.LinkResetIDs).To(g.Equal([]int{0, 1, 2, 3}))

	// Placeholder entries must round-trip as placeholders, so a template
	// fed back unedited resets no rack units.
	g.Expect(cfg.MoboResets).To(g.HaveLen(2))
	g.Expect(cfg.ActiveMobos()).To(g.BeEmpty())
}

package vergate_test

import (
	"testing"

	g "github.com/onsi/gomega"

	"ttreset/pkg/errors"
	"ttreset/pkg/vergate"
)

func TestParse_tolerantForms(t *testing.T) {
	g.RegisterTestingT(t)

	for input, want := range map[string]string{
		"1.34":              "1.34.0",
		"1.34.0":            "1.34.0",
		"1.34.1-alpha":      "1.34.1",
		"1.2.3+build456":    "1.2.3",
		"1.4.0-rc1+build42": "1.4.0",
		"2":                 "2.0.0",
	} {
		version, err := vergate.Parse(input)

		g.Expect(err).NotTo(g.HaveOccurred(), "input %q", input)
		g.Expect(version.String()).To(g.Equal(want), "input %q", input)
	}
}

func TestParse_rejectsGarbage(t *testing.T) {
	g.RegisterTestingT(t)

	for _, input := range []string{"", "abc", "1.x.0"} {
		_, err := vergate.Parse(input)

		g.Expect(err).To(g.HaveOccurred(), "input %q", input)
	}
}

func TestAtLeast_boundary(t *testing.T) {
	g.RegisterTestingT(t)

	// Exactly equal satisfies the gate.
	ok, err := vergate.AtLeast("2.4.0", "2.4.0")
	g.Expect(err).NotTo(g.HaveOccurred())
	g.Expect(ok).To(g.BeTrue())

	ok, err = vergate.AtLeast("2.3.9", "2.4.0")
	g.Expect(err).NotTo(g.HaveOccurred())
	g.Expect(ok).To(g.BeFalse())

	ok, err = vergate.AtLeast("3.0.0", "2.4.0")
	g.Expect(err).NotTo(g.HaveOccurred())
	g.Expect(ok).To(g.BeTrue())
}

func TestCheck_returnsGateError(t *testing.T) {
	g.RegisterTestingT(t)

	err := vergate.Check("reset", "1.26.0", "2.4.1")

	g.Expect(err).To(g.HaveOccurred())

	gateErr, ok := err.(errors.CapabilityGateError)
	g.Expect(ok).To(g.BeTrue())
	g.Expect(gateErr.Operation).To(g.Equal("reset"))
	g.Expect(gateErr.Minimum).To(g.Equal("2.4.1"))
}

func TestCheck_satisfied(t *testing.T) {
	g.RegisterTestingT(t)

	g.Expect(vergate.Check("reset", "2.4.1", "2.4.1")).To(g.Succeed())
}

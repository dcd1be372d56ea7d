package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	g "github.com/onsi/gomega"

	"ttreset/pkg/errors"
)

func TestExitCode(t *testing.T) {
	g.RegisterTestingT(t)

	g.Expect(errors.ExitCode(nil)).To(g.Equal(0))
	g.Expect(errors.ExitCode(stderrors.New("boom"))).To(g.Equal(1))
	g.Expect(errors.ExitCode(errors.ResetFailedError{Failures: 3})).To(g.Equal(3))
	g.Expect(errors.ExitCode(fmt.Errorf("wrapped: %w", errors.ResetFailedError{Failures: 2}))).To(g.Equal(2))
}

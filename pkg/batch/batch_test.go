package batch_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/hashicorp/go-multierror"
	g "github.com/onsi/gomega"

	"ttreset/pkg/batch"
)

func TestRun_allSucceed(t *testing.T) {
	g.RegisterTestingT(t)

	var mu sync.Mutex
	seen := map[int]bool{}

	err := batch.Run([]int{0, 1, 2}, func(item int) error {
		mu.Lock()
		defer mu.Unlock()
		seen[item] = true

		return nil
	})

	g.Expect(err).NotTo(g.HaveOccurred())
	g.Expect(seen).To(g.HaveLen(3))
}

func TestRun_failureDoesNotStopOthers(t *testing.T) {
	g.RegisterTestingT(t)

	errItem2 := errors.New("item 2 failed")

	var mu sync.Mutex
	completed := map[int]bool{}

	err := batch.Run([]int{1, 2, 3}, func(item int) error {
		mu.Lock()
		completed[item] = true
		mu.Unlock()

		if item == 2 {
			return errItem2
		}

		return nil
	})

	g.Expect(completed).To(g.HaveLen(3))
	g.Expect(err).To(g.HaveOccurred())

	var merr *multierror.Error
	g.Expect(errors.As(err, &merr)).To(g.BeTrue())
	g.Expect(merr.Errors).To(g.HaveLen(1))
	g.Expect(merr.Errors[0]).To(g.MatchError(errItem2))
}

func TestRun_aggregatesInItemOrder(t *testing.T) {
	g.RegisterTestingT(t)

	err := batch.Run([]string{"a", "b", "c"}, func(item string) error {
		if item == "b" {
			return nil
		}

		return errors.New(item)
	})

	var merr *multierror.Error
	g.Expect(errors.As(err, &merr)).To(g.BeTrue())
	g.Expect(merr.Errors).To(g.HaveLen(2))
	g.Expect(merr.Errors[0].Error()).To(g.Equal("a"))
	g.Expect(merr.Errors[1].Error()).To(g.Equal("c"))
}

func TestRun_capturesPanic(t *testing.T) {
	g.RegisterTestingT(t)

	err := batch.Run([]int{1}, func(int) error {
		panic("boom")
	})

	g.Expect(err).To(g.HaveOccurred())
	g.Expect(err.Error()).To(g.ContainSubstring("worker panic: boom"))
}

func TestRun_emptyInput(t *testing.T) {
	g.RegisterTestingT(t)

	g.Expect(batch.Run(nil, func(int) error { return nil })).To(g.Succeed())
}

package hypervisor

import (
	"context"
	"fmt"
	"time"

	"ttreset/pkg/batch"
	"ttreset/pkg/defaults"
	"ttreset/pkg/errors"
	"ttreset/pkg/log"
	"ttreset/pkg/models"
	"ttreset/pkg/ports"
)

// SyncPoint exchanges reset-start/reset-complete signals with the
// hypervisor host through a shared control store.
type SyncPoint struct {
	store ports.ControlStoreClient

	// Timeout bounds the wait for the host to clear each marker.
	Timeout time.Duration
	// PollInterval is the control-store poll interval.
	PollInterval time.Duration
	// Sleep is swapped out in tests.
	Sleep func(time.Duration)
}

// NewSyncPoint returns a SyncPoint over the supplied control store.
func NewSyncPoint(store ports.ControlStoreClient) *SyncPoint {
	return &SyncPoint{
		store:        store,
		Timeout:      defaults.HostSyncTimeout,
		PollInterval: defaults.HostSyncPollInterval,
		Sleep:        time.Sleep,
	}
}

// ResetKey derives the per-device control-store key from a bus address.
// Keys are disjoint per device, so concurrent watchers never contend.
func ResetKey(bdf models.BusAddress) string {
	return fmt.Sprintf("pci_hard_reset/%s_%s-%s", bdf.Bus, bdf.Device, bdf.Function)
}

// SignalResetStart writes the reset-starting marker for every device. A
// write failure is logged and swallowed: the reset proceeds anyway and the
// host is expected to notice the ASIC-level bus event on its own.
func (s *SyncPoint) SignalResetStart(ctx context.Context, addrs []models.BusAddress) {
	logger := log.GetLogger(ctx)

	for _, bdf := range addrs {
		key := ResetKey(bdf)

		if err := s.store.Write(ctx, key, "1"); err != nil {
			logger.Warnf("Failed to signal reset start for %s (key %s): %v", bdf, key, err)
		}
	}
}

// AwaitHostCompletion waits, one goroutine per device, for the host to
// remove each device's marker. All watchers run to completion and their
// timeouts are aggregated, so every stalled device is reported.
func (s *SyncPoint) AwaitHostCompletion(ctx context.Context, addrs []models.BusAddress) error {
	logger := log.GetLogger(ctx)
	logger.Info("Waiting for hypervisor host to complete reset handling...")

	return batch.Run(addrs, func(bdf models.BusAddress) error {
		return s.awaitOne(ctx, bdf)
	})
}

func (s *SyncPoint) awaitOne(ctx context.Context, bdf models.BusAddress) error {
	key := ResetKey(bdf)
	deadline := time.Now().Add(s.Timeout)

	for {
		present, err := s.store.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("polling control store for %s: %w", key, err)
		}

		if !present {
			return nil
		}

		if time.Now().After(deadline) {
			return errors.HostSyncTimeoutError{Key: key}
		}

		s.Sleep(s.PollInterval)
	}
}

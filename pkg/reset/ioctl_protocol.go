package reset

import (
	"context"
	"fmt"

	"ttreset/pkg/defaults"
	"ttreset/pkg/devctl"
	"ttreset/pkg/errors"
	"ttreset/pkg/hypervisor"
	"ttreset/pkg/log"
	"ttreset/pkg/models"
)

// runIoctl is the modern sequence: link reset, ASIC (or co-processor)
// reset, hotplug reappearance, post-reset verification. Within the batch
// every device finishes a phase before any device enters the next one.
func (s *Sequencer) runIoctl(ctx context.Context, ids []int, req models.ResetRequest) ([]models.ResetOutcome, error) {
	logger := log.GetLogger(ctx)

	if err := s.precheck("reset", defaults.MinDriverVersionIoctlPrecheck); err != nil {
		return nil, err
	}

	if !req.Silent {
		logger.Infof("Starting reset on devices at PCI indices: %v", ids)
	}

	addrs, err := s.captureBusAddresses(ids)
	if err != nil {
		return nil, err
	}

	// LINK_RESET. A failed secondary bus reset is a warning, the ASIC
	// reset is attempted regardless.
	for _, id := range ids {
		ok, err := s.ports.Control.ResetIoctl(id, devctl.ResetPCIeLink)
		if err != nil || !ok {
			logger.Warnf("Warning: secondary bus reset not completed for device at PCI index %d. Continuing with reset.", id)
		}
	}

	hvmGuest := hypervisor.IsHVMGuest(s.fs) && s.syncPoint != nil
	if hvmGuest {
		s.syncPoint.SignalResetStart(ctx, busAddressList(ids, addrs))
	}

	// ASIC_OR_COPROC_RESET.
	resetFlag := devctl.AsicReset
	if req.TriggerCoprocessorReset {
		resetFlag = devctl.AsicDMCReset
	}

	// A rejected ASIC reset means nothing was reset; waiting for the
	// device to re-enumerate would only mask it as a timeout.
	for _, id := range ids {
		ok, err := s.ports.Control.ResetIoctl(id, resetFlag)
		if err != nil {
			return nil, fmt.Errorf("issuing %s to interface %d: %w", resetFlag, id, err)
		}

		if !ok {
			return nil, errors.IoctlFailureError{Flag: resetFlag.String(), InterfaceID: id}
		}
	}

	if hvmGuest {
		if err := s.syncPoint.AwaitHostCompletion(ctx, busAddressList(ids, addrs)); err != nil {
			return nil, err
		}
	}

	wait := PostResetWait(len(ids), req.TriggerCoprocessorReset, req.PostResetDelayOverride)
	logger.Infof("Waiting %s for potential hotplug removal.", wait)
	s.ports.Sleep(wait)

	outcomes := make([]models.ResetOutcome, 0, len(ids))

	// HOTPLUG_WAIT + POST_RESET_VERIFY. Both failure classes are fatal:
	// a device that never returns, or returns unverified, cannot be
	// handed back to callers.
	for _, id := range ids {
		bdf := addrs[id]

		newID, err := s.ports.Topology.WaitForReappearance(ctx, bdf, s.reappearTimeout)
		if err != nil {
			return outcomes, err
		}

		ok, err := s.ports.Control.ResetIoctl(newID, devctl.PostReset)
		if err != nil {
			return outcomes, fmt.Errorf("post-reset verification for interface %d: %w", newID, err)
		}

		if !ok {
			return outcomes, errors.PostResetVerificationError{InterfaceID: id}
		}

		logger.Infof("Reset successfully completed for device at PCI index %d.", id)
		outcomes = append(outcomes, models.ResetOutcome{
			InterfaceID:    id,
			NewInterfaceID: newID,
			BusAddress:     bdf.String(),
			Completed:      true,
		})
	}

	if !req.Silent {
		logger.Infof("Finishing reset on devices at PCI indices: %v", ids)
	}

	return outcomes, nil
}

func busAddressList(ids []int, addrs map[int]models.BusAddress) []models.BusAddress {
	list := make([]models.BusAddress, 0, len(ids))

	for _, id := range ids {
		list = append(list, addrs[id])
	}

	return list
}

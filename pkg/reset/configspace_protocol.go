package reset

import (
	"context"
	"fmt"
	"time"

	"ttreset/pkg/defaults"
	"ttreset/pkg/devctl"
	"ttreset/pkg/errors"
	"ttreset/pkg/firmware"
	"ttreset/pkg/log"
	"ttreset/pkg/models"
	"ttreset/pkg/ports"
)

const (
	// commandMemoryOffset is the config-space byte holding the reset
	// status: bit 1 clear means the reset completed.
	commandMemoryOffset int64 = 4

	configPollInterval = time.Millisecond
)

// runConfigSpace is the legacy sequence for boards whose driver predates
// the hotplug-capable ioctls: trigger the reset, then poll each device's
// PCI config space until the status bit clears.
func (s *Sequencer) runConfigSpace(ctx context.Context, ids []int, req models.ResetRequest) ([]models.ResetOutcome, error) {
	logger := log.GetLogger(ctx)

	if err := s.precheck("board reset", defaults.MinDriverVersionLegacyReset); err != nil {
		return nil, err
	}

	if !req.Silent {
		logger.Infof("Starting PCI link reset on devices at PCI indices: %v", ids)
	}

	addrs, err := s.captureBusAddresses(ids)
	if err != nil {
		return nil, err
	}

	wait := firmware.PostResetMessageWait

	for _, id := range ids {
		if req.TriggerCoprocessorReset {
			// A full co-processor firmware upgrade can take a while.
			wait = firmware.CoprocMessageWait

			if s.ports.Firmware == nil {
				return nil, errors.ErrFirmwareChannelUnset
			}

			msg := ports.FirmwareMessage{Code: firmware.MsgTriggerReset, Arg0: firmware.TriggerResetCoprocArg}
			if err := s.ports.Firmware.SendMessage(ctx, id, msg); err != nil {
				return nil, fmt.Errorf("triggering co-processor reset on interface %d: %w", id, err)
			}
		} else {
			if _, err := s.ports.Control.ResetIoctl(id, devctl.ConfigWrite); err != nil {
				return nil, fmt.Errorf("issuing %s to interface %d: %w", devctl.ConfigWrite, id, err)
			}
		}
	}

	if req.PostResetDelayOverride > 0 {
		wait = req.PostResetDelayOverride
	}

	logger.Infof("Waiting for up to %s for asic to come back after reset", wait)

	complete := s.pollResetBits(ids, addrs, wait)

	outcomes := make([]models.ResetOutcome, 0, len(ids))
	failures := 0

	for _, id := range ids {
		outcome := models.ResetOutcome{
			InterfaceID:    id,
			NewInterfaceID: id,
			BusAddress:     addrs[id].String(),
			Completed:      complete[id],
		}

		if complete[id] {
			logger.Infof("Config space reset completed for device %d", id)
		} else {
			logger.Errorf("Config space reset not completed for device %d!", id)

			outcome.Detail = "config space reset bit never cleared"
			failures++
		}

		outcomes = append(outcomes, outcome)
	}

	// State is restored on every device regardless of per-device failure.
	for _, id := range ids {
		if _, err := s.ports.Control.ResetIoctl(id, devctl.RestoreState); err != nil {
			return outcomes, fmt.Errorf("issuing %s to interface %d: %w", devctl.RestoreState, id, err)
		}
	}

	if failures > 0 {
		return outcomes, errors.ResetFailedError{Failures: failures}
	}

	if !req.Silent {
		logger.Infof("Finishing PCI link reset on devices at PCI indices: %v", ids)
	}

	return outcomes, nil
}

// pollResetBits samples bit 1 of the second config word for every device
// until the window elapses. Early exit is only permitted once at least one
// device has been observed not yet reset: during a firmware upgrade the
// asic can take a while to go down after the trigger, so exiting on the
// very first all-clear sample would declare success before the reset has
// had a chance to propagate.
func (s *Sequencer) pollResetBits(ids []int, addrs map[int]models.BusAddress, window time.Duration) map[int]bool {
	complete := make(map[int]bool, len(ids))
	canEarlyExit := false
	start := s.ports.Clock()

	for s.ports.Clock().Sub(start) < window {
		for _, id := range ids {
			b, err := s.ports.Topology.ReadConfigByte(addrs[id], commandMemoryOffset)
			if err != nil {
				complete[id] = false

				continue
			}

			// Stores the last observed value.
			complete[id] = (b>>1)&1 == 0
		}

		allComplete := true

		for _, id := range ids {
			if !complete[id] {
				allComplete = false

				break
			}
		}

		if !allComplete {
			canEarlyExit = true
		}

		if allComplete && canEarlyExit {
			break
		}

		s.ports.Sleep(configPollInterval)
	}

	return complete
}

package reset

import (
	"context"
	"fmt"

	"ttreset/pkg/defaults"
	"ttreset/pkg/devctl"
	"ttreset/pkg/errors"
	"ttreset/pkg/firmware"
	"ttreset/pkg/log"
	"ttreset/pkg/models"
	"ttreset/pkg/ports"
)

// runFirmware is the oldest sequence: a link reset followed by two mailbox
// messages per device, verified by the free-running reference clock. The
// clock only stops counting when the device truly powers down, so a
// post-reset sample that is not below the pre-reset sample means the reset
// never electrically took effect.
func (s *Sequencer) runFirmware(ctx context.Context, ids []int, req models.ResetRequest) ([]models.ResetOutcome, error) {
	logger := log.GetLogger(ctx)

	if err := s.precheck("board reset", defaults.MinDriverVersionLegacyReset); err != nil {
		return nil, err
	}

	if s.ports.Firmware == nil {
		return nil, errors.ErrFirmwareChannelUnset
	}

	if !req.Silent {
		logger.Infof("Starting PCI link reset on devices at PCI indices: %v", ids)
	}

	for _, id := range ids {
		if _, err := s.ports.Control.ResetIoctl(id, devctl.ResetPCIeLink); err != nil {
			return nil, fmt.Errorf("issuing %s to interface %d: %w", devctl.ResetPCIeLink, id, err)
		}
	}

	refclkBefore := make(map[int]uint64, len(ids))

	for _, id := range ids {
		before, err := s.ports.Firmware.RefClockCounter(id)
		if err != nil {
			// The ioctl link reset was not enough to bring the chip to
			// a readable state. Only a host reboot recovers from here.
			return nil, fmt.Errorf("failed to recover chip at PCI index %d, reboot the system to reset it: %w", id, err)
		}

		refclkBefore[id] = before

		// A3 is a safe state with no pending regulator requests.
		a3 := ports.FirmwareMessage{Code: firmware.MsgArcState3, WaitForDone: true}
		if err := s.ports.Firmware.SendMessage(ctx, id, a3); err != nil {
			return nil, fmt.Errorf("entering A3 state on interface %d: %w", id, err)
		}

		s.ports.Sleep(firmware.A3StatePropagation)

		trigger := ports.FirmwareMessage{Code: firmware.MsgTriggerReset}
		if req.TriggerCoprocessorReset {
			trigger.Arg0 = firmware.TriggerResetCoprocArg
		}

		if err := s.ports.Firmware.SendMessage(ctx, id, trigger); err != nil {
			return nil, fmt.Errorf("triggering reset on interface %d: %w", id, err)
		}
	}

	s.ports.Sleep(firmware.PostResetMessageWait)

	outcomes := make([]models.ResetOutcome, 0, len(ids))
	failures := 0

	for _, id := range ids {
		if _, err := s.ports.Control.ResetIoctl(id, devctl.RestoreState); err != nil {
			return outcomes, fmt.Errorf("issuing %s to interface %d: %w", devctl.RestoreState, id, err)
		}

		after, err := s.ports.Firmware.RefClockCounter(id)
		if err != nil {
			return outcomes, fmt.Errorf("reading refclk after reset on interface %d: %w", id, err)
		}

		outcome := models.ResetOutcome{
			InterfaceID:    id,
			NewInterfaceID: id,
			Completed:      after < refclkBefore[id],
		}

		if !outcome.Completed {
			refErr := errors.RefClockError{InterfaceID: id, Before: refclkBefore[id], After: after}
			logger.Error(refErr.Error())

			outcome.Detail = refErr.Error()
			failures++
		}

		outcomes = append(outcomes, outcome)
	}

	if failures > 0 {
		logger.Warn("Reset failed for one or more boards, returning with non-zero exit code")

		return outcomes, errors.ResetFailedError{Failures: failures}
	}

	if !req.Silent {
		logger.Infof("Finishing PCI link reset on devices at PCI indices: %v", ids)
	}

	return outcomes, nil
}

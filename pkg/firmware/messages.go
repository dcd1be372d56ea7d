// Package firmware holds the mailbox message codes the reset sequence
// needs. One definition is shared by every protocol variant.
package firmware

import "time"

const (
	// MsgArcState3 moves the ARC to the A3 safe state, where no regulator
	// requests are pending. Must complete before a reset is triggered.
	MsgArcState3 uint32 = 0xA3

	// MsgTriggerReset triggers the board-level reset. Arg0 3 targets the
	// management co-processor.
	MsgTriggerReset uint32 = 0x56

	// MsgTriggerSPICopyLtoR starts an SPI left-to-right copy.
	MsgTriggerSPICopyLtoR uint32 = 0x50

	// TriggerResetCoprocArg is the Arg0 value selecting a co-processor
	// level reset.
	TriggerResetCoprocArg uint32 = 3

	// A3StatePropagation is the settle delay after entering A3 state.
	A3StatePropagation = 30 * time.Millisecond

	// PostResetMessageWait is the settle window after the trigger-reset
	// message before device state is restored.
	PostResetMessageWait = 2 * time.Second

	// CoprocMessageWait replaces PostResetMessageWait when the
	// co-processor was targeted, its firmware-update path is slow.
	CoprocMessageWait = 60 * time.Second
)

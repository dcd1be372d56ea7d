package config

import (
	"time"

	"ttreset/pkg/log"
)

// Config holds the CLI configuration.
type Config struct {
	// Logging holds the log settings.
	Logging log.Config

	// Generation is the board family used to pick the fallback reset
	// protocol on pre-ioctl drivers.
	Generation string

	// CoprocReset also resets the onboard management co-processor.
	CoprocReset bool

	// Silent suppresses start/finish progress output.
	Silent bool

	// PostResetDelay overrides the co-processor settle window.
	PostResetDelay time.Duration

	// ReportPath overrides the reset report location. Empty writes the
	// report to the default config directory; "-" disables it.
	ReportPath string

	// MoboConfigPath is the reset config document for mobo orchestration.
	MoboConfigPath string

	// BootTimeout bounds the rack-unit boot-progress wait.
	BootTimeout time.Duration

	// OutputPath is where the generate command writes the template.
	OutputPath string
}

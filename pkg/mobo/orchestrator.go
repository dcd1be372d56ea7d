package mobo

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"ttreset/pkg/batch"
	"ttreset/pkg/defaults"
	"ttreset/pkg/errors"
	"ttreset/pkg/log"
	"ttreset/pkg/models"
	"ttreset/pkg/ports"
	"ttreset/pkg/vergate"
)

// Feature minimums reported by the unit's about endpoint.
var (
	versionBootProgress = semver.New(0, 3, 0, "", "")
	versionPortDisable  = semver.New(1, 3, 2, "", "")
)

// UnitClient is the request surface the orchestrator needs. Satisfied by
// *Client.
type UnitClient interface {
	Version(ctx context.Context, unit string) *semver.Version
	Get(ctx context.Context, unit, endpoint string) (map[string]any, error)
	Post(ctx context.Context, unit, endpoint string, body any, checkError bool) (map[string]any, error)
}

// LinkResetter performs the host-side link reset of the devices wired to
// the rack units.
type LinkResetter interface {
	Reset(ctx context.Context, req models.ResetRequest) ([]models.ResetOutcome, error)
}

// Orchestrator warm-boots a fleet of rack units. Each phase fans out over
// every unit concurrently; a failure on one unit does not block the others
// within a phase, but an aggregated phase failure stops advancement.
type Orchestrator struct {
	client      UnitClient
	resetter    LinkResetter
	host        ports.HostInfo
	bootTimeout time.Duration
	sleep       func(time.Duration)

	mu       sync.Mutex
	versions map[string]*semver.Version
}

// NewOrchestrator returns an Orchestrator using client for unit requests
// and resetter for the host-side link reset.
func NewOrchestrator(client UnitClient, resetter LinkResetter) *Orchestrator {
	return &Orchestrator{
		client:      client,
		resetter:    resetter,
		bootTimeout: defaults.MoboBootTimeout,
		sleep:       time.Sleep,
		versions:    map[string]*semver.Version{},
	}
}

// WithDriverGate makes WarmBoot verify the host driver version before any
// rack-unit mutation. Without it the gate would only trip at the link-reset
// phase, after the compute modules have already been shut down.
func (o *Orchestrator) WithDriverGate(host ports.HostInfo) *Orchestrator {
	o.host = host

	return o
}

// WithBootTimeout overrides the boot-progress wait bound when d is
// positive.
func (o *Orchestrator) WithBootTimeout(d time.Duration) *Orchestrator {
	if d > 0 {
		o.bootTimeout = d
	}

	return o
}

// WarmBoot performs the full warm-boot sequence over every descriptor.
func (o *Orchestrator) WarmBoot(ctx context.Context, mobos []models.MoboDescriptor) error {
	if len(mobos) == 0 {
		return nil
	}

	if o.host != nil {
		version, err := o.host.DriverVersion()
		if err != nil {
			return err
		}

		if err := vergate.Check("boot mobo", version, defaults.MinDriverVersionLegacyReset); err != nil {
			return err
		}
	}

	// Capability probe. Versions decide which request fields later
	// phases may send.
	if err := batch.Run(mobos, func(m models.MoboDescriptor) error {
		o.storeVersion(m.Address, o.client.Version(ctx, m.Address))

		return nil
	}); err != nil {
		return err
	}

	if err := batch.Run(mobos, func(m models.MoboDescriptor) error {
		return o.bootRetimers(ctx, m)
	}); err != nil {
		return err
	}

	if err := batch.Run(mobos, func(m models.MoboDescriptor) error {
		return o.waitForBootComplete(ctx, m)
	}); err != nil {
		return err
	}

	if err := batch.Run(mobos, func(m models.MoboDescriptor) error {
		return o.shutdownModules(ctx, m)
	}); err != nil {
		return err
	}

	if err := o.linkResetHosts(ctx, mobos); err != nil {
		return err
	}

	return batch.Run(mobos, func(m models.MoboDescriptor) error {
		return o.bootModules(ctx, m)
	})
}

func (o *Orchestrator) storeVersion(unit string, version *semver.Version) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.versions[unit] = version
}

func (o *Orchestrator) unitVersion(unit string) *semver.Version {
	o.mu.Lock()
	defer o.mu.Unlock()

	if v, ok := o.versions[unit]; ok {
		return v
	}

	return semver.New(0, 0, 0, "", "")
}

// bootRetimers issues the retimer boot request for units that declare
// retimer ports. The port-disable list is only understood by newer
// endpoint versions; on older ones it is dropped with a warning.
func (o *Orchestrator) bootRetimers(ctx context.Context, m models.MoboDescriptor) error {
	logger := log.GetLogger(ctx)

	if len(m.RetimerPorts) == 0 {
		logger.Infof("%s - No retimers to be booted, moving on...", m.Address)

		return nil
	}

	body := map[string]any{
		"groups":      nil,
		"credo":       true,
		"retimer_sel": m.RetimerPorts,
	}

	version := o.unitVersion(m.Address)

	if !version.LessThan(versionPortDisable) {
		body["disable_sel"] = m.DisabledPorts
	} else if len(m.DisabledPorts) > 0 {
		logger.Warnf("Warning: port disable is only available for server version %s and above, ignoring list for %s", versionPortDisable, m.Address)
	}

	logger.Infof("%s - Booting retimers...", m.Address)

	_, err := o.client.Post(ctx, m.Address, "boot", body, true)

	return err
}

// waitForBootComplete polls the unit's boot progress once per second until
// it reports 100%. Only endpoint versions that post the boot command
// expose progress; older units return immediately.
func (o *Orchestrator) waitForBootComplete(ctx context.Context, m models.MoboDescriptor) error {
	logger := log.GetLogger(ctx)
	version := o.unitVersion(m.Address)

	if version.LessThan(versionBootProgress) {
		return nil
	}

	verboseStep := !version.LessThan(versionPortDisable)
	start := time.Now()

	for {
		if time.Since(start) > o.bootTimeout {
			return errors.BootTimeoutError{Unit: m.Address}
		}

		payload, err := o.client.Get(ctx, m.Address, "boot/progress")
		if err != nil {
			return err
		}

		progress := bootPercent(payload)

		if verboseStep {
			step, _ := payload["step"].(string)
			logger.Infof("%s - Waiting for server boot to complete... %6.2f%% (%s)", m.Address, progress, step)
		} else {
			logger.Infof("%s - Waiting for server boot to complete... %6.2f%%", m.Address, progress)
		}

		if progress >= 100.0 {
			return nil
		}

		o.sleep(time.Second)
	}
}

// bootPercent extracts boot_percent, which older endpoints report as a
// bare number and some as a string.
func bootPercent(payload map[string]any) float64 {
	switch v := payload["boot_percent"].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}

		return f
	default:
		return 0
	}
}

// shutdownModules powers the unit's compute modules down. Protocol-level
// errors are intentionally ignored: a module that was already off must not
// block the flow.
func (o *Orchestrator) shutdownModules(ctx context.Context, m models.MoboDescriptor) error {
	log.GetLogger(ctx).Infof("%s - Turning off modules...", m.Address)

	_, err := o.client.Post(ctx, m.Address, "shutdown/modules", map[string]any{"groups": nil}, false)

	return err
}

// linkResetHosts link-resets every host-side device declared across the
// fleet in one batch, deduplicated.
func (o *Orchestrator) linkResetHosts(ctx context.Context, mobos []models.MoboDescriptor) error {
	ids := []int{}

	for _, m := range mobos {
		ids = append(ids, m.HostLinkDeviceIDs...)
	}

	if len(ids) == 0 {
		return nil
	}

	_, err := o.resetter.Reset(ctx, models.ResetRequest{DeviceIDs: ids})

	return err
}

// bootModules powers the unit's compute modules back up. Errors here are
// fatal for the unit.
func (o *Orchestrator) bootModules(ctx context.Context, m models.MoboDescriptor) error {
	log.GetLogger(ctx).Infof("%s - Turning on modules...", m.Address)

	_, err := o.client.Post(ctx, m.Address, "boot/modules", map[string]any{"groups": nil}, true)

	return err
}

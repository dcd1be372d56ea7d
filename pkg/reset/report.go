package reset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"ttreset/pkg/defaults"
	"ttreset/pkg/models"
)

// Report records one reset run for later inspection.
type Report struct {
	ID       uuid.UUID             `json:"id"`
	Time     time.Time             `json:"time"`
	HostName string                `json:"host_name"`
	Config   models.ResetConfig    `json:"config"`
	Outcomes []models.ResetOutcome `json:"outcomes,omitempty"`
}

// NewReport returns a report stamped with a fresh run id.
func NewReport(hostname string, cfg models.ResetConfig, outcomes []models.ResetOutcome) *Report {
	return &Report{
		ID:       uuid.New(),
		Time:     time.Now(),
		HostName: hostname,
		Config:   cfg,
		Outcomes: outcomes,
	}
}

// Save writes the report as indented JSON under the tool config directory,
// or to path when non-empty. Returns the file written.
func (r *Report) Save(fs afero.Fs, path string) (string, error) {
	if path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}

		stamp := r.Time.Format("01-02-2006_15:04:05")
		path = filepath.Join(dir, fmt.Sprintf("reset_report_%s.json", stamp))
	}

	if err := fs.MkdirAll(filepath.Dir(path), defaults.DataDirPerm); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	raw, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encoding reset report: %w", err)
	}

	if err := afero.WriteFile(fs, path, raw, defaults.DataFilePerm); err != nil {
		return "", fmt.Errorf("writing reset report: %w", err)
	}

	return path, nil
}

// ConfigDir resolves the per-user tool config directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	return filepath.Join(home, defaults.ConfigDir), nil
}

// GenerateConfigTemplate writes an editable reset config with placeholder
// rack-unit entries to path (or the default location when empty) and
// returns the file written.
func GenerateConfigTemplate(fs afero.Fs, hostname string, linkResetIDs []int, path string) (string, error) {
	if path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}

		stamp := time.Now().Format("01-02-2006_15:04:05")
		path = filepath.Join(dir, fmt.Sprintf("mobo_reset_config_%s.json", stamp))
	}

	placeholderPorts := []string{"<group id>:<retimer id>", "<group id>:<retimer id>"}

	cfg := models.ResetConfig{
		Time:          time.Now().Format(time.RFC3339),
		HostName:      hostname,
		LinkResetIDs:  linkResetIDs,
		ReinitDevices: true,
		MoboResets: []models.MoboDescriptor{
			{Address: "<MOBO NAME>", RetimerPorts: placeholderPorts, DisabledPorts: placeholderPorts, HostLinkDeviceIDs: []int{0}},
			{Address: "<MOBO NAME>", RetimerPorts: placeholderPorts, DisabledPorts: placeholderPorts, HostLinkDeviceIDs: []int{1}},
		},
	}

	if err := fs.MkdirAll(filepath.Dir(path), defaults.DataDirPerm); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encoding config template: %w", err)
	}

	if err := afero.WriteFile(fs, path, raw, defaults.DataFilePerm); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}

	return path, nil
}

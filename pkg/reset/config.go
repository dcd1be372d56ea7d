package reset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"ttreset/pkg/models"
)

// ParseInput interprets the reset argument: a path to a config document,
// or a comma-separated list of PCI indices.
func ParseInput(fs afero.Fs, value string) (*models.ResetConfig, []int, error) {
	if exists, _ := afero.Exists(fs, value); exists {
		cfg, err := LoadConfig(fs, value)
		if err != nil {
			return nil, nil, err
		}

		return cfg, nil, nil
	}

	ids, err := parseIDList(value)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid input %q: provide a comma-separated list of PCI indices or a config file (generate one with 'tt-reset generate'): %w", value, err)
	}

	return nil, ids, nil
}

// LoadConfig reads a reset config document. YAML and JSON are both
// accepted; configs written by older tools load unchanged.
func LoadConfig(fs afero.Fs, path string) (*models.ResetConfig, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading reset config %s: %w", path, err)
	}

	cfg := &models.ResetConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing reset config %s: %w", path, err)
	}

	return cfg, nil
}

func parseIDList(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	ids := make([]int, 0, len(parts))

	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parsing PCI index %q", part)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

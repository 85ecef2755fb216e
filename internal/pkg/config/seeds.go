package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"policy-watch/internal/domain/entity"
)

// MonitorSeed is one declared monitor in the seed file. Seeds are the only
// way monitors enter the system; the run path never creates them.
type MonitorSeed struct {
	Name           string   `yaml:"name"`
	URL            string   `yaml:"url"`
	Type           string   `yaml:"type"`
	Frequency      string   `yaml:"frequency"`
	AutoIngest     bool     `yaml:"auto_ingest"`
	Active         *bool    `yaml:"active"` // nil means active
	FilterKeywords []string `yaml:"filter_keywords"`
}

// seedFile is the top-level YAML document shape.
type seedFile struct {
	Monitors []MonitorSeed `yaml:"monitors"`
}

// LoadMonitorSeeds reads and validates a YAML seed file, returning the
// declared monitors as entities ready for upsert. A single invalid seed
// fails the whole load: a half-synced seed file is worse than a loud error
// at startup.
func LoadMonitorSeeds(path string) ([]*entity.SourceMonitor, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	monitors := make([]*entity.SourceMonitor, 0, len(file.Monitors))
	for i, seed := range file.Monitors {
		active := true
		if seed.Active != nil {
			active = *seed.Active
		}

		m := &entity.SourceMonitor{
			SourceName:     seed.Name,
			SourceURL:      seed.URL,
			SourceType:     seed.Type,
			CheckFrequency: entity.CheckFrequency(seed.Frequency),
			IsActive:       active,
			AutoIngest:     seed.AutoIngest,
			FilterKeywords: seed.FilterKeywords,
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("seed %d (%s): %w", i, seed.Name, err)
		}
		monitors = append(monitors, m)
	}

	return monitors, nil
}

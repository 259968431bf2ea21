package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AnomalyProfile is an operator-authored YAML override of the Anomaly
// Detector's six rule thresholds plus the approval-gate threshold,
// grounded on the teacher's RegionalProfile (a named YAML bundle of
// jurisdiction-specific overrides loaded by code), repurposed here from
// jurisdiction policy to anomaly-rule policy.
type AnomalyProfile struct {
	Name               string  `yaml:"name" json:"name"`
	MaxAmount          float64 `yaml:"max_amount" json:"max_amount"`
	MaxFrequency       int     `yaml:"max_frequency" json:"max_frequency"`
	FrequencyWindowMin int     `yaml:"frequency_window_minutes" json:"frequency_window_minutes"`
	OffHoursStart      int     `yaml:"off_hours_start" json:"off_hours_start"`
	OffHoursEnd        int     `yaml:"off_hours_end" json:"off_hours_end"`
	MinIntervalSeconds int     `yaml:"min_interval_seconds" json:"min_interval_seconds"`
	ApprovalThreshold  string  `yaml:"approval_threshold,omitempty" json:"approval_threshold,omitempty"`
}

// FrequencyWindow converts FrequencyWindowMin to a time.Duration.
func (p *AnomalyProfile) FrequencyWindow() time.Duration {
	return time.Duration(p.FrequencyWindowMin) * time.Minute
}

// LoadProfile loads an anomaly profile YAML by name, searching
// profilesDir for profile_<name>.yaml.
func LoadProfile(profilesDir, name string) (*AnomalyProfile, error) {
	name = strings.ToLower(name)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", name))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: load profile %q: %w", name, err)
	}

	var profile AnomalyProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("config: parse profile %q: %w", name, err)
	}

	if profile.Name == "" {
		profile.Name = name
	}
	return &profile, nil
}

// LoadAllProfiles loads every profile_*.yaml file from profilesDir.
func LoadAllProfiles(profilesDir string) (map[string]*AnomalyProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("config: glob profiles: %w", err)
	}

	profiles := make(map[string]*AnomalyProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}

		var profile AnomalyProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}

		if profile.Name == "" {
			base := filepath.Base(path)
			profile.Name = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}
		profiles[profile.Name] = &profile
	}
	return profiles, nil
}

package ratelimit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadLimits reads an action limits file. The format is chosen by
// extension: .yaml/.yml are parsed as YAML, everything else as JSON.
// A missing file yields empty limits rather than an error so an
// unconfigured deployment stays unrestricted.
func LoadLimits(path string) (Limits, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Limits{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Limits{}, nil
		}
		return nil, fmt.Errorf("read limits file: %w", err)
	}

	limits := Limits{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &limits); err != nil {
			return nil, fmt.Errorf("parse limits yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &limits); err != nil {
			return nil, fmt.Errorf("parse limits json: %w", err)
		}
	}

	return limits, nil
}

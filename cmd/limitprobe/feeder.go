package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jperros/limitprobe/internal/config"
	"github.com/jperros/limitprobe/internal/feeder"
)

// newFeeder builds the data feeder, or nil when none is configured. An
// unset type is inferred from the file extension.
func newFeeder(cfg config.FeederConfig) (feeder.Feeder, error) {
	if cfg.Path == "" {
		return nil, nil
	}

	feederType := strings.ToLower(strings.TrimSpace(cfg.Type))
	if feederType == "" {
		switch strings.ToLower(filepath.Ext(cfg.Path)) {
		case ".csv":
			feederType = "csv"
		case ".json":
			feederType = "json"
		default:
			return nil, fmt.Errorf("cannot infer feeder type from %q: specify 'csv' or 'json'", cfg.Path)
		}
	}

	switch feederType {
	case "csv":
		return feeder.NewCSVFeeder(cfg.Path)
	case "json":
		return feeder.NewJSONFeeder(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported feeder type %q (supported: csv, json)", feederType)
	}
}

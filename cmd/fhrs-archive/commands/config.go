package commands

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"fhrs-archive/internal/components/telemetry"
	"fhrs-archive/lib/configutil"
)

type Config struct {
	// Output is the archive root, reference datasets go to <output>/api and
	// establishment documents to <output>/open-data-files.
	Output string `json:"output"`
	// Authorities limits runs to these LocalAuthorityIdCodes.
	Authorities []string `json:"authorities"`
	ApiUrl      string   `json:"api_url"`

	ReferencePauseMs      int `json:"reference_pause_ms"`
	AttemptTimeoutSeconds int `json:"attempt_timeout_seconds"`
	MaxAttempts           int `json:"max_attempts"`

	// PairedEmptyTags overrides the XML tags written as <Tag></Tag> when empty.
	PairedEmptyTags []string `json:"paired_empty_tags"`
	// Schedule is a cron spec, fetch runs once when empty.
	Schedule string `json:"schedule"`

	Verbose bool `json:"verbose"`
	// HttpDumpDir receives every HTTP exchange when Verbose is set.
	HttpDumpDir string              `json:"http_dump_dir"`
	Otlp        telemetry.OtlpConfig `json:"otlp"`
}

var defaultConfig = Config{
	Output:                "archive",
	ReferencePauseMs:      1000,
	AttemptTimeoutSeconds: 60,
	MaxAttempts:           5,
}

func (c Config) referencePause() time.Duration {
	return time.Duration(c.ReferencePauseMs) * time.Millisecond
}

func (c Config) attemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSeconds) * time.Second
}

// loadConfig reads path and its local override. A missing file is only an error when the
// path was asked for explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg, err := configutil.ReadConfig(path, defaultConfig)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		slog.Debug("no config file found, using defaults", "path", path)
		return cfg, nil
	}
	return cfg, err
}

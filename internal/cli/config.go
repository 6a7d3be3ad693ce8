package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Record id generators selectable by --ids and the config file.
const (
	IDsUUID     = "uuid"
	IDsSequence = "sequence"
)

// Config is the optional YAML configuration file.
//
//	database: ./refgraph.db
//	ids: uuid
//	allow_self_subscription: false
//	allow_duplicate_subscriptions: false
type Config struct {
	Database                    string `yaml:"database"`
	IDs                         string `yaml:"ids"`
	AllowSelfSubscription       bool   `yaml:"allow_self_subscription"`
	AllowDuplicateSubscriptions bool   `yaml:"allow_duplicate_subscriptions"`
}

// LoadConfig reads and strictly decodes a config file. Unknown keys are
// rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes config YAML. An empty document yields the zero Config.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.IDs != "" {
		if err := validateIDs(cfg.IDs); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func validateIDs(ids string) error {
	switch ids {
	case IDsUUID, IDsSequence:
		return nil
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("invalid ids %q: must be %s or %s", ids, IDsUUID, IDsSequence))
}

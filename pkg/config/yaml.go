package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ccsync/ccsync/pkg/ccsyncfs"
	"github.com/ccsync/ccsync/pkg/logging"
	"github.com/ccsync/ccsync/pkg/rules"
)

// rawConfig mirrors the on-disk YAML schema before path normalization or
// default application.
type rawConfig struct {
	SourceRoot        string              `yaml:"sourceRoot"`
	MinecraftSavePath string              `yaml:"minecraftSavePath"`
	ComputerGroups    map[string][]string `yaml:"computerGroups"`
	Rules             []rawRule           `yaml:"rules"`
	Advanced          rawAdvanced         `yaml:"advanced"`
}

type rawRule struct {
	Source    string   `yaml:"source"`
	Target    string   `yaml:"target"`
	Computers []string `yaml:"computers"`
	Flatten   *bool    `yaml:"flatten"`
}

type rawAdvanced struct {
	CacheTTL   string `yaml:"cacheTTL"`
	UsePolling bool   `yaml:"usePolling"`
	LogToFile  bool   `yaml:"logToFile"`
	LogLevel   string `yaml:"logLevel"`
}

// Load reads and validates the configuration file at path. It uses a strict
// decoder with KnownFields(true), so unknown fields are rejected — a typo'd
// field name in a rule surfaces immediately rather than silently doing
// nothing.
//
// Load never panics: a malformed file or a validation failure returns a
// non-nil error; validation problems are also available as ConfigError
// values via Validate, for callers that want to report every problem at
// once rather than stopping at the first.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "unable to read configuration file")
	}

	var raw rawConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return Config{}, errors.Wrap(err, "unable to parse configuration file")
	}

	cfg, errs := normalize(raw)
	if len(errs) > 0 {
		return Config{}, errs[0]
	}

	return cfg, nil
}

// Validate parses and normalizes path the same way Load does, but returns
// every ConfigError found rather than stopping at the first — this is the
// entry point CLI validation commands should use to report all problems in
// one pass.
func Validate(path string) ([]ConfigError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read configuration file")
	}

	var raw rawConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "unable to parse configuration file")
	}

	_, errs := normalize(raw)
	return errs, nil
}

func normalize(raw rawConfig) (Config, []ConfigError) {
	var errs []ConfigError

	sourceRoot, err := ccsyncfs.NormalizeAbsolute(raw.SourceRoot)
	if err != nil {
		errs = append(errs, ConfigError{Field: "sourceRoot", Message: err.Error()})
	}

	savePath, err := ccsyncfs.NormalizeAbsolute(raw.MinecraftSavePath)
	if err != nil {
		errs = append(errs, ConfigError{Field: "minecraftSavePath", Message: err.Error()})
	}

	syncRules := make([]rules.SyncRule, 0, len(raw.Rules))
	for i, r := range raw.Rules {
		if r.Source == "" {
			errs = append(errs, ConfigError{Field: fieldf("rules[%d].source", i), Message: "must not be empty"})
		}
		if r.Target == "" {
			errs = append(errs, ConfigError{Field: fieldf("rules[%d].target", i), Message: "must not be empty"})
		}
		if len(r.Computers) == 0 {
			errs = append(errs, ConfigError{Field: fieldf("rules[%d].computers", i), Message: "must list at least one computer or group"})
		}

		target, terr := ccsyncfs.Normalize(r.Target, ccsyncfs.NormalizeOptions{PreserveGlob: true})
		if terr != nil {
			errs = append(errs, ConfigError{Field: fieldf("rules[%d].target", i), Message: terr.Error()})
		}

		syncRules = append(syncRules, rules.SyncRule{
			Source:    r.Source,
			Target:    target,
			Computers: r.Computers,
			Flatten:   r.Flatten,
		})
	}

	if cycleErrs := detectGroupCycles(raw.ComputerGroups); len(cycleErrs) > 0 {
		errs = append(errs, cycleErrs...)
	}

	advanced, advErrs := normalizeAdvanced(raw.Advanced)
	errs = append(errs, advErrs...)

	return Config{
		SourceRoot:        sourceRoot,
		MinecraftSavePath: savePath,
		ComputerGroups:    raw.ComputerGroups,
		Rules:             syncRules,
		Advanced:          advanced,
	}, errs
}

func normalizeAdvanced(raw rawAdvanced) (Advanced, []ConfigError) {
	advanced := defaultAdvanced()
	var errs []ConfigError

	if raw.CacheTTL != "" {
		d, err := time.ParseDuration(raw.CacheTTL)
		if err != nil {
			errs = append(errs, ConfigError{Field: "advanced.cacheTTL", Message: err.Error()})
		} else {
			advanced.CacheTTL = d
		}
	}

	advanced.UsePolling = raw.UsePolling
	advanced.LogToFile = raw.LogToFile

	if raw.LogLevel != "" {
		level, ok := logging.NameToLevel(raw.LogLevel)
		if !ok {
			errs = append(errs, ConfigError{Field: "advanced.logLevel", Message: "unrecognized log level " + raw.LogLevel})
		} else {
			advanced.LogLevel = level
		}
	}

	return advanced, errs
}

func fieldf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}

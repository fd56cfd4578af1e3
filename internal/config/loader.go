package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	pgerrors "github.com/felixgeelhaar/phaseguard/internal/errors"
	"github.com/felixgeelhaar/phaseguard/internal/ux"
)

const (
	// EnvPrefix prefixes every environment override
	EnvPrefix = "PHASEGUARD_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// sections are the nested config keys; PHASEGUARD_LOG_LEVEL -> log.level
var sections = []string{"log", "rules"}

// Load merges the configuration layers.
//
// Precedence (highest to lowest):
//  1. PHASEGUARD_* environment variables
//  2. the config file: path when given, else .phaseguard.yaml in projectDir
//  3. Defaults()
//
// An explicit path that does not exist is an error; a missing project
// file is not.
func Load(projectDir, path string) (*Config, error) {
	cfg := Defaults()
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = ux.DiscoverConfigFile(projectDir)
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			if explicit && os.IsNotExist(err) {
				return nil, pgerrors.Wrap(pgerrors.ErrCodeConfigNotFound,
					fmt.Sprintf("config file %s not found", path), err).
					WithSuggestion("Check the --config path")
			}
			return nil, pgerrors.NewConfigInvalidError(path, err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, pgerrors.NewConfigInvalidError(path, err)
		}
		cfg.Source = path
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, pgerrors.NewConfigInvalidError("environment", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, pgerrors.NewConfigInvalidError(source(cfg), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, pgerrors.NewConfigInvalidError(source(cfg), err)
	}
	return &cfg, nil
}

// envKey maps PHASEGUARD_STATE_DIR to state_dir and
// PHASEGUARD_RULES_EARLY_THRESHOLD to rules.early_threshold
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return io.ReadAll(f)
}

func source(cfg Config) string {
	if cfg.Source != "" {
		return cfg.Source + " or environment"
	}
	return "environment"
}

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// EnvironmentPrefix is prepended to every environment override
const EnvironmentPrefix = "CLAUDEXPORT"

// Loader handles loading and layering configurations from multiple sources
type Loader struct {
	precedence ConfigPrecedence
	validator  *Validator
	loaded     []ConfigLocation
}

// NewLoader creates a new configuration loader
func NewLoader(precedence ConfigPrecedence) *Loader {
	return &Loader{
		precedence: precedence,
		validator:  NewValidator(),
	}
}

// Load loads configuration from all sources, later sources overriding earlier ones
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()
	l.loaded = nil

	sources := []struct {
		path   string
		source ConfigSource
	}{
		{l.precedence.SystemConfig, SourceSystem},
		{l.precedence.UserConfig, SourceUser},
		{l.precedence.ProjectConfig, SourceProject},
		{l.precedence.LocalConfig, SourceLocal},
		{l.precedence.ExplicitConfig, SourceCLI},
	}

	for _, src := range sources {
		if src.path == "" {
			continue
		}
		err := l.applyFile(config, src.path)
		if os.IsNotExist(err) && src.source != SourceCLI {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s config from %s: %w", src.source, src.path, err)
		}
		l.loaded = append(l.loaded, ConfigLocation{Path: src.path, Source: src.source})
	}

	if l.precedence.EnvironmentPrefix != "" {
		if err := l.applyEnvironmentOverrides(config); err != nil {
			return nil, err
		}
	}

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Loaded returns the files that contributed to the last Load, lowest precedence first
func (l *Loader) Loaded() []ConfigLocation {
	return l.loaded
}

// applyFile decodes a file onto config. Keys absent from the file keep their current value.
func (l *Loader) applyFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(config); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// LoadFile loads a single configuration file on top of the defaults
func (l *Loader) LoadFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := l.applyFile(config, path); err != nil {
		return nil, err
	}
	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// SaveFile saves configuration to a file
func (l *Loader) SaveFile(config *Config, path string) error {
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// may hold a session key
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides applies environment variable overrides to config
func (l *Loader) applyEnvironmentOverrides(config *Config) error {
	prefix := l.precedence.EnvironmentPrefix + "_"

	strs := map[string]*string{
		"BASE_URL":        &config.API.BaseURL,
		"ORG_ID":          &config.API.OrgID,
		"SESSION_KEY":     &config.API.SessionKey,
		"MODE":            &config.Export.Mode,
		"ARTIFACT_POLICY": &config.Export.ArtifactPolicy,
		"FOLDER_POLICY":   &config.Export.FolderPolicy,
		"OUTPUT_DIR":      &config.Export.OutputDir,
		"LOG_LEVEL":       &config.Logging.Level,
		"LOG_FORMAT":      &config.Logging.Format,
		"DATABASE_PATH":   &config.Storage.DatabasePath,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(prefix + name); ok && v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"EXCLUDE_CANCELED":      &config.Export.ExcludeCanceled,
		"POST_PROCESS_MARKDOWN": &config.Export.PostProcessMarkdown,
		"PER_LEAF_SUBFOLDER":    &config.Export.PerLeafSubfolder,
		"FORCE_ARCHIVE":         &config.Export.ForceArchive,
		"SKIP_UNCHANGED":        &config.Export.SkipUnchanged,
		"NO_HISTORY":            &config.Storage.Disabled,
	}
	for name, dst := range bools {
		v, ok := os.LookupEnv(prefix + name)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", prefix, name, err)
		}
		*dst = b
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":       &config.API.Timeout,
		"REQUEST_DELAY": &config.Export.RequestDelay,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(prefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", prefix, name, err)
		}
		*dst = d
	}

	return nil
}

// GetConfigPaths returns the configuration file paths to check
func GetConfigPaths() ConfigPrecedence {
	systemConfigPath := filepath.Join("/etc", appName, "config.json")
	if runtime.GOOS == "windows" {
		systemConfigPath = filepath.Join(os.Getenv("PROGRAMDATA"), appName, "config.json")
	}

	return ConfigPrecedence{
		SystemConfig:      systemConfigPath,
		UserConfig:        GetUserConfigPath(),
		ProjectConfig:     filepath.Join("."+appName, "config.json"),
		LocalConfig:       filepath.Join("."+appName, "config.local.json"),
		EnvironmentPrefix: EnvironmentPrefix,
	}
}

// FindConfigFile returns the highest precedence configuration file that exists
func FindConfigFile() (string, error) {
	paths := GetConfigPaths()

	checkPaths := []string{
		paths.LocalConfig,
		paths.ProjectConfig,
		paths.UserConfig,
		paths.SystemConfig,
	}

	for _, path := range checkPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found")
}

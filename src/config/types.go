package config

import (
	"fmt"
	"os"
	"time"
)

// Config represents the complete configuration for claudexport
type Config struct {
	// Version of the configuration format
	Version string `json:"version"`

	// API configuration
	API APIConfig `json:"api"`

	// Export defaults
	Export ExportConfig `json:"export"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Export history storage
	Storage StorageConfig `json:"storage"`
}

// APIConfig holds Claude web API configuration
type APIConfig struct {
	// BaseURL overrides the default API endpoint
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	// OrgID pins the organization; the first organization is used when empty
	OrgID string `json:"org_id,omitempty"`

	// SessionKey is the value of the sessionKey cookie (prefer the keyring or an env var)
	SessionKey string `json:"session_key,omitempty"`

	// SessionKeyEnvVar specifies the environment variable to read the session key from
	SessionKeyEnvVar string `json:"session_key_env_var,omitempty"`

	// Timeout for API requests
	Timeout time.Duration `json:"timeout,omitempty" validate:"min=0"`

	// RetryCount is the number of attempts for failed requests
	RetryCount int `json:"retry_count,omitempty" validate:"min=0,max=10"`

	// RetryDelay is the base delay between attempts
	RetryDelay time.Duration `json:"retry_delay,omitempty" validate:"min=0"`

	// CacheTTL is how long project conversation lists are cached
	CacheTTL time.Duration `json:"cache_ttl,omitempty" validate:"min=0"`
}

// ResolveSessionKey returns the configured session key, falling back to SessionKeyEnvVar
func (c APIConfig) ResolveSessionKey() string {
	if c.SessionKey != "" {
		return c.SessionKey
	}
	if c.SessionKeyEnvVar != "" {
		return os.Getenv(c.SessionKeyEnvVar)
	}
	return ""
}

// ExportConfig holds export defaults
type ExportConfig struct {
	// Mode selects artifact versions: final, all, latest_per_message, none
	Mode string `json:"mode" validate:"export_mode"`

	// ArtifactPolicy is embed, files or both
	ArtifactPolicy string `json:"artifact_policy" validate:"artifact_policy"`

	// FolderPolicy is group, none or project; empty picks one per scope
	FolderPolicy string `json:"folder_policy,omitempty" validate:"folder_policy"`

	// ExcludeCanceled drops artifact versions the user interrupted
	ExcludeCanceled bool `json:"exclude_canceled"`

	// PostProcessMarkdown collapses blank lines in markdown artifact files
	PostProcessMarkdown bool `json:"post_process_markdown"`

	// PerLeafSubfolder gives each conversation its own folder
	PerLeafSubfolder bool `json:"per_leaf_subfolder"`

	// ForceArchive writes a zip archive instead of a directory tree
	ForceArchive bool `json:"force_archive"`

	// IncludeArtifactMetadata prepends a header to markdown and text artifact files
	IncludeArtifactMetadata bool `json:"include_artifact_metadata"`

	// ConvertHTMLArtifacts embeds HTML artifacts as markdown
	ConvertHTMLArtifacts bool `json:"convert_html_artifacts"`

	// ShowVersionDiffs embeds later versions as diffs in mode all
	ShowVersionDiffs bool `json:"show_version_diffs"`

	// SkipUnchanged skips conversations not updated since their last export
	SkipUnchanged bool `json:"skip_unchanged"`

	// RequestDelay spaces conversation fetches
	RequestDelay time.Duration `json:"request_delay" validate:"min=0"`

	// OutputDir is where files or the archive are written
	OutputDir string `json:"output_dir,omitempty"`

	// ArchiveName is the zip file name used with ForceArchive
	ArchiveName string `json:"archive_name,omitempty"`

	// MinFreeBytes is the free space required before writing to a directory
	MinFreeBytes uint64 `json:"min_free_bytes,omitempty"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level,omitempty" validate:"log_level"`

	// Format is the output format (text, json)
	Format string `json:"format,omitempty" validate:"log_format"`
}

// StorageConfig defines the export history database
type StorageConfig struct {
	// DatabasePath overrides the default state location
	DatabasePath string `json:"database_path,omitempty"`

	// Disabled turns off history recording and incremental exports
	Disabled bool `json:"disabled"`
}

// ConfigPrecedence defines the order of configuration loading
type ConfigPrecedence struct {
	// SystemConfig path
	SystemConfig string

	// UserConfig path
	UserConfig string

	// ProjectConfig path
	ProjectConfig string

	// LocalConfig path
	LocalConfig string

	// ExplicitConfig is a file named on the command line, layered last
	ExplicitConfig string

	// EnvironmentPrefix for env var overrides
	EnvironmentPrefix string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"
	SourceUser        ConfigSource = "user"
	SourceProject     ConfigSource = "project"
	SourceLocal       ConfigSource = "local"
	SourceEnvironment ConfigSource = "environment"
	SourceCLI         ConfigSource = "cli"
)

// ConfigLocation represents a configuration file that was loaded
type ConfigLocation struct {
	Path   string
	Source ConfigSource
}

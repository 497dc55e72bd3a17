package config

import (
	"time"

	"github.com/elee1766/claudexport/src/exporter"
	"github.com/elee1766/claudexport/src/resolver"
)

// DefaultSessionKeyEnvVar is read when no session key is configured
const DefaultSessionKeyEnvVar = "CLAUDE_SESSION_KEY"

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			BaseURL:          "https://claude.ai",
			SessionKeyEnvVar: DefaultSessionKeyEnvVar,
			Timeout:          30 * time.Second,
			RetryCount:       3,
			RetryDelay:       time.Second,
			CacheTTL:         5 * time.Minute,
		},

		Export: ExportConfig{
			Mode:                string(resolver.ModeFinal),
			ArtifactPolicy:      string(exporter.PolicyFiles),
			ExcludeCanceled:     true,
			PostProcessMarkdown: false,
			RequestDelay:        exporter.DefaultDelay,
			OutputDir:           GetDefaultOutputPath(),
			ArchiveName:         "claude_export",
			MinFreeBytes:        64 << 20,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},

		Storage: StorageConfig{
			DatabasePath: GetDefaultStoragePaths().DatabasePath,
		},
	}
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func testPaths(t *testing.T) ConfigPrecedence {
	dir := t.TempDir()
	return ConfigPrecedence{
		SystemConfig:      filepath.Join(dir, "system.json"),
		UserConfig:        filepath.Join(dir, "user.json"),
		ProjectConfig:     filepath.Join(dir, "project", "config.json"),
		LocalConfig:       filepath.Join(dir, "project", "config.local.json"),
		EnvironmentPrefix: "CXTEST",
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "https://claude.ai", config.API.BaseURL)
	assert.Equal(t, DefaultSessionKeyEnvVar, config.API.SessionKeyEnvVar)
	assert.Equal(t, 3, config.API.RetryCount)
	assert.Equal(t, "final", config.Export.Mode)
	assert.Equal(t, "files", config.Export.ArtifactPolicy)
	assert.True(t, config.Export.ExcludeCanceled)
	assert.Equal(t, 200*time.Millisecond, config.Export.RequestDelay)
	assert.NotEmpty(t, config.Storage.DatabasePath)
	assert.NoError(t, NewValidator().Validate(config))
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad mode", mutate: func(c *Config) { c.Export.Mode = "every" }, field: "Config.Export.Mode", wantErr: true},
		{name: "empty mode", mutate: func(c *Config) { c.Export.Mode = "" }, field: "Config.Export.Mode", wantErr: true},
		{name: "bad policy", mutate: func(c *Config) { c.Export.ArtifactPolicy = "inline" }, field: "Config.Export.ArtifactPolicy", wantErr: true},
		{name: "empty folder policy", mutate: func(c *Config) { c.Export.FolderPolicy = "" }},
		{name: "bad folder policy", mutate: func(c *Config) { c.Export.FolderPolicy = "date" }, field: "Config.Export.FolderPolicy", wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, field: "Config.Logging.Level", wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "yaml" }, field: "Config.Logging.Format", wantErr: true},
		{name: "bad url", mutate: func(c *Config) { c.API.BaseURL = "not a url" }, field: "Config.API.BaseURL", wantErr: true},
		{name: "too many retries", mutate: func(c *Config) { c.API.RetryCount = 11 }, field: "Config.API.RetryCount", wantErr: true},
		{name: "negative delay", mutate: func(c *Config) { c.Export.RequestDelay = -time.Second }, field: "Config.Export.RequestDelay", wantErr: true},
		{name: "archive without name", mutate: func(c *Config) {
			c.Export.ForceArchive = true
			c.Export.ArchiveName = ""
		}, field: "Config.Export.ArchiveName", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := NewValidator().Validate(config)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLoadLayersFiles(t *testing.T) {
	paths := testPaths(t)
	writeConfig(t, paths.SystemConfig, `{"export": {"mode": "all", "request_delay": 1000000000}}`)
	writeConfig(t, paths.UserConfig, `{"api": {"org_id": "org-user"}, "export": {"exclude_canceled": false}}`)
	writeConfig(t, paths.ProjectConfig, `{"export": {"artifact_policy": "both"}}`)
	writeConfig(t, paths.LocalConfig, `{"api": {"org_id": "org-local"}}`)

	loader := NewLoader(paths)
	config, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "all", config.Export.Mode)
	assert.Equal(t, time.Second, config.Export.RequestDelay)
	assert.Equal(t, "both", config.Export.ArtifactPolicy)
	assert.Equal(t, "org-local", config.API.OrgID)
	assert.False(t, config.Export.ExcludeCanceled, "explicit false overrides a true default")
	assert.Equal(t, 3, config.API.RetryCount, "untouched keys keep defaults")

	loaded := loader.Loaded()
	require.Len(t, loaded, 4)
	assert.Equal(t, SourceSystem, loaded[0].Source)
	assert.Equal(t, SourceLocal, loaded[3].Source)
}

func TestLoadMissingFilesUsesDefaults(t *testing.T) {
	loader := NewLoader(testPaths(t))
	config, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Export, config.Export)
	assert.Empty(t, loader.Loaded())
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"export": `},
		{"unknown key", `{"exprt": {}}`},
		{"invalid value", `{"export": {"mode": "sometimes"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := testPaths(t)
			writeConfig(t, paths.UserConfig, tt.body)
			_, err := NewLoader(paths).Load()
			assert.Error(t, err)
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	paths := testPaths(t)
	writeConfig(t, paths.UserConfig, `{"export": {"mode": "all"}}`)

	t.Setenv("CXTEST_MODE", "latest_per_message")
	t.Setenv("CXTEST_SESSION_KEY", "sk-env")
	t.Setenv("CXTEST_FORCE_ARCHIVE", "true")
	t.Setenv("CXTEST_REQUEST_DELAY", "750ms")
	t.Setenv("CXTEST_NO_HISTORY", "1")

	config, err := NewLoader(paths).Load()
	require.NoError(t, err)
	assert.Equal(t, "latest_per_message", config.Export.Mode)
	assert.Equal(t, "sk-env", config.API.SessionKey)
	assert.True(t, config.Export.ForceArchive)
	assert.Equal(t, 750*time.Millisecond, config.Export.RequestDelay)
	assert.True(t, config.Storage.Disabled)
}

func TestEnvironmentOverridesRejectGarbage(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bool", "CXTEST_SKIP_UNCHANGED", "perhaps"},
		{"duration", "CXTEST_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := NewLoader(testPaths(t)).Load()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestResolveSessionKey(t *testing.T) {
	t.Setenv("CXTEST_KEY", "sk-from-env")

	assert.Equal(t, "sk-direct", APIConfig{SessionKey: "sk-direct", SessionKeyEnvVar: "CXTEST_KEY"}.ResolveSessionKey())
	assert.Equal(t, "sk-from-env", APIConfig{SessionKeyEnvVar: "CXTEST_KEY"}.ResolveSessionKey())
	assert.Empty(t, APIConfig{}.ResolveSessionKey())
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	loader := NewLoader(testPaths(t))

	config := DefaultConfig()
	config.Export.Mode = "none"
	config.Export.PerLeafSubfolder = true
	require.NoError(t, loader.SaveFile(config, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)

	bad := DefaultConfig()
	bad.Export.Mode = "bogus"
	assert.Error(t, loader.SaveFile(bad, path))
}

func TestManagerRedactsSessionKey(t *testing.T) {
	paths := testPaths(t)
	writeConfig(t, paths.ProjectConfig, `{"api": {"session_key": "sk-secret"}}`)

	m, err := NewManagerWithPaths(paths)
	require.NoError(t, err)
	assert.Equal(t, paths.ProjectConfig, m.GetConfigPath())
	assert.Len(t, m.Sources(), 1)

	data, err := m.ExportConfig(false)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")
	assert.Contains(t, string(data), `"session_key": "<redacted>"`)
	assert.NotContains(t, string(data), `\u003c`)

	data, err = m.ExportConfig(true)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sk-secret")

	assert.Equal(t, "sk-secret", m.GetConfig().API.SessionKey, "redaction does not touch the live config")
}

func TestNewManagerWithConfigValidates(t *testing.T) {
	_, err := NewManagerWithConfig(DefaultConfig())
	require.NoError(t, err)

	bad := DefaultConfig()
	bad.Logging.Format = "xml"
	_, err = NewManagerWithConfig(bad)
	assert.Error(t, err)
}

func TestSchemaCoversConfig(t *testing.T) {
	data, err := json.Marshal(Schema())
	require.NoError(t, err)

	var doc struct {
		Properties map[string]struct {
			Properties map[string]json.RawMessage `json:"properties"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	raw, err := json.Marshal(DefaultConfig())
	require.NoError(t, err)
	var defaults map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &defaults))

	for section, body := range defaults {
		prop, ok := doc.Properties[section]
		require.True(t, ok, "schema is missing %s", section)
		var fields map[string]json.RawMessage
		if json.Unmarshal(body, &fields) != nil {
			continue
		}
		for field := range fields {
			assert.Contains(t, prop.Properties, field, "schema is missing %s.%s", section, field)
		}
	}
}

func TestExplicitConfig(t *testing.T) {
	paths := testPaths(t)
	paths.ExplicitConfig = filepath.Join(t.TempDir(), "explicit.json")

	_, err := NewLoader(paths).Load()
	assert.Error(t, err, "a file named on the command line must exist")

	writeConfig(t, paths.LocalConfig, `{"export": {"mode": "all", "per_leaf_subfolder": true}}`)
	writeConfig(t, paths.ExplicitConfig, `{"export": {"mode": "none"}}`)

	loader := NewLoader(paths)
	config, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "none", config.Export.Mode)
	assert.True(t, config.Export.PerLeafSubfolder)
	assert.Equal(t, SourceCLI, loader.Loaded()[len(loader.Loaded())-1].Source)
}

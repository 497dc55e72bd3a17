package config

import (
	jsonschema "github.com/swaggest/jsonschema-go"

	"github.com/elee1766/claudexport/src/exporter"
	"github.com/elee1766/claudexport/src/resolver"
	"github.com/elee1766/claudexport/src/schema"
)

// Schema describes the configuration file format, with defaults taken from DefaultConfig.
func Schema() *jsonschema.Schema {
	d := DefaultConfig()

	modes := make([]string, len(resolver.Modes))
	for i, m := range resolver.Modes {
		modes[i] = string(m)
	}
	policies := make([]string, len(exporter.ArtifactPolicies))
	for i, p := range exporter.ArtifactPolicies {
		policies[i] = string(p)
	}
	folders := []string{""}
	for _, p := range exporter.FolderPolicies {
		folders = append(folders, string(p))
	}

	api := schema.Object(map[string]*jsonschema.Schema{
		"base_url":            schema.URI("Claude web endpoint", d.API.BaseURL),
		"org_id":              schema.String("Organization to export from; the first one is used when empty", ""),
		"session_key":         schema.String("sessionKey cookie value; prefer the keyring or an environment variable", ""),
		"session_key_env_var": schema.String("Environment variable holding the session key", d.API.SessionKeyEnvVar),
		"timeout":             schema.Duration("Request timeout", d.API.Timeout),
		"retry_count":         schema.Int("Attempts per request", int64(d.API.RetryCount), 10),
		"retry_delay":         schema.Duration("Base delay between attempts", d.API.RetryDelay),
		"cache_ttl":           schema.Duration("Lifetime of cached project conversation lists", d.API.CacheTTL),
	})

	export := schema.Object(map[string]*jsonschema.Schema{
		"mode":                      schema.Enum("Artifact versions to export", modes, d.Export.Mode),
		"artifact_policy":           schema.Enum("Where artifacts are written", policies, d.Export.ArtifactPolicy),
		"folder_policy":             schema.Enum("Folder per conversation; empty picks one per scope", folders, ""),
		"exclude_canceled":          schema.Bool("Drop artifact versions interrupted by the user", d.Export.ExcludeCanceled),
		"post_process_markdown":     schema.Bool("Collapse blank lines in markdown artifact files", d.Export.PostProcessMarkdown),
		"per_leaf_subfolder":        schema.Bool("Give each conversation its own folder", d.Export.PerLeafSubfolder),
		"force_archive":             schema.Bool("Write a zip archive instead of a directory", d.Export.ForceArchive),
		"include_artifact_metadata": schema.Bool("Prepend a metadata header to markdown and text artifacts", d.Export.IncludeArtifactMetadata),
		"convert_html_artifacts":    schema.Bool("Embed HTML artifacts as markdown", d.Export.ConvertHTMLArtifacts),
		"show_version_diffs":        schema.Bool("Embed later versions as diffs in mode all", d.Export.ShowVersionDiffs),
		"skip_unchanged":            schema.Bool("Skip conversations not updated since their last export", d.Export.SkipUnchanged),
		"request_delay":             schema.Duration("Pause between conversations", d.Export.RequestDelay),
		"output_dir":                schema.String("Export destination directory", ""),
		"archive_name":              schema.String("Zip file name used with force_archive", d.Export.ArchiveName),
		"min_free_bytes":            schema.Int("Free space required before writing to a directory", int64(d.Export.MinFreeBytes), 0),
	}, "mode", "artifact_policy")

	logging := schema.Object(map[string]*jsonschema.Schema{
		"level":  schema.Enum("Minimum log level", []string{"debug", "info", "warn", "error"}, d.Logging.Level),
		"format": schema.Enum("Log output format", []string{"text", "json"}, d.Logging.Format),
	})

	storage := schema.Object(map[string]*jsonschema.Schema{
		"database_path": schema.String("Export history database", ""),
		"disabled":      schema.Bool("Turn off export history", d.Storage.Disabled),
	})

	return schema.Document("claudexport configuration", schema.Object(map[string]*jsonschema.Schema{
		"version": schema.String("Configuration format version", d.Version),
		"api":     api,
		"export":  export,
		"logging": logging,
		"storage": storage,
	}))
}

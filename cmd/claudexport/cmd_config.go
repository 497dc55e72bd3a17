package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/elee1766/claudexport/src/config"
	"github.com/elee1766/claudexport/src/schema"
)

// ConfigCmd inspects configuration
type ConfigCmd struct {
	Show   ConfigShowCmd   `cmd:"" help:"Print the effective configuration"`
	Schema ConfigSchemaCmd `cmd:"" help:"Print the configuration JSON schema"`
	Path   ConfigPathCmd   `cmd:"" help:"Print configuration file locations"`
	Init   ConfigInitCmd   `cmd:"" help:"Write the effective configuration to a file"`
}

// ConfigShowCmd prints the effective configuration
type ConfigShowCmd struct {
	Secrets bool `help:"Include the session key"`
}

// Run executes the config show command
func (c *ConfigShowCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, _, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	if err := overrideConfigFromCLI(cfg, cli); err != nil {
		return err
	}
	m, err := config.NewManagerWithConfig(cfg)
	if err != nil {
		return err
	}
	data, err := m.ExportConfig(c.Secrets)
	if err != nil {
		return err
	}
	fmt.Fprintln(kctx.Stdout, string(data))
	return nil
}

// ConfigSchemaCmd prints the JSON schema
type ConfigSchemaCmd struct{}

// Run executes the config schema command
func (c *ConfigSchemaCmd) Run(kctx *kong.Context) error {
	data, err := schema.Marshal(config.Schema())
	if err != nil {
		return err
	}
	fmt.Fprintln(kctx.Stdout, string(data))
	return nil
}

// ConfigPathCmd prints the configuration locations
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(kctx *kong.Context, cli *CLI) error {
	paths := config.GetConfigPaths()
	paths.ExplicitConfig = cli.Config

	_, loaded, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	active := make(map[string]bool, len(loaded))
	for _, l := range loaded {
		active[l.Path] = true
	}

	for _, p := range []struct {
		source config.ConfigSource
		path   string
	}{
		{config.SourceSystem, paths.SystemConfig},
		{config.SourceUser, paths.UserConfig},
		{config.SourceProject, paths.ProjectConfig},
		{config.SourceLocal, paths.LocalConfig},
		{config.SourceCLI, paths.ExplicitConfig},
	} {
		if p.path == "" {
			continue
		}
		mark := " "
		if active[p.path] {
			mark = "*"
		}
		fmt.Fprintf(kctx.Stdout, "%s %-8s %s\n", mark, p.source, p.path)
	}
	fmt.Fprintf(kctx.Stdout, "  %-8s %s\n", "history", config.GetDefaultStoragePaths().DatabasePath)
	return nil
}

// ConfigInitCmd writes a configuration file
type ConfigInitCmd struct {
	Path  string `arg:"" optional:"" type:"path" help:"Destination (defaults to the user configuration file)"`
	Force bool   `help:"Overwrite an existing file"`
}

// Run executes the config init command
func (c *ConfigInitCmd) Run(kctx *kong.Context, cli *CLI) error {
	path := c.Path
	if path == "" {
		path = config.GetUserConfigPath()
	}
	if !c.Force && fileExists(path) {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	cfg, _, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	// never persist a key that came from the environment
	cfg.API.SessionKey = ""

	loader := config.NewLoader(config.GetConfigPaths())
	if err := loader.SaveFile(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(kctx.Stdout, "Wrote %s\n", path)
	return nil
}

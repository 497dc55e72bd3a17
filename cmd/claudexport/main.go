package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// CLI represents the main CLI structure
type CLI struct {
	Config     string `short:"c" type:"path" help:"Configuration file, layered over the standard locations"`
	SessionKey string `env:"CLAUDEXPORT_SESSION_KEY" help:"Claude sessionKey cookie value"`
	OrgID      string `help:"Organization id (defaults to the first organization)"`
	BaseURL    string `help:"Custom API base URL"`
	LogLevel   string `help:"Log level (debug, info, warn, error)"`
	LogFormat  string `help:"Log format (text, json)"`

	Export  ExportCmd  `cmd:"" default:"withargs" help:"Export conversations and artifacts"`
	List    ListCmd    `cmd:"" help:"List projects and conversations"`
	History HistoryCmd `cmd:"" help:"Show previous exports"`
	Conf    ConfigCmd  `cmd:"" name:"config" help:"Inspect configuration"`
	Auth    AuthCmd    `cmd:"" help:"Manage the stored session key"`
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("claudexport"),
		kong.Description("Export Claude conversations and artifacts to markdown"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

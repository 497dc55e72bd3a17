package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"golang.org/x/term"
)

// AuthCmd manages the stored session key
type AuthCmd struct {
	Login  AuthLoginCmd  `cmd:"" help:"Store a session key in the system keyring"`
	Logout AuthLogoutCmd `cmd:"" help:"Remove the stored session key"`
	Status AuthStatusCmd `cmd:"" help:"Check that the session key works"`
}

// AuthLoginCmd stores a session key
type AuthLoginCmd struct {
	Key string `arg:"" optional:"" help:"Session key; read from stdin when omitted"`
}

// Run executes the auth login command
func (c *AuthLoginCmd) Run(kctx *kong.Context) error {
	key := c.Key
	if key == "" {
		var err error
		if key, err = readSecret("Session key: "); err != nil {
			return err
		}
	}
	store, err := keyringOpener()
	if err != nil {
		return err
	}
	if err := store.SetSessionKey(key); err != nil {
		return err
	}
	fmt.Fprintln(kctx.Stdout, "Session key stored")
	return nil
}

// AuthLogoutCmd removes the session key
type AuthLogoutCmd struct{}

// Run executes the auth logout command
func (c *AuthLogoutCmd) Run(kctx *kong.Context) error {
	store, err := keyringOpener()
	if err != nil {
		return err
	}
	if err := store.DeleteSessionKey(); err != nil {
		return err
	}
	fmt.Fprintln(kctx.Stdout, "Session key removed")
	return nil
}

// AuthStatusCmd verifies the session key
type AuthStatusCmd struct{}

// Run executes the auth status command
func (c *AuthStatusCmd) Run(kctx *kong.Context, cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.Close()

	org, err := a.Ready(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(kctx.Stdout, "Authenticated, organization %s\n", org)
	return nil
}

// readSecret prompts on a terminal without echo, or reads a line from piped stdin.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read session key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Package fs provides afero filesystems used for export output.
package fs

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrOutsideRoot is returned for paths that would resolve outside the filesystem root.
var ErrOutsideRoot = errors.New("path escapes output root")

// RootedFs creates an afero.Fs that resolves slash-separated export paths below a root directory
type RootedFs struct {
	afero.Fs
	root string
}

// NewRootedFs creates a new RootedFs with the given root directory
func NewRootedFs(baseFs afero.Fs, root string) *RootedFs {
	return &RootedFs{
		Fs:   baseFs,
		root: root,
	}
}

// Clean validates an export path and returns it in canonical slash form. Absolute paths and
// paths that climb above the root are rejected.
func Clean(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" || path.IsAbs(name) || filepath.IsAbs(name) {
		return "", ErrOutsideRoot
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrOutsideRoot
	}
	return cleaned, nil
}

// resolvePath maps an export path onto the underlying filesystem
func (c *RootedFs) resolvePath(name string) (string, error) {
	cleaned, err := Clean(name)
	if err != nil {
		return "", &os.PathError{Op: "resolve", Path: name, Err: err}
	}
	if c.root == "" {
		return filepath.FromSlash(cleaned), nil
	}
	return filepath.Join(c.root, filepath.FromSlash(cleaned)), nil
}

// Override methods to resolve paths below the root

func (c *RootedFs) Open(name string) (afero.File, error) {
	p, err := c.resolvePath(name)
	if err != nil {
		return nil, err
	}
	return c.Fs.Open(p)
}

func (c *RootedFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	p, err := c.resolvePath(name)
	if err != nil {
		return nil, err
	}
	return c.Fs.OpenFile(p, flag, perm)
}

func (c *RootedFs) Create(name string) (afero.File, error) {
	p, err := c.resolvePath(name)
	if err != nil {
		return nil, err
	}
	return c.Fs.Create(p)
}

func (c *RootedFs) Stat(name string) (os.FileInfo, error) {
	p, err := c.resolvePath(name)
	if err != nil {
		return nil, err
	}
	return c.Fs.Stat(p)
}

func (c *RootedFs) Remove(name string) error {
	p, err := c.resolvePath(name)
	if err != nil {
		return err
	}
	return c.Fs.Remove(p)
}

func (c *RootedFs) MkdirAll(name string, perm os.FileMode) error {
	p, err := c.resolvePath(name)
	if err != nil {
		return err
	}
	return c.Fs.MkdirAll(p, perm)
}

// Root returns the directory export paths are resolved against
func (c *RootedFs) Root() string {
	return c.root
}

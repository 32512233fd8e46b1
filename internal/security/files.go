// Package security confines files boveda writes outside its database, such
// as QR exports, to owner-only permissions inside one directory.
package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// PrivatePerm is the mode of every file written here.
const PrivatePerm fs.FileMode = 0600

var (
	ErrPathEscapes  = errors.New("path escapes directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
	ErrTooOpen      = errors.New("file is readable by other users")
)

// Dir writes files confined to one directory using os.Root, so a name
// cannot reach outside it through ".." or a symlink.
type Dir struct {
	root *os.Root
	path string
}

// Open opens dir for confined writes.
func Open(dir string) (*Dir, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory: %w", err)
	}
	return &Dir{root: root, path: absPath}, nil
}

// Close releases the directory handle.
func (d *Dir) Close() error {
	if d.root != nil {
		return d.root.Close()
	}
	return nil
}

// ValidateName checks that name is a local path below the directory and
// returns it cleaned.
func (d *Dir) ValidateName(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyPath
	}
	if !filepath.IsLocal(name) {
		if filepath.IsAbs(name) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, name)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}

	clean := filepath.Clean(name)
	rel, err := filepath.Rel(d.path, filepath.Join(d.path, clean))
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}
	return clean, nil
}

// WriteFile replaces name with data, readable by the owner only. An
// existing file keeps no wider permissions than PrivatePerm.
func (d *Dir) WriteFile(name string, data []byte) error {
	clean, err := d.ValidateName(name)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	f, err := d.root.OpenFile(clean, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, PrivatePerm)
	if err != nil {
		return err
	}
	if err := f.Chmod(PrivatePerm); err != nil && runtime.GOOS != "windows" {
		f.Close()
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WritePrivateFile writes data to path with owner-only permissions, refusing
// to follow a symlink out of the parent directory.
func WritePrivateFile(path string, data []byte) error {
	d, err := Open(filepath.Dir(path))
	if err != nil {
		return err
	}
	defer d.Close()
	return d.WriteFile(filepath.Base(path), data)
}

// CheckPrivate reports ErrTooOpen when path grants any group or other
// permission. Windows has no such bits and always passes.
func CheckPrivate(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0077 != 0 {
		return fmt.Errorf("%w: %s has mode %v", ErrTooOpen, path, info.Mode().Perm())
	}
	return nil
}

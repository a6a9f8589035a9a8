package sshconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFileName is the file name of every config file in the tree.
const ConfigFileName = "config"

// ResolveInclude turns an Include argument into a single literal path.
//
// Rules, checked in order:
//   - "~/rest" resolves to <home>/rest
//   - "/abs" is used as-is
//   - anything else is joined onto baseDir
//
// No glob expansion is performed. The returned path may not exist.
func ResolveInclude(arg, baseDir string) (string, error) {
	switch {
	case strings.HasPrefix(arg, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve include %q: %w", arg, err)
		}
		return filepath.Join(home, arg[2:]), nil
	case strings.HasPrefix(arg, "/"):
		return filepath.Clean(arg), nil
	default:
		return filepath.Join(baseDir, arg), nil
	}
}

// RootConfigPath returns <root>/config.
func RootConfigPath(root string) string {
	return filepath.Join(root, ConfigFileName)
}

// FolderConfigPath returns the file that owns entries labelled folder:
// the root config for an empty label, <root>/<folder>/config otherwise.
func FolderConfigPath(root, folder string) string {
	if folder == "" {
		return RootConfigPath(root)
	}
	return filepath.Join(root, folder, ConfigFileName)
}

// dirLabel is the source label for a file: its parent directory's name.
func dirLabel(path string) string {
	return filepath.Base(filepath.Dir(path))
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

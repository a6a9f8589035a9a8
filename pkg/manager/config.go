// Package manager holds the sshdeck application layer: settings, persisted
// state, logging, the ssh launcher and reachability probe, and the Bubble Tea
// TUI built on top of the sshconfig registry.
package manager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

const (
	defaultConfigDirName    = "sshdeck"
	defaultSettingsFilename = "config.toml"
	defaultProbeTimeout     = 5 * time.Second
)

// Settings is the application's own configuration, stored as TOML.
//
// Example:
//
//	workdir = "~/.ssh"
//	probe_timeout = "5s"
//	ssh_binary = "ssh"
//	log_level = "info"
//	backup = true
type Settings struct {
	// Workdir is the directory holding the root ssh "config" file and one
	// sub-directory per folder.
	Workdir string `toml:"workdir"`

	// ProbeTimeout bounds the TCP reachability check (time.ParseDuration).
	ProbeTimeout string `toml:"probe_timeout"`

	SSHBinary string `toml:"ssh_binary"`
	LogLevel  string `toml:"log_level"`

	// Backup writes <file>.bak before rewriting an ssh config file.
	Backup bool `toml:"backup"`
}

// DefaultSettings returns the settings used when no file exists yet.
func DefaultSettings() Settings {
	workdir := "~/.ssh"
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		workdir = filepath.Join(home, ".ssh")
	}
	return Settings{
		Workdir:      workdir,
		ProbeTimeout: defaultProbeTimeout.String(),
		SSHBinary:    "ssh",
		LogLevel:     zerolog.InfoLevel.String(),
		Backup:       true,
	}
}

// DefaultConfigDir returns the directory for sshdeck's own files.
// Precedence:
//  1. $XDG_CONFIG_HOME/sshdeck
//  2. ~/.config/sshdeck
func DefaultConfigDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, defaultConfigDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", defaultConfigDirName), nil
}

// SettingsPath resolves the settings file: explicitPath, then
// $SSHDECK_CONFIG, then <DefaultConfigDir>/config.toml.
func SettingsPath(explicitPath string) (string, error) {
	if p := strings.TrimSpace(explicitPath); p != "" {
		return ExpandPath(p), nil
	}
	if env := strings.TrimSpace(os.Getenv("SSHDECK_CONFIG")); env != "" {
		return ExpandPath(env), nil
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultSettingsFilename), nil
}

// LoadSettings reads the settings file at path. A missing file is created
// with DefaultSettings. Keys absent from the file keep their defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return s, fmt.Errorf("stat settings %s: %w", path, err)
		}
		if err := SaveSettings(path, s); err != nil {
			return s, err
		}
		return s, nil
	}

	if _, err := toml.DecodeFile(path, &s); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	s.Workdir = ExpandPath(strings.TrimSpace(s.Workdir))
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}

// SaveSettings writes s to path, creating the parent directory.
func SaveSettings(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode settings %s: %w", path, err)
	}
	return f.Close()
}

// Validate performs basic sanity checks on the settings.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Workdir) == "" {
		return errors.New("workdir is required")
	}
	if d, err := time.ParseDuration(s.ProbeTimeout); err != nil || d <= 0 {
		return fmt.Errorf("probe_timeout %q must be a positive duration", s.ProbeTimeout)
	}
	if strings.TrimSpace(s.SSHBinary) == "" {
		return errors.New("ssh_binary is required")
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}

// Timeout returns the probe timeout, falling back to the default when the
// stored value does not parse.
func (s Settings) Timeout() time.Duration {
	if d, err := time.ParseDuration(s.ProbeTimeout); err == nil && d > 0 {
		return d
	}
	return defaultProbeTimeout
}

// ExpandPath expands leading "~" and environment variables in a path.
// If the input is empty, returns "".
func ExpandPath(p string) string {
	if p == "" {
		return ""
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		home, _ := os.UserHomeDir()
		if home != "" {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return p
}

// Package sshconfig parses an OpenSSH client configuration tree (a root
// "config" file plus the files it pulls in through Include) into a flat,
// ordered list of host entries, and edits those files in place by appending
// or removing whole Host blocks.
//
// The grammar is deliberately smaller than ssh_config(5): one directive per
// line, keyword and value separated by the first run of whitespace, no Match
// blocks, no quoting, no glob Includes.
package sshconfig

import (
	"fmt"
	"sort"
	"strconv"
)

// Host is a single entry of the registry: either a connectable alias parsed
// from a Host block, or a synthetic separator marking the start of the
// entries pulled in by an Include.
type Host struct {
	// Name is the Host alias (e.g. "prod-db-1"). For separators it is a
	// display marker embedding the included file's directory name.
	Name string `json:"name" yaml:"name"`

	HostName     string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	User         string `json:"user,omitempty" yaml:"user,omitempty"`
	Port         uint16 `json:"port,omitempty" yaml:"port,omitempty"`
	IdentityFile string `json:"identity_file,omitempty" yaml:"identity_file,omitempty"`

	// Options holds every directive that is not modelled above, keyed by the
	// lower-cased keyword. Last occurrence wins.
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`

	IsSeparator bool `json:"separator,omitempty" yaml:"separator,omitempty"`

	// Source is the name of the directory holding the file that defines
	// this entry. Empty for entries of the root config file.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// SourcePath/Line locate the Host directive on disk (best-effort).
	SourcePath string `json:"source_path,omitempty" yaml:"source_path,omitempty"`
	Line       int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// HasPort reports whether a usable port was parsed for the host.
func (h Host) HasPort() bool { return h.Port != 0 }

// Option returns the raw value of an unmodelled directive.
func (h Host) Option(key string) (string, bool) {
	if h.Options == nil {
		return "", false
	}
	v, ok := h.Options[key]
	return v, ok
}

// OptionKeys returns the keys of Options in sorted order for stable display.
func (h Host) OptionKeys() []string {
	keys := make([]string, 0, len(h.Options))
	for k := range h.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PortString renders the port, or "" when unset.
func (h Host) PortString() string {
	if h.Port == 0 {
		return ""
	}
	return strconv.Itoa(int(h.Port))
}

// separatorName builds the display marker for an included directory.
func separatorName(dir string) string {
	return fmt.Sprintf("── %s ──", dir)
}

func newSeparator(dir, path string) Host {
	return Host{
		Name:        separatorName(dir),
		IsSeparator: true,
		Source:      dir,
		SourcePath:  path,
	}
}

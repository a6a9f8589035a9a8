package sshconfig

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Registry is the ordered result of one full parse of a config tree. It is
// read-only; edits go through an Editor followed by a new Load.
type Registry struct {
	root  string
	hosts []Host
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	log zerolog.Logger
}

// WithLogger routes parser diagnostics (skipped includes, cycles) to log.
func WithLogger(log zerolog.Logger) LoadOption {
	return func(o *loadOptions) { o.log = log }
}

// Load parses <root>/config and every file it includes. A missing or
// unreadable root file is an error; missing include targets are not.
func Load(root string, opts ...LoadOption) (*Registry, error) {
	o := loadOptions{log: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}

	path := RootConfigPath(root)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	hosts, err := newParser(o.log).parseFile(path, "")
	if err != nil {
		return nil, err
	}
	o.log.Debug().Str("path", path).Int("entries", len(hosts)).Msg("ssh config loaded")

	return &Registry{root: root, hosts: hosts}, nil
}

// NewRegistry wraps an already parsed sequence.
func NewRegistry(root string, hosts []Host) *Registry {
	return &Registry{root: root, hosts: append([]Host(nil), hosts...)}
}

// Root is the working directory the registry was loaded from.
func (r *Registry) Root() string { return r.root }

// Len returns the number of entries, separators included.
func (r *Registry) Len() int { return len(r.hosts) }

// At returns the entry at index i.
func (r *Registry) At(i int) (Host, bool) {
	if i < 0 || i >= len(r.hosts) {
		return Host{}, false
	}
	return r.hosts[i], true
}

// Hosts returns a copy of the ordered entries.
func (r *Registry) Hosts() []Host {
	return append([]Host(nil), r.hosts...)
}

// FirstSelectable returns the index of the first non-separator entry, or 0
// when there is none.
func (r *Registry) FirstSelectable() int {
	for i, h := range r.hosts {
		if !h.IsSeparator {
			return i
		}
	}
	return 0
}

// Find returns the first non-separator entry named name.
func (r *Registry) Find(name string) (Host, bool) {
	if i := r.Index(name); i >= 0 {
		return r.hosts[i], true
	}
	return Host{}, false
}

// ErrHostNotFound is returned by Lookup for an alias with no entry.
var ErrHostNotFound = errors.New("host not found")

// Lookup is Find with an error suitable for returning to a caller.
func (r *Registry) Lookup(name string) (Host, error) {
	if h, ok := r.Find(name); ok {
		return h, nil
	}
	return Host{}, fmt.Errorf("%w: %s", ErrHostNotFound, name)
}

// Index returns the position of the first non-separator entry named name,
// or -1.
func (r *Registry) Index(name string) int {
	for i, h := range r.hosts {
		if !h.IsSeparator && h.Name == name {
			return i
		}
	}
	return -1
}

// Folders lists the distinct non-empty source labels in registry order.
func (r *Registry) Folders() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, h := range r.hosts {
		if h.Source == "" {
			continue
		}
		if _, ok := seen[h.Source]; ok {
			continue
		}
		seen[h.Source] = struct{}{}
		out = append(out, h.Source)
	}
	return out
}

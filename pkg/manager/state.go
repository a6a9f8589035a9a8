package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sshdeck/pkg/atomicfile"
)

// Persistent state for sshdeck.
// Stores the most recently connected aliases in a JSON file next to the
// settings file:
//
//   ~/.config/sshdeck/state.json

const (
	defaultStateFilename = "state.json"
	defaultRecentsLimit  = 50
)

// State represents the on-disk JSON structure.
type State struct {
	Version int `json:"version,omitempty"`

	// Recents is a most-recently-used list of aliases; first is newest.
	Recents []string `json:"recents,omitempty"`

	// Updated tracks the last update time in RFC3339.
	Updated string `json:"updated,omitempty"`
}

// StatePathFor returns the state file that sits beside settingsPath.
func StatePathFor(settingsPath string) string {
	return filepath.Join(filepath.Dir(settingsPath), defaultStateFilename)
}

// LoadState reads the state JSON from path. A missing file yields an empty
// version 1 state.
func LoadState(path string) (*State, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &State{Version: 1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}
	defer f.Close()

	st := &State{}
	if err := json.NewDecoder(f).Decode(st); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	st.Version = max(st.Version, 1)
	st.Recents = cleanRecents(st.Recents)
	return st, nil
}

// SaveState stamps Updated and writes a cleaned copy of st to path,
// creating the parent directory (0700) when needed.
func SaveState(path string, st *State) error {
	if st == nil {
		return errors.New("save state: nil state")
	}
	out := State{
		Version: st.Version,
		Recents: cleanRecents(st.Recents),
		Updated: time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("save state: encode: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("save state: create dir: %w", err)
	}
	if err := atomicfile.WriteFile(path, append(payload, '\n'), 0o600); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// AddRecent moves name to the front of Recents, inserting it if needed.
// Returns true if the state was modified.
func (s *State) AddRecent(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if len(s.Recents) > 0 && s.Recents[0] == name {
		return false
	}
	out := make([]string, 0, len(s.Recents)+1)
	out = append(out, name)
	for _, n := range s.Recents {
		if n != name {
			out = append(out, n)
		}
	}
	if len(out) > defaultRecentsLimit {
		out = out[:defaultRecentsLimit]
	}
	s.Recents = out
	return true
}

// RemoveRecent removes name from Recents. Returns true if modified.
func (s *State) RemoveRecent(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || len(s.Recents) == 0 {
		return false
	}
	out := s.Recents[:0]
	removed := false
	for _, n := range s.Recents {
		if n == name {
			removed = true
			continue
		}
		out = append(out, n)
	}
	s.Recents = out
	return removed
}

// RenameRecent replaces oldName with newName in place, keeping its rank.
func (s *State) RenameRecent(oldName, newName string) bool {
	if oldName == newName {
		return false
	}
	for i, n := range s.Recents {
		if n == oldName {
			s.Recents[i] = newName
			s.Recents = cleanRecents(s.Recents)
			return true
		}
	}
	return false
}

// RecentRank returns the 0-based position of name in Recents, or -1.
func (s *State) RecentRank(name string) int {
	for i, n := range s.Recents {
		if n == name {
			return i
		}
	}
	return -1
}

// cleanRecents trims names, drops blanks and later duplicates, and caps the
// list at defaultRecentsLimit. Nil stays nil.
func cleanRecents(names []string) []string {
	if names == nil {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, min(len(names), defaultRecentsLimit))
	for _, n := range names {
		if len(out) == defaultRecentsLimit {
			break
		}
		if n = strings.TrimSpace(n); n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

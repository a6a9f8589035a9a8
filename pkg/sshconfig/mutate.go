package sshconfig

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"sshdeck/pkg/atomicfile"
)

// Editor applies targeted text edits to the config tree under Root. It never
// touches the in-memory Registry; callers reload after every edit.
type Editor struct {
	// Root is the working directory holding the root config file.
	Root string

	// Backup, when set, copies a file to <file>.bak before rewriting it.
	Backup bool

	Log zerolog.Logger
}

// NewEditor returns an Editor for root that logs to log.
func NewEditor(root string, log zerolog.Logger) *Editor {
	return &Editor{Root: root, Log: log}
}

// AppendResult describes what Append did on disk.
type AppendResult struct {
	// Path is the file the block was appended to.
	Path string
	// Created reports that Path was missing or empty before the append.
	Created bool
	// Registered reports that an Include line for Path was added to the
	// root config file.
	Registered bool
}

// Append writes b as a new Host block at the end of <Root>/<Folder>/config.
//
// Missing directories and the file itself are created. A blank line is
// written first when the file already has content. When the file was new
// (missing or zero bytes) it is registered in the root config via Register.
func (e *Editor) Append(b HostBlock) (AppendResult, error) {
	b = b.Normalize()
	if err := b.Validate(); err != nil {
		return AppendResult{}, fmt.Errorf("append host: %w", err)
	}

	target := e.abs(FolderConfigPath(e.Root, b.Folder))
	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return AppendResult{}, fmt.Errorf("append host: create dir for %s: %w", target, err)
	}

	size, last, err := fileTail(target)
	if err != nil {
		return AppendResult{}, fmt.Errorf("append host: stat %s: %w", target, err)
	}
	isNew := size == 0

	var buf strings.Builder
	if !isNew {
		if last != '\n' {
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	for _, ln := range b.Lines() {
		buf.WriteString(ln)
		buf.WriteByte('\n')
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return AppendResult{}, fmt.Errorf("append host: open %s: %w", target, err)
	}
	if _, err := f.WriteString(buf.String()); err != nil {
		_ = f.Close()
		return AppendResult{}, fmt.Errorf("append host: write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return AppendResult{}, fmt.Errorf("append host: close %s: %w", target, err)
	}
	e.Log.Info().Str("file", target).Str("alias", b.Alias).Bool("new_file", isNew).Msg("host appended")

	res := AppendResult{Path: target, Created: isNew}
	if isNew && b.Folder != "" {
		added, err := e.Register(target)
		if err != nil {
			return res, err
		}
		res.Registered = added
	}
	return res, nil
}

// IncludeLine is the directive that registers target in the root config.
func IncludeLine(target string) string {
	return "Include " + target
}

// Register makes sure the root config file includes target. It returns true
// when the root file was changed.
//
// A missing root file is created holding only the Include line. An existing
// one is left alone when it already has that exact line; otherwise the line
// is inserted first, followed by one blank line and the previous content.
func (e *Editor) Register(target string) (bool, error) {
	line := IncludeLine(e.abs(target))
	root := e.abs(RootConfigPath(e.Root))

	data, err := os.ReadFile(root)
	if err != nil {
		if !isNotExist(err) {
			return false, fmt.Errorf("register include: read %s: %w", root, err)
		}
		if err := os.MkdirAll(filepath.Dir(root), 0o700); err != nil {
			return false, fmt.Errorf("register include: create dir for %s: %w", root, err)
		}
		if err := e.write(root, line+"\n"); err != nil {
			return false, fmt.Errorf("register include: %w", err)
		}
		e.Log.Info().Str("file", root).Str("include", line).Msg("root config created")
		return true, nil
	}

	if hasLine(string(data), line) {
		return false, nil
	}

	var buf strings.Builder
	buf.WriteString(line)
	buf.WriteByte('\n')
	if len(data) > 0 {
		buf.WriteByte('\n')
		buf.Write(data)
	}
	if err := e.write(root, buf.String()); err != nil {
		return false, fmt.Errorf("register include: %w", err)
	}
	e.Log.Info().Str("file", root).Str("include", line).Msg("include registered")
	return true, nil
}

// Remove deletes the Host block named name from the file owning entries
// labelled source. A missing file, or one without the block, is left
// untouched and reported as false.
func (e *Editor) Remove(source, name string) (bool, error) {
	return e.removeFrom(e.abs(FolderConfigPath(e.Root, source)), name)
}

// RemoveEntry deletes h's block from the file it was parsed from, falling
// back to label routing for entries without a recorded path.
func (e *Editor) RemoveEntry(h Host) (bool, error) {
	if h.IsSeparator {
		return false, errors.New("remove host: separators cannot be removed")
	}
	if h.SourcePath != "" {
		return e.removeFrom(h.SourcePath, h.Name)
	}
	return e.Remove(h.Source, h.Name)
}

// Update replaces old with b: the old block is removed and b is appended to
// its (possibly different) folder. The block moves to the end of that file.
func (e *Editor) Update(old Host, b HostBlock) (AppendResult, error) {
	if err := b.Normalize().Validate(); err != nil {
		return AppendResult{}, fmt.Errorf("update host: %w", err)
	}
	if _, err := e.RemoveEntry(old); err != nil {
		return AppendResult{}, err
	}
	return e.Append(b)
}

func (e *Editor) removeFrom(path, name string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("remove host: read %s: %w", path, err)
	}

	out, removed := removeHostBlock(string(data), name)
	if !removed {
		return false, nil
	}
	if err := e.write(path, out); err != nil {
		return false, fmt.Errorf("remove host: %w", err)
	}
	e.Log.Info().Str("file", path).Str("alias", name).Msg("host removed")
	return true, nil
}

// removeHostBlock drops the block whose Host keyword (any case) names
// exactly name. The block runs up to, not including, the next Host or Include
// directive, or to the end of the text, which is where the parser ends it
// too. All other lines are kept, each terminated by a single newline. When
// the dropped block reached the end of the text, one blank line right before
// it goes as well.
func removeHostBlock(content, name string) (string, bool) {
	lines := splitLines(content)
	out := make([]string, 0, len(lines))
	removed := false

	for i := 0; i < len(lines); i++ {
		if key, val, ok := splitDirective(lines[i]); !ok || key != "host" || val != name {
			out = append(out, lines[i])
			continue
		}
		removed = true

		j := i + 1
		for j < len(lines) && !endsBlock(lines[j]) {
			j++
		}
		if j == len(lines) {
			if n := len(out); n > 0 && strings.TrimSpace(out[n-1]) == "" {
				out = out[:n-1]
			}
			break
		}
		// Line j starts the next block; revisit it in case it repeats name.
		i = j - 1
	}

	if !removed {
		return content, false
	}
	var buf strings.Builder
	for _, ln := range out {
		buf.WriteString(ln)
		buf.WriteByte('\n')
	}
	return buf.String(), true
}

func endsBlock(line string) bool {
	key, _, ok := splitDirective(line)
	return ok && (key == "host" || key == "include")
}

// splitLines splits text into lines without their terminators, accepting
// both \n and \r\n.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

func hasLine(content, line string) bool {
	for _, ln := range splitLines(content) {
		if strings.TrimSpace(ln) == line {
			return true
		}
	}
	return false
}

// fileTail reports the size of path and its last byte. A missing file has
// size 0.
func fileTail(path string) (int64, byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if isNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, 0, err
	}
	size := fi.Size()
	if size == 0 {
		return 0, 0, nil
	}
	var b [1]byte
	if _, err := f.ReadAt(b[:], size-1); err != nil && !errors.Is(err, io.EOF) {
		return 0, 0, err
	}
	return size, b[0], nil
}

func (e *Editor) abs(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}

// write replaces path with content, keeping the existing file mode.
func (e *Editor) write(path, content string) error {
	mode := os.FileMode(0o600)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
		if e.Backup {
			if data, err := os.ReadFile(path); err == nil {
				_ = os.WriteFile(path+".bak", data, mode)
			}
		}
	}
	return atomicfile.WriteFile(path, []byte(content), mode)
}

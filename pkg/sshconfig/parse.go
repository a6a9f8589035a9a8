package sshconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
)

// Parse converts one file's text, and everything it includes, into an
// ordered sequence of entries. baseDir anchors relative Include arguments and
// source is stamped on the Host entries this text defines directly.
//
// Parse never fails on malformed directives; it only returns I/O errors from
// reading r or an existing included file.
func Parse(r io.Reader, baseDir, source string) ([]Host, error) {
	p := newParser(zerolog.Nop())
	return p.parse(r, "", baseDir, source)
}

type parser struct {
	log zerolog.Logger

	// chain holds the absolute paths of the files currently being parsed,
	// outermost first; an Include pointing back into it is skipped.
	chain map[string]struct{}
}

func newParser(log zerolog.Logger) *parser {
	return &parser{log: log, chain: map[string]struct{}{}}
}

func (p *parser) parseFile(path, source string) ([]Host, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load ssh config: %w", err)
	}
	defer f.Close()

	p.chain[path] = struct{}{}
	defer delete(p.chain, path)

	return p.parse(f, path, filepath.Dir(path), source)
}

func (p *parser) parse(r io.Reader, path, baseDir, source string) ([]Host, error) {
	var (
		out    []Host
		cur    *Host
		lineNo int
	)

	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	for sc.Scan() {
		lineNo++
		key, val, ok := splitDirective(sc.Text())
		if !ok {
			continue
		}

		switch key {
		case "host":
			flush()
			cur = &Host{
				Name:       val,
				Source:     source,
				SourcePath: path,
				Line:       lineNo,
			}
		case "hostname":
			if cur != nil {
				cur.HostName = val
			}
		case "user":
			if cur != nil {
				cur.User = val
			}
		case "identityfile":
			if cur != nil {
				cur.IdentityFile = val
			}
		case "port":
			if cur != nil {
				cur.Port = parsePort(val)
			}
		case "include":
			flush()
			children, err := p.include(val, baseDir)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
		default:
			if cur != nil {
				if cur.Options == nil {
					cur.Options = map[string]string{}
				}
				cur.Options[key] = val
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan ssh config %s: %w", path, err)
	}
	flush()

	return out, nil
}

// include resolves and parses one Include target. A missing target yields
// nothing; so does a target already on the current include chain.
func (p *parser) include(arg, baseDir string) ([]Host, error) {
	target, err := ResolveInclude(arg, baseDir)
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}

	if !fileExists(target) {
		p.log.Debug().Str("include", arg).Str("path", target).Msg("include target missing, skipped")
		return nil, nil
	}
	if _, busy := p.chain[target]; busy {
		p.log.Warn().Str("include", arg).Str("path", target).Msg("include cycle, skipped")
		return nil, nil
	}

	label := dirLabel(target)
	children, err := p.parseFile(target, label)
	if err != nil {
		return nil, err
	}
	p.log.Debug().Str("path", target).Int("entries", len(children)).Msg("include parsed")

	out := make([]Host, 0, len(children)+1)
	out = append(out, newSeparator(label, target))
	return append(out, children...), nil
}

// splitDirective splits a config line into a lower-cased keyword and its
// trimmed value. Blank lines, comments and keywords without a value are
// reported as !ok.
func splitDirective(line string) (key, val string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return "", "", false
	}
	key = strings.ToLower(line[:i])
	val = strings.TrimSpace(line[i:])
	if val == "" {
		return "", "", false
	}
	return key, val, true
}

// parsePort returns 0 for anything that is not a port in 1..65535.
func parsePort(s string) uint16 {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(n)
}

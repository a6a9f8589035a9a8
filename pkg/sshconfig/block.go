package sshconfig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// blockIndent prefixes every directive written under a Host line.
const blockIndent = "    "

// HostBlock is the editable form of a host: the values typed into the add/
// edit form or passed on the command line. Optional fields are written only
// when non-empty.
type HostBlock struct {
	// Folder selects the target file <root>/<Folder>/config. Empty means
	// the root config file itself.
	Folder string

	Alias    string
	HostName string
	User     string

	Port         string
	IdentityFile string
	LocalForward string
}

// FormFromHost pre-fills a HostBlock from a parsed entry so it can be edited.
func FormFromHost(h Host) HostBlock {
	lf, _ := h.Option("localforward")
	return HostBlock{
		Folder:       h.Source,
		Alias:        h.Name,
		HostName:     h.HostName,
		User:         h.User,
		Port:         h.PortString(),
		IdentityFile: h.IdentityFile,
		LocalForward: lf,
	}
}

// Normalize trims surrounding whitespace from every field.
func (b HostBlock) Normalize() HostBlock {
	b.Folder = strings.TrimSpace(b.Folder)
	b.Alias = strings.TrimSpace(b.Alias)
	b.HostName = strings.TrimSpace(b.HostName)
	b.User = strings.TrimSpace(b.User)
	b.Port = strings.TrimSpace(b.Port)
	b.IdentityFile = strings.TrimSpace(b.IdentityFile)
	b.LocalForward = strings.TrimSpace(b.LocalForward)
	return b
}

// Validate checks the fields the written block depends on.
func (b HostBlock) Validate() error {
	var errs []error
	if b.Alias == "" {
		errs = append(errs, errors.New("host is required"))
	} else if strings.IndexFunc(b.Alias, unicode.IsSpace) >= 0 {
		errs = append(errs, fmt.Errorf("host %q must not contain whitespace", b.Alias))
	}
	if b.HostName == "" {
		errs = append(errs, errors.New("hostname is required"))
	}
	if b.User == "" {
		errs = append(errs, errors.New("user is required"))
	}
	if b.Port != "" {
		if n, err := strconv.ParseUint(b.Port, 10, 16); err != nil || n == 0 {
			errs = append(errs, fmt.Errorf("port %q must be a number between 1 and 65535", b.Port))
		}
	}
	if b.Folder != "" {
		if b.Folder == "." || b.Folder == ".." || strings.ContainsAny(b.Folder, `/\`) {
			errs = append(errs, fmt.Errorf("folder %q must be a single directory name", b.Folder))
		}
	}
	return errors.Join(errs...)
}

// Lines renders the block exactly as it is appended to disk.
func (b HostBlock) Lines() []string {
	out := []string{
		"Host " + b.Alias,
		blockIndent + "Hostname " + b.HostName,
		blockIndent + "User " + b.User,
	}
	if b.Port != "" {
		out = append(out, blockIndent+"Port "+b.Port)
	}
	if b.IdentityFile != "" {
		out = append(out, blockIndent+"IdentityFile "+b.IdentityFile)
	}
	if b.LocalForward != "" {
		out = append(out, blockIndent+"LocalForward "+b.LocalForward)
	}
	return out
}

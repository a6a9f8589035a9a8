package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultSSHPort is probed when a host has no Port directive.
const DefaultSSHPort uint16 = 22

// Probe reports whether a TCP connection to hostname:port can be opened
// within timeout (or before ctx is done, whichever is first).
func Probe(ctx context.Context, hostname string, port uint16, timeout time.Duration) bool {
	hostname = strings.TrimSpace(hostname)
	if hostname == "" || port == 0 {
		return false
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(hostname, strconv.Itoa(int(port))))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// BuildSSHCommand constructs the argv for connecting to an alias. Every
// connection setting comes from the ssh config itself, so the alias is the
// only destination argument.
func BuildSSHCommand(binary, alias string, extraArgs ...string) []string {
	if strings.TrimSpace(binary) == "" {
		binary = "ssh"
	}
	cmd := []string{binary}
	cmd = append(cmd, extraArgs...)
	return append(cmd, alias)
}

// Launcher starts the external ssh client with the terminal handed over.
type Launcher struct {
	Binary string

	// ConfigFile, when set, is passed as "-F <file>" so a non-default
	// workdir is honoured by ssh too.
	ConfigFile string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewLauncher returns a Launcher wired to the process's stdio.
func NewLauncher(binary, configFile string) Launcher {
	return Launcher{
		Binary:     binary,
		ConfigFile: configFile,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

// Argv returns the full command line for alias.
func (l Launcher) Argv(alias string) []string {
	var extra []string
	if l.ConfigFile != "" {
		extra = append(extra, "-F", l.ConfigFile)
	}
	return BuildSSHCommand(l.Binary, alias, extra...)
}

// Command builds the exec.Cmd for alias without starting it.
func (l Launcher) Command(alias string) *exec.Cmd {
	argv := l.Argv(alias)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	return cmd
}

// Run connects to alias and blocks until ssh exits.
func (l Launcher) Run(alias string) error {
	return LaunchError(l.Command(alias).Run())
}

// LaunchError turns an ssh exit into a user-facing reason; nil stays nil.
func LaunchError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("ssh exited with code %d", exitErr.ExitCode())
	}
	return fmt.Errorf("start ssh: %w", err)
}

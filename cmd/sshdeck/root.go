package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sshdeck/pkg/manager"
	"sshdeck/pkg/sshconfig"
)

// Command group IDs for organizing help output
const (
	GroupBrowse = "browse"
	GroupEdit   = "edit"
	GroupConfig = "config"
)

// app is the state shared by every command. Flags fill the first block;
// setup fills the rest before any RunE runs.
type app struct {
	out    io.Writer
	errOut io.Writer

	settingsPath string
	workdirFlag  string
	verbose      bool

	settings manager.Settings
	level    zerolog.Level
	log      zerolog.Logger

	// isTTY decides whether the bare command opens the TUI.
	isTTY func() bool
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		out:    out,
		errOut: errOut,
		log:    zerolog.Nop(),
		isTTY: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		},
	}
}

// setup resolves and loads the settings file, applies flag overrides and
// builds the stderr logger.
func (a *app) setup() error {
	path, err := manager.SettingsPath(a.settingsPath)
	if err != nil {
		return err
	}
	s, err := manager.LoadSettings(path)
	if err != nil {
		return err
	}
	if a.workdirFlag != "" {
		s.Workdir = manager.ExpandPath(a.workdirFlag)
	}

	a.settingsPath = path
	a.settings = s
	a.level = manager.EffectiveLevel(s.LogLevel, a.verbose)
	a.log = manager.NewConsoleLogger(a.errOut, a.level)
	a.log.Debug().Str("settings", path).Str("workdir", s.Workdir).Msg("settings loaded")
	return nil
}

func (a *app) workdir() string { return a.settings.Workdir }

func (a *app) registry() (*sshconfig.Registry, error) {
	return sshconfig.Load(a.workdir(), sshconfig.WithLogger(a.log))
}

func (a *app) editor() *sshconfig.Editor {
	e := sshconfig.NewEditor(a.workdir(), a.log)
	e.Backup = a.settings.Backup
	return e
}

// launcher passes -F only when the tree lives outside ~/.ssh; ssh already
// reads ~/.ssh/config on its own.
func (a *app) launcher() manager.Launcher {
	configFile := ""
	if !isDefaultWorkdir(a.workdir()) {
		configFile = sshconfig.RootConfigPath(a.workdir())
	}
	return manager.NewLauncher(a.settings.SSHBinary, configFile)
}

func isDefaultWorkdir(dir string) bool {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return false
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return filepath.Clean(abs) == filepath.Join(home, ".ssh")
}

func (a *app) statePath() string { return manager.StatePathFor(a.settingsPath) }

func (a *app) loadState() *manager.State {
	st, err := manager.LoadState(a.statePath())
	if err != nil {
		a.log.Warn().Err(err).Msg("state unreadable, starting fresh")
		return &manager.State{Version: 1}
	}
	return st
}

// updateState loads the state, applies fn and saves it when fn reports a
// change. Failures are logged; recents are a convenience.
func (a *app) updateState(fn func(*manager.State) bool) {
	st := a.loadState()
	if !fn(st) {
		return
	}
	if err := manager.SaveState(a.statePath(), st); err != nil {
		a.log.Warn().Err(err).Msg("save state failed")
	}
}

func (a *app) runTUI() error {
	// The TUI owns the terminal: diagnostics move to a log file.
	if f, err := manager.OpenLogFile(filepath.Dir(a.settingsPath)); err == nil {
		defer f.Close()
		a.log = manager.NewFileLogger(f, a.level)
	} else {
		a.log.Warn().Err(err).Msg("tui log disabled")
		a.log = zerolog.Nop()
	}

	reg, err := a.registry()
	if err != nil {
		return err
	}
	return manager.RunTUI(manager.TUIOptions{
		Root:      a.workdir(),
		Registry:  reg,
		Editor:    a.editor(),
		Launcher:  a.launcher(),
		Timeout:   a.settings.Timeout(),
		State:     a.loadState(),
		StatePath: a.statePath(),
		Log:       a.log,
		Theme:     manager.LoadTheme(),
	})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sshdeck",
		Short: "Browse, edit and connect to ssh host aliases",
		Long: `sshdeck manages the Host blocks of an OpenSSH client config tree.

The tree is a root "config" file in the working directory (default ~/.ssh)
plus one <folder>/config file per folder, pulled in with Include lines.
Without a subcommand sshdeck opens an interactive browser when attached to a
terminal and prints the host list otherwise.`,
		Args:                       cobra.NoArgs,
		SilenceUsage:               true,
		SilenceErrors:              true,
		SuggestionsMinimumDistance: 2,
		Version:                    versionString(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "completion", "__complete", "help":
				return nil
			}
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.isTTY() {
				return runList(a, listOptions{output: "table"})
			}
			return a.runTUI()
		},
	}
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)
	cmd.SetVersionTemplate("{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.settingsPath, "config", "", "settings file (default $SSHDECK_CONFIG or ~/.config/sshdeck/config.toml)")
	pf.StringVar(&a.workdirFlag, "workdir", "", "ssh config directory, overrides the settings file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddGroup(
		&cobra.Group{ID: GroupBrowse, Title: "Browse Commands:"},
		&cobra.Group{ID: GroupEdit, Title: "Edit Commands:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration Commands:"},
	)

	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newShowCmd(a))
	cmd.AddCommand(newConnectCmd(a))
	cmd.AddCommand(newProbeCmd(a))

	cmd.AddCommand(newAddCmd(a))
	cmd.AddCommand(newEditCmd(a))
	cmd.AddCommand(newRemoveCmd(a))

	cmd.AddCommand(newSettingsCmd(a))
	return cmd
}

package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "settings",
		Short:   "Print the settings file path and effective values",
		GroupID: GroupConfig,
		Args:    cobra.NoArgs,
		Long: `Print the effective settings as TOML, after --workdir is applied.

The settings file is created with defaults the first time sshdeck runs.
Its location is --config, else $SSHDECK_CONFIG, else
$XDG_CONFIG_HOME/sshdeck/config.toml (~/.config/sshdeck/config.toml).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "# %s\n", a.settingsPath)
			return toml.NewEncoder(a.out).Encode(a.settings)
		},
	}
	return cmd
}

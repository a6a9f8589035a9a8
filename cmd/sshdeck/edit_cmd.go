package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sshdeck/pkg/manager"
	"sshdeck/pkg/sshconfig"
)

// bindBlockFlags registers one flag per HostBlock field.
func bindBlockFlags(cmd *cobra.Command, b *sshconfig.HostBlock) {
	f := cmd.Flags()
	f.StringVar(&b.Folder, "folder", "", "folder under the workdir (empty = root config file)")
	f.StringVar(&b.Alias, "host", "", "Host alias")
	f.StringVar(&b.HostName, "hostname", "", "Hostname (address or DNS name)")
	f.StringVar(&b.User, "user", "", "login user")
	f.StringVar(&b.Port, "port", "", "port (1-65535)")
	f.StringVar(&b.IdentityFile, "identity-file", "", "private key path")
	f.StringVar(&b.LocalForward, "local-forward", "", `LocalForward spec, e.g. "8080 localhost:80"`)
}

func newAddCmd(a *app) *cobra.Command {
	var b sshconfig.HostBlock

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Append a new Host block",
		GroupID: GroupEdit,
		Args:    cobra.NoArgs,
		Long: `Append a Host block to <workdir>/<folder>/config.

The folder directory and file are created when missing, and a new file is
registered in the root config with an Include line.`,
		Example: `  sshdeck add --folder work --host db --hostname 10.0.0.5 --user admin
  sshdeck add --host jump --hostname jump.example.com --user me --port 2222`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reg, err := a.registry(); err == nil {
				if h, ok := reg.Find(b.Alias); ok {
					a.log.Warn().Str("alias", b.Alias).Str("file", h.SourcePath).Msg("alias already defined; ssh uses the first match")
				}
			}

			res, err := a.editor().Append(b)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s to %s\n", b.Alias, res.Path)
			if res.Registered {
				fmt.Fprintf(a.out, "Registered %s in %s\n", res.Path, sshconfig.RootConfigPath(a.workdir()))
			}
			return nil
		},
	}
	bindBlockFlags(cmd, &b)
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var b sshconfig.HostBlock

	cmd := &cobra.Command{
		Use:     "edit <alias>",
		Short:   "Change an existing host",
		GroupID: GroupEdit,
		Args:    cobra.ExactArgs(1),
		Long: `Replace a host's block. Flags that are not given keep their current
values. The old block is removed and the new one appended to the end of its
folder's file, so --folder moves a host between files.`,
		Example: `  sshdeck edit db --port 2200
  sshdeck edit db --host db-old
  sshdeck edit db --folder archive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			old, err := reg.Lookup(args[0])
			if err != nil {
				return err
			}

			next := sshconfig.FormFromHost(old)
			flags := cmd.Flags()
			overrides := []struct {
				flag string
				dst  *string
				val  string
			}{
				{"folder", &next.Folder, b.Folder},
				{"host", &next.Alias, b.Alias},
				{"hostname", &next.HostName, b.HostName},
				{"user", &next.User, b.User},
				{"port", &next.Port, b.Port},
				{"identity-file", &next.IdentityFile, b.IdentityFile},
				{"local-forward", &next.LocalForward, b.LocalForward},
			}
			for _, o := range overrides {
				if flags.Changed(o.flag) {
					*o.dst = o.val
				}
			}

			res, err := a.editor().Update(old, next)
			if err != nil {
				return err
			}
			if next.Alias != old.Name {
				a.updateState(func(st *manager.State) bool { return st.RenameRecent(old.Name, next.Alias) })
			}
			fmt.Fprintf(a.out, "Updated %s in %s\n", next.Alias, res.Path)
			return nil
		},
	}
	bindBlockFlags(cmd, &b)
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <alias>",
		Short:   "Remove a host's block",
		Aliases: []string{"remove"},
		GroupID: GroupEdit,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			h, err := reg.Lookup(args[0])
			if err != nil {
				return err
			}
			removed, err := a.editor().RemoveEntry(h)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no \"Host %s\" line in %s", h.Name, h.SourcePath)
			}
			a.updateState(func(st *manager.State) bool { return st.RemoveRecent(h.Name) })
			fmt.Fprintf(a.out, "Removed %s from %s\n", h.Name, h.SourcePath)
			return nil
		},
	}
	return cmd
}

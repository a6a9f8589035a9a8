package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sshdeck/pkg/manager"
)

func newConnectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connect <alias>",
		Short:   "Open an ssh session to a host",
		Aliases: []string{"ssh"},
		GroupID: GroupBrowse,
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

			l := a.launcher()
			a.log.Debug().Strs("argv", l.Argv(h.Name)).Msg("launching ssh")
			if err := l.Run(h.Name); err != nil {
				return err
			}
			a.updateState(func(st *manager.State) bool { return st.AddRecent(h.Name) })
			return nil
		},
	}
	return cmd
}

func newProbeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "probe <alias>",
		Short:   "Check that a host's ssh port accepts TCP connections",
		GroupID: GroupBrowse,
		Args:    cobra.ExactArgs(1),
		Long: `Open (and immediately close) a TCP connection to the host's Hostname on
its Port, or 22 when no Port is set. Exits non-zero when the port does not
answer within the settings' probe_timeout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			h, err := reg.Lookup(args[0])
			if err != nil {
				return err
			}
			if h.HostName == "" {
				return fmt.Errorf("%s has no Hostname configured", h.Name)
			}
			port := h.Port
			if port == 0 {
				port = manager.DefaultSSHPort
			}

			timeout := a.settings.Timeout()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if !manager.Probe(ctx, h.HostName, port, timeout) {
				return fmt.Errorf("%s (%s) did not answer on port %d within %s", h.Name, h.HostName, port, timeout)
			}
			fmt.Fprintf(a.out, "%s (%s) answered on port %d\n", h.Name, h.HostName, port)
			return nil
		},
	}
	return cmd
}

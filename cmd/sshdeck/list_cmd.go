package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sshdeck/pkg/sshconfig"
)

type listOptions struct {
	output string
	folder string
}

func newListCmd(a *app) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List host aliases",
		Aliases: []string{"ls"},
		GroupID: GroupBrowse,
		Args:    cobra.NoArgs,
		Long: `List every host alias in config-file order.

Hosts pulled in through Include are grouped under their folder name. The
yaml and json outputs carry the full entry including unmodelled options.`,
		Example: `  sshdeck list                 # Table of all hosts
  sshdeck list --folder work   # Only hosts from work/config
  sshdeck list -o yaml         # Export as YAML`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(a, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "output format: table, yaml or json")
	cmd.Flags().StringVar(&opts.folder, "folder", "", "only hosts from this folder")
	return cmd
}

func runList(a *app, opts listOptions) error {
	reg, err := a.registry()
	if err != nil {
		return err
	}

	hosts := make([]sshconfig.Host, 0, reg.Len())
	for _, h := range reg.Hosts() {
		if h.IsSeparator {
			continue
		}
		if opts.folder != "" && h.Source != opts.folder {
			continue
		}
		hosts = append(hosts, h)
	}

	switch strings.ToLower(opts.output) {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(hosts)
	case "yaml", "yml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(hosts); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "table", "":
		if len(hosts) == 0 {
			fmt.Fprintln(a.out, "No hosts found")
			return nil
		}
		fmt.Fprint(a.out, renderHostTable(hosts))
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, yaml or json)", opts.output)
	}
}

// renderHostTable lays hosts out as a borderless table.
func renderHostTable(hosts []sshconfig.Host) string {
	rows := make([][]string, 0, len(hosts))
	for _, h := range hosts {
		rows = append(rows, []string{h.Name, h.HostName, h.User, h.PortString(), folderLabel(h.Source)})
	}
	t := table.New().
		Headers("HOST", "HOSTNAME", "USER", "PORT", "FOLDER").
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
	return t.String() + "\n"
}

func folderLabel(source string) string {
	if source == "" {
		return "-"
	}
	return source
}

func newShowCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "show <alias>",
		Short:   "Show one host",
		GroupID: GroupBrowse,
		Args:    cobra.ExactArgs(1),
		Example: `  sshdeck show prod-db
  sshdeck show prod-db -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			h, err := reg.Lookup(args[0])
			if err != nil {
				return err
			}

			switch strings.ToLower(output) {
			case "json":
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(h)
			case "yaml", "yml":
				data, err := yaml.Marshal(h)
				if err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}
				_, err = a.out.Write(data)
				return err
			}

			row := func(k, v string) {
				if v != "" {
					fmt.Fprintf(a.out, "%-14s%s\n", k, v)
				}
			}
			row("Host", h.Name)
			row("Hostname", h.HostName)
			row("User", h.User)
			row("Port", h.PortString())
			row("IdentityFile", h.IdentityFile)
			for _, k := range h.OptionKeys() {
				row(k, h.Options[k])
			}
			row("Folder", folderLabel(h.Source))
			if h.SourcePath != "" {
				row("File", fmt.Sprintf("%s:%d", h.SourcePath, h.Line))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, yaml or json")
	return cmd
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"portalctl/internal/app"
	"portalctl/internal/cli"
	"portalctl/internal/portal"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "List portal resources",
		Long: `List clients, environments and processes visible to the signed-in user.

Examples:
  portalctl get clients
  portalctl get environments
  portalctl get environments --details   # staff only
  portalctl get processes --environment 10 -o yaml`,
	}

	getCmd.AddCommand(newGetClientsCmd(opts))
	getCmd.AddCommand(newGetEnvironmentsCmd(opts))
	getCmd.AddCommand(newGetProcessesCmd(opts))
	return getCmd
}

func newGetClientsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "clients",
		Aliases: []string{"client"},
		Short:   "List clients",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			return opts.runWithServices(cmd, func(ctx context.Context, svc *app.Services) error {
				clients, err := svc.Client.ListClients(ctx)
				if err != nil {
					return err
				}
				return p.Print(clients, func() *cli.Table {
					t := cli.NewTable("ID", "Name")
					for _, c := range clients {
						t.AppendRow(c.ID, c.Name)
					}
					return t
				})
			})
		},
	}
}

func newGetEnvironmentsCmd(opts *rootOptions) *cobra.Command {
	var details bool

	cmd := &cobra.Command{
		Use:     "environments",
		Aliases: []string{"environment", "env"},
		Short:   "List client environments",
		Long: `List the client environments you can access. The current environment
is marked with '*'.

With --details the current environment and its credentials are shown
instead. This view is only available to staff accounts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			return opts.runWithServices(cmd, func(ctx context.Context, svc *app.Services) error {
				if details {
					return printEnvironmentDetails(ctx, svc, p)
				}
				envs, err := svc.Client.UserEnvironments(ctx)
				if err != nil {
					return err
				}
				return p.Print(envs, func() *cli.Table {
					current := make(map[int]bool, len(envs.CurrentEnvironmentIDs))
					for _, id := range envs.CurrentEnvironmentIDs {
						current[id] = true
					}
					t := cli.NewTable("Current", "ID", "Name", "Client", "Environment", "Active", "Credentials")
					for _, e := range envs.Environments {
						marker := ""
						if current[e.ID] {
							marker = "*"
						}
						t.AppendRow(marker, e.ID, e.Name, e.ClientName, e.EnvironmentName, e.IsActive, e.CredentialsCount)
					}
					return t
				})
			})
		},
	}

	cmd.Flags().BoolVar(&details, "details", false, "Show the current environment and its credentials (staff only)")
	return cmd
}

func printEnvironmentDetails(ctx context.Context, svc *app.Services, p *cli.Printer) error {
	if svc.Session.IsAuthenticated() && !svc.Session.IsStaff() {
		return fmt.Errorf("environment details are only available to staff accounts")
	}

	details, err := svc.Client.EnvironmentDetails(ctx)
	if err != nil {
		return err
	}
	return p.Print(details, func() *cli.Table {
		t := cli.NewTable("Environment", "Client", "Credential", "Type", "Updated")
		env := details.Environment
		for _, c := range details.Credentials {
			t.AppendRow(env.Name, env.ClientName, c.Name, c.CredentialTypeName, c.UpdatedAt)
		}
		if len(details.Credentials) == 0 {
			t.AppendRow(env.Name, env.ClientName, nil, nil, nil)
		}
		return t
	})
}

func newGetProcessesCmd(opts *rootOptions) *cobra.Command {
	var envID int

	cmd := &cobra.Command{
		Use:     "processes",
		Aliases: []string{"process", "proc"},
		Short:   "List processes of a client environment",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			return opts.runWithServices(cmd, func(ctx context.Context, svc *app.Services) error {
				processes, err := svc.Client.ProcessesByEnvironment(ctx, envID)
				if err != nil {
					return err
				}
				return p.Print(processes, func() *cli.Table {
					t := cli.NewTable("ID", "Name", "Credential Type", "Mode", "Filters")
					for _, proc := range processes {
						t.AppendRow(proc.ID, proc.Name, proc.CredentialTypeName, proc.ExecutionModeName, filterSummary(proc))
					}
					return t
				})
			})
		},
	}

	cmd.Flags().IntVarP(&envID, "environment", "e", 0, "Client environment ID")
	_ = cmd.MarkFlagRequired("environment")
	return cmd
}

// filterSummary lists the filter paths of a process, required ones marked with '*'.
func filterSummary(proc portal.Process) string {
	filters := proc.DefaultPayload.Metadata.AvailableFilters
	if len(filters) == 0 {
		return "-"
	}
	summary := ""
	for i, f := range filters {
		if i > 0 {
			summary += ","
		}
		summary += f.Path
		if f.Required {
			summary += "*"
		}
	}
	return summary
}

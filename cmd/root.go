package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"portalctl/internal/app"
	"portalctl/internal/cli"
	"portalctl/internal/config"
)

var version = "dev"

// SetVersion sets the version reported by `portalctl version` and --version.
// It is typically called from main with a value injected at build time.
func SetVersion(v string) {
	version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return version
}

// rootOptions carries the global flags and I/O shared by all subcommands.
type rootOptions struct {
	flags cli.CommandFlags
}

// newRootCmd builds the full command tree.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	defaultConfigPath, err := config.GetDefaultConfigPath()
	if err != nil {
		defaultConfigPath = ""
	}

	rootCmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Command line client for the integration portal",
		Long: `portalctl signs in to the integration portal and works with its
clients, environments and data processes.

Access tokens are refreshed automatically when they expire. When the
refresh token is rejected the stored credentials are removed and you need
to run 'portalctl auth login' again.`,
		Version: version,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.flags.ConfigPath == "" {
				return fmt.Errorf("could not determine the configuration directory, use --config-path")
			}
			return cli.ValidateOutputFormat(opts.flags.OutputFormat)
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "portalctl version %s\n" .Version}}`)
	cli.RegisterCommonFlags(rootCmd, &opts.flags, defaultConfigPath)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newAuthCmd(opts))
	rootCmd.AddCommand(newGetCmd(opts))
	rootCmd.AddCommand(newProcessCmd(opts))
	return rootCmd
}

// Execute runs portalctl and exits with a code describing the outcome.
func Execute() {
	err := newRootCmd().ExecuteContext(context.Background())
	os.Exit(cli.ExitCode(err))
}

// runWithServices bootstraps the application, runs fn and translates the
// resulting error for display.
func (o *rootOptions) runWithServices(cmd *cobra.Command, fn func(ctx context.Context, svc *app.Services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	appCfg := app.NewConfig(o.flags.ConfigPath, o.flags.LogLevel)
	appCfg.LogOutput = cmd.ErrOrStderr()
	appCfg.UserAgent = "portalctl/" + version

	application, err := app.NewApplication(ctx, appCfg)
	if err != nil {
		var cfgErrs config.ConfigurationErrorCollection
		if errors.As(err, &cfgErrs) && len(cfgErrs.Errors) > 1 {
			fmt.Fprintln(cmd.ErrOrStderr(), cfgErrs.GetDetailedReport())
		}
		return err
	}
	defer application.Close()

	svc := application.Services()
	return cli.Classify(fn(ctx, svc), svc.Config.API.BaseURL)
}

// printer returns the output printer for the global -o flag.
func (o *rootOptions) printer(cmd *cobra.Command) (*cli.Printer, error) {
	return o.flags.Printer(cmd.OutOrStdout())
}

// progress starts a spinner on stderr unless --quiet is set.
func (o *rootOptions) progress(cmd *cobra.Command, suffix string) *cli.Progress {
	return cli.StartProgress(cmd.ErrOrStderr(), o.flags.Quiet, suffix)
}

// info prints a status line to stderr unless --quiet is set.
func (o *rootOptions) info(cmd *cobra.Command, format string, args ...any) {
	if !o.flags.Quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
}

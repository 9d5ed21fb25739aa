package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// CommandFlags holds the global flag values shared by all portalctl commands.
type CommandFlags struct {
	// OutputFormat specifies the desired output format (table, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// ConfigPath specifies the configuration directory
	ConfigPath string
	// LogLevel overrides logging.level from config.yaml
	LogLevel string
}

// RegisterCommonFlags registers the global flags as persistent flags of cmd.
//
// The registered flags are:
//   - --output/-o: Output format (table, json, yaml), default: "table"
//   - --no-headers: Suppress header row in table output
//   - --quiet/-q: Suppress non-essential output
//   - --config-path: Configuration directory
//   - --log-level: Log level (debug, info, warn, error)
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags, defaultConfigPath string) {
	cmd.PersistentFlags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable), "Output format (table, json, yaml)")
	cmd.PersistentFlags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config-path", defaultConfigPath, "Configuration directory")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn or error (env: PORTAL_LOG_LEVEL)")
}

// Printer validates the output flags and returns a Printer writing to out.
func (f *CommandFlags) Printer(out io.Writer) (*Printer, error) {
	if err := ValidateOutputFormat(f.OutputFormat); err != nil {
		return nil, err
	}
	return &Printer{
		Out:       out,
		Format:    OutputFormat(f.OutputFormat),
		NoHeaders: f.NoHeaders,
	}, nil
}

package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"portalctl/internal/app"
	"portalctl/internal/cli"
	"portalctl/internal/portal"
)

func newProcessCmd(opts *rootOptions) *cobra.Command {
	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Look up filter values and run processes",
		Long: `Work with the data processes of a client environment.

Examples:
  portalctl process lookup 5 AcademicYear --environment 10
  portalctl process run 5 --environment 10 --filter AcademicYear=2024`,
	}

	processCmd.AddCommand(newProcessLookupCmd(opts))
	processCmd.AddCommand(newProcessRunCmd(opts))
	return processCmd
}

func newProcessLookupCmd(opts *rootOptions) *cobra.Command {
	var envID int

	cmd := &cobra.Command{
		Use:   "lookup PROCESS_ID TYPE",
		Short: "List the allowed values of a process filter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			processID, err := parseProcessID(args[0])
			if err != nil {
				return err
			}
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			return opts.runWithServices(cmd, func(ctx context.Context, svc *app.Services) error {
				lookup, err := svc.Client.FilterValues(ctx, processID, args[1], envID)
				if err != nil {
					return err
				}
				return p.Print(lookup, func() *cli.Table {
					t := cli.NewTable("Value", "Label")
					for _, item := range lookup.Items {
						t.AppendRow(item.Value, item.Label)
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

func newProcessRunCmd(opts *rootOptions) *cobra.Command {
	var envID int
	var rawFilters []string

	cmd := &cobra.Command{
		Use:   "run PROCESS_ID",
		Short: "Run a process and print its rows",
		Long: `Run a process against a client environment.

Filters are given as path=value. Paths must be filters the process
declares; 'portalctl get processes' lists them with required ones marked
'*'. Integer values are sent as numbers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processID, err := parseProcessID(args[0])
			if err != nil {
				return err
			}
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			return opts.runWithServices(cmd, func(ctx context.Context, svc *app.Services) error {
				proc, err := findProcess(ctx, svc, processID, envID)
				if err != nil {
					return err
				}
				filters, err := buildFilters(proc, rawFilters)
				if err != nil {
					return err
				}

				progress := opts.progress(cmd, fmt.Sprintf("Running %s...", proc.Name))
				result, err := svc.Client.ExecuteProcess(ctx, processID, envID, filters)
				if err != nil {
					progress.Stop(false, fmt.Sprintf("%s failed", proc.Name))
					return err
				}
				progress.Stop(true, fmt.Sprintf("%s %s (%d rows)", proc.Name, result.Status, len(result.Data)))

				return p.Print(result, func() *cli.Table {
					return resultTable(proc, result.Data)
				})
			})
		},
	}

	cmd.Flags().IntVarP(&envID, "environment", "e", 0, "Client environment ID")
	cmd.Flags().StringArrayVarP(&rawFilters, "filter", "f", nil, "Filter as path=value (repeatable)")
	_ = cmd.MarkFlagRequired("environment")
	return cmd
}

func parseProcessID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid process id %q", s)
	}
	return id, nil
}

func findProcess(ctx context.Context, svc *app.Services, processID, envID int) (portal.Process, error) {
	processes, err := svc.Client.ProcessesByEnvironment(ctx, envID)
	if err != nil {
		return portal.Process{}, err
	}
	for _, proc := range processes {
		if proc.ID == processID {
			return proc, nil
		}
	}
	return portal.Process{}, fmt.Errorf("process %d not found in environment %d", processID, envID)
}

// buildFilters turns path=value arguments into API filters, taking the
// filter type from the process metadata and checking required filters.
func buildFilters(proc portal.Process, raw []string) ([]portal.ProcessFilter, error) {
	available := make(map[string]portal.AvailableFilter)
	for _, f := range proc.DefaultPayload.Metadata.AvailableFilters {
		available[f.Path] = f
	}

	given := make(map[string]bool, len(raw))
	filters := make([]portal.ProcessFilter, 0, len(raw))
	for _, arg := range raw {
		path, value, ok := strings.Cut(arg, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid filter %q, expected path=value", arg)
		}
		def, known := available[path]
		if !known {
			return nil, fmt.Errorf("process %d has no filter %q (available: %s)", proc.ID, path, filterSummary(proc))
		}
		given[path] = true

		var v any = value
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			v = n
		}
		filters = append(filters, portal.ProcessFilter{Type: def.FilterType, Path: path, Value: v})
	}

	var missing []string
	for _, f := range proc.DefaultPayload.Metadata.AvailableFilters {
		if f.Required && !given[f.Path] {
			missing = append(missing, f.Path)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required filter(s): %s", strings.Join(missing, ", "))
	}
	return filters, nil
}

// resultTable uses the process's visible output columns, falling back to the
// sorted keys of the first row.
func resultTable(proc portal.Process, rows []map[string]any) *cli.Table {
	var fields, labels []string
	for _, col := range proc.OutputColumnsMetadata {
		if col.Hidden {
			continue
		}
		fields = append(fields, col.Field)
		label := col.Label
		if label == "" {
			label = col.Field
		}
		labels = append(labels, label)
	}
	if len(fields) == 0 && len(rows) > 0 {
		for k := range rows[0] {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		labels = fields
	}

	t := cli.NewTable(labels...)
	for _, row := range rows {
		cells := make([]any, len(fields))
		for i, f := range fields {
			cells[i] = row[f]
		}
		t.AppendRow(cells...)
	}
	return t
}

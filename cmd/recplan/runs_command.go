package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"recplan/internal/store"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded planning runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make([]store.RunStatus, 0, len(statuses))
			for _, s := range statuses {
				if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
					filter = append(filter, store.RunStatus(s))
				}
			}
			return ctx.withStore(func(st *store.Store) error {
				runs, err := st.ListRuns(cmd.Context(), filter...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderRunsTable(runs, shouldColorize(out)))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only show runs with these statuses")
	cmd.AddCommand(newRunsRemoveCommand(ctx))
	return cmd
}

func newRunsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <run-id>...",
		Short: "Delete runs and their sections from history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					run, err := st.FindRunByPrefix(cmd.Context(), arg)
					if err != nil {
						return err
					}
					if run == nil {
						return fmt.Errorf("run %q not found", arg)
					}
					if !run.Status.IsTerminal() {
						return fmt.Errorf("run %s is still %s", shortID(run.ID), run.Status)
					}
					if err := st.DeleteRun(cmd.Context(), run.ID); err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed run %s\n", run.ID)
				}
				return nil
			})
		},
	}
}

func renderRunsTable(runs []*store.Run, color bool) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			colorize(displayLabel(string(run.Status)), runStatusColor(run.Status), color),
			formatTimestamp(run.StartedAt),
			formatDuration(run.Duration()),
			strconv.Itoa(run.SectionCount),
			strconv.Itoa(run.FailedCount),
			run.MetadataPath,
		})
	}
	return renderTable(
		[]string{"ID", "Status", "Started", "Duration", "Sections", "Failed", "Metadata"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

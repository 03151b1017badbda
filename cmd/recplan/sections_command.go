package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"recplan/internal/participant"
	"recplan/internal/store"
)

func newSectionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sections <run-id>",
		Short: "Show the sections of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				run, err := st.FindRunByPrefix(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %q not found", args[0])
				}
				sections, err := st.ListSections(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				color := shouldColorize(out)
				fmt.Fprintf(out, "Run %s (%s)\n", run.ID, colorize(displayLabel(string(run.Status)), runStatusColor(run.Status), color))
				if run.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", run.Error)
				}
				if len(sections) == 0 {
					fmt.Fprintln(out, "No sections recorded")
					return nil
				}
				fmt.Fprintln(out, renderSectionsTable(sections, color))
				counts, err := st.SectionCounts(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, sectionCountsLine(counts))
				return nil
			})
		},
	}
}

func renderSectionsTable(sections []*store.Section, color bool) string {
	rows := make([][]string, 0, len(sections))
	for _, sec := range sections {
		var visible []participant.Record
		_ = json.Unmarshal(sec.Tiles, &visible)
		rows = append(rows, []string{
			strconv.Itoa(sec.Sequence),
			formatMillis(sec.StartMs),
			formatMillis(sec.EndMs),
			strconv.FormatInt(sec.CorrectionMs, 10),
			speakerLabel(visible),
			strconv.Itoa(len(visible)),
			colorize(displayLabel(string(sec.Status)), sectionStatusColor(sec.Status), color),
			sec.Error,
		})
	}
	return renderTable(
		[]string{"#", "Start", "End", "Correction", "Speaker", "Tiles", "Status", "Error"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func sectionCountsLine(counts map[store.SectionStatus]int) string {
	order := []store.SectionStatus{
		store.SectionRendered,
		store.SectionFailed,
		store.SectionSkipped,
		store.SectionPending,
	}
	parts := make([]string, 0, len(order))
	total := 0
	for _, status := range order {
		n := counts[status]
		total += n
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	if len(parts) == 0 {
		return "Total: 0"
	}
	return fmt.Sprintf("Total: %d (%s)", total, strings.Join(parts, ", "))
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"recplan/internal/config"
	"recplan/internal/participant"
	"recplan/internal/pipeline"
	"recplan/internal/timeline"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var inDir string
	var outDir string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Segment a recording and dispatch its sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := overridePath(&cfg.Paths.InputDir, inDir); err != nil {
				return fmt.Errorf("resolve --in: %w", err)
			}
			if err := overridePath(&cfg.Paths.OutputDir, outDir); err != nil {
				return fmt.Errorf("resolve --out: %w", err)
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, runErr := pipeline.Run(runCtx, cfg, logger, pipeline.Options{DryRun: dryRun})
			out := cmd.OutOrStdout()
			if summary != nil {
				if len(summary.Sections) > 0 {
					fmt.Fprintln(out, renderPlanTable(summary.Sections))
				}
				fmt.Fprintln(out, summary.String())
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&inDir, "in", "", "Directory holding the recorder metadata (overrides paths.input_dir)")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory for section manifests (overrides paths.output_dir)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Segment only; do not record or dispatch sections")
	return cmd
}

func overridePath(target *string, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	expanded, err := config.ExpandPath(value)
	if err != nil {
		return err
	}
	*target = expanded
	return nil
}

func renderPlanTable(sections []timeline.Section) string {
	rows := make([][]string, 0, len(sections))
	for _, sec := range sections {
		rows = append(rows, []string{
			strconv.Itoa(sec.Sequence),
			formatMillis(sec.Start),
			formatMillis(sec.End),
			formatMillis(sec.RenderEnd()),
			speakerLabel(sec.Visible),
			strconv.Itoa(len(sec.Visible)),
		})
	}
	return renderTable(
		[]string{"#", "Start", "End", "Render End", "Speaker", "Tiles"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignRight},
	)
}

func speakerLabel(records []participant.Record) string {
	for _, rec := range records {
		if !rec.Speaking {
			continue
		}
		if rec.DisplayName != "" {
			return rec.DisplayName
		}
		return rec.ID
	}
	return "-"
}

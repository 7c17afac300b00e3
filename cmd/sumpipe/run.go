package main

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/textsumlab/sumpipe/pkg/pipeline"
	"github.com/textsumlab/sumpipe/pkg/types"
	"github.com/textsumlab/sumpipe/pkg/units"
)

func NewRunCmd() *cobra.Command {
	options := pipeline.NewDefaultOptions()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the full pipeline: ingest, transform, write the training plan",
		Example: `
  sumpipe run
  sumpipe run --config config/config.yaml --params config/params.yaml
		`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			p, err := pipeline.New(ctx, options)
			if err != nil {
				return err
			}
			defer p.Close()
			p.Progress = os.Stdout

			record, err := p.Run(ctx)
			if err != nil {
				return err
			}
			printRunRecord(record)
			return nil
		},
	}
	bindPipelineFlags(cmd, options)
	return cmd
}

func printRunRecord(record *types.RunRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"STAGE", "OUTPUT", "ROWS"})
	if record.Ingestion != nil {
		t.AppendRow(table.Row{"ingestion", record.Ingestion.IngestedFilepath, record.Ingestion.Rows})
	}
	if tr := record.Transformation; tr != nil {
		t.AppendRow(table.Row{"transformation", tr.TrainFilepath, tr.TrainRows})
		t.AppendRow(table.Row{"", tr.ValFilepath, tr.ValRows})
		t.AppendRow(table.Row{"", tr.TestFilepath, tr.TestRows})
	}
	if record.PlanFilepath != "" {
		t.AppendRow(table.Row{"plan", record.PlanFilepath, ""})
	}
	t.AppendFooter(table.Row{
		record.Status,
		"duration " + record.FinishedAt.Sub(record.StartedAt).Round(time.Millisecond).String(),
		"",
	})
	t.Render()
}

func humanSize(size int64) string {
	return units.HumanSize(float64(size))
}

package main

import (
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/textsumlab/sumpipe/pkg/runs"
)

func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "inspect recorded pipeline runs",
	}
	cmd.AddCommand(NewRunsListCmd())
	return cmd
}

func NewRunsListCmd() *cobra.Command {
	ledgerPath := runs.DefaultLedgerPath
	cmd := &cobra.Command{
		Use:          "list",
		Short:        "list recorded runs, most recent first",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			ledger, err := runs.Open(ledgerPath)
			if err != nil {
				return err
			}
			defer ledger.Close()

			records, err := ledger.List(ctx)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"RUN", "STATUS", "DURATION", "ROWS", "RAW SIZE", "PLAN"})
			for _, record := range records {
				rows, rawsize := "", ""
				if record.Ingestion != nil {
					rows = strconv.Itoa(record.Ingestion.Rows)
					rawsize = humanSize(record.Ingestion.RawSize)
				}
				t.AppendRow(table.Row{
					record.Timestamp,
					record.Status,
					record.FinishedAt.Sub(record.StartedAt).Round(time.Millisecond),
					rows,
					rawsize,
					record.PlanFilepath,
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&ledgerPath, "ledger", ledgerPath, "run ledger path")
	return cmd
}

package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/textsumlab/sumpipe/pkg/pipeline"
)

func NewIngestCmd() *cobra.Command {
	options := pipeline.NewDefaultOptions()
	cmd := &cobra.Command{
		Use:          "ingest",
		Short:        "download and extract the dataset archive",
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

			artifact, err := p.RunIngestion(ctx)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendRows([]table.Row{
				{"raw", artifact.RawFilepath},
				{"raw size", humanSize(artifact.RawSize)},
				{"raw digest", artifact.RawDigest},
				{"ingested", artifact.IngestedFilepath},
				{"ingested digest", artifact.IngestedDigest},
				{"rows", artifact.Rows},
			})
			if artifact.RawURI != "" {
				t.AppendRows([]table.Row{
					{"raw uri", artifact.RawURI},
					{"ingested uri", artifact.IngestedURI},
				})
			}
			t.Render()
			return nil
		},
	}
	bindPipelineFlags(cmd, options)
	return cmd
}

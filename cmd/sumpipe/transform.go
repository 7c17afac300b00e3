package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/textsumlab/sumpipe/pkg/config"
	"github.com/textsumlab/sumpipe/pkg/pipeline"
)

func NewTransformCmd() *cobra.Command {
	options := pipeline.NewDefaultOptions()
	cmd := &cobra.Command{
		Use:          "transform",
		Short:        "split the ingested dataset of an earlier run into train/val/test",
		Example: `
  sumpipe transform
  sumpipe transform --run 2025_01_02T03_04_05Z
		`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			// operate on the most recent run unless one was pinned
			if options.Run == "" {
				latest, err := config.LatestRun(options.ArtifactsRoot)
				if err != nil {
					return err
				}
				options.Run = latest
			}
			p, err := pipeline.New(ctx, options)
			if err != nil {
				return err
			}
			defer p.Close()

			artifact, err := p.RunTransformation(ctx)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"SPLIT", "FILE", "ROWS"})
			t.AppendRows([]table.Row{
				{"train", artifact.TrainFilepath, artifact.TrainRows},
				{"val", artifact.ValFilepath, artifact.ValRows},
				{"test", artifact.TestFilepath, artifact.TestRows},
			})
			t.AppendFooter(table.Row{"preprocessor", artifact.PreprocessorFilepath, ""})
			t.Render()
			return nil
		},
	}
	bindPipelineFlags(cmd, options)
	return cmd
}

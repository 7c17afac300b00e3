package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/textsumlab/sumpipe/pkg/config"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "inspect the configuration documents",
	}
	cmd.AddCommand(
		NewConfigValidateCmd(),
		NewConfigShowCmd(),
	)
	return cmd
}

func NewConfigValidateCmd() *cobra.Command {
	configFile := config.DefaultConfigFile
	paramsFile := config.DefaultParamsFile
	cmd := &cobra.Command{
		Use:          "validate",
		Short:        "load and validate both documents, report the first violation",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.ReadConfig(configFile); err != nil {
				return err
			}
			if _, err := config.ReadParams(paramsFile); err != nil {
				return err
			}
			fmt.Printf("%s, %s: ok\n", configFile, paramsFile)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", configFile, "config document path")
	flags.StringVar(&paramsFile, "params", paramsFile, "params document path")
	return cmd
}

func NewConfigShowCmd() *cobra.Command {
	configFile := config.DefaultConfigFile
	paramsFile := config.DefaultParamsFile
	artifactsRoot := config.ArtifactsRoot
	cmd := &cobra.Command{
		Use:          "show [stage]",
		Short:        "show resolved stage configurations",
		Example:      "  sumpipe config show\n  sumpipe config show transformation",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManagerAt(configFile, paramsFile, artifactsRoot, config.RunTimestamp())
			if err != nil {
				return err
			}
			stage := ""
			if len(args) > 0 {
				stage = args[0]
			}
			return showStages(manager, stage)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", configFile, "config document path")
	flags.StringVar(&paramsFile, "params", paramsFile, "params document path")
	flags.StringVar(&artifactsRoot, "artifacts-root", artifactsRoot, "artifacts base directory")
	return cmd
}

func showStages(manager *config.Manager, stage string) error {
	shown := false
	show := func(name string, rows []table.Row) {
		if stage != "" && stage != name {
			return
		}
		shown = true
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{name, "run " + manager.Timestamp})
		t.AppendRows(rows)
		t.Render()
	}

	ingestion := manager.IngestionConfig()
	show("ingestion", []table.Row{
		{"source_URL", ingestion.SourceURL},
		{"raw_filepath", ingestion.RawFilepath},
		{"ingested_filepath", ingestion.IngestedFilepath},
		{"dvc_raw_filepath", ingestion.DVCRawFilepath},
		{"dvc_ingested_filepath", ingestion.DVCIngestedFilepath},
		{"local_enabled", ingestion.LocalEnabled},
		{"s3_enabled", ingestion.S3Enabled},
	})

	transformation := manager.TransformationConfig()
	show("transformation", []table.Row{
		{"train_filepath", transformation.TrainFilepath},
		{"val_filepath", transformation.ValFilepath},
		{"test_filepath", transformation.TestFilepath},
		{"preprocessor_filepath", transformation.PreprocessorFilepath},
		{"tokenizer", transformation.TokenizerName},
		{"max_input_length", transformation.MaxInputLength},
		{"max_target_length", transformation.MaxTargetLength},
		{"split", fmt.Sprintf("%v/%v/%v", transformation.TrainSize, transformation.ValSize, transformation.TestSize)},
		{"random_state", transformation.RandomState},
		{"stratify", transformation.Stratify},
	})

	trainer := manager.TrainerConfig()
	show("trainer", []table.Row{
		{"model_ckpt", trainer.ModelCkpt},
		{"data_path", trainer.DataPath},
		{"trained_model_filepath", trainer.TrainedModelFilepath},
		{"num_train_epochs", trainer.NumTrainEpochs},
		{"warmup_steps", trainer.WarmupSteps},
		{"learning_rate", trainer.LearningRate},
		{"evaluation_strategy", trainer.EvaluationStrategy},
		{"fp16", trainer.FP16},
		{"tracking_enabled", trainer.Tracking.Enabled},
		{"experiment_name", trainer.Tracking.ExperimentName},
	})

	evaluation := manager.EvaluationConfig()
	show("evaluation", []table.Row{
		{"metrics", strings.Join(evaluation.Metrics, ", ")},
		{"report_filepath", evaluation.ReportFilepath},
	})

	storagecfg := manager.StorageConfig()
	show("storage", []table.Row{
		{"bucket_name", storagecfg.BucketName},
		{"region", storagecfg.Region},
		{"s3_enabled", storagecfg.S3Enabled},
	})

	if !shown {
		return fmt.Errorf("unknown stage %q, one of: ingestion, transformation, trainer, evaluation, storage", stage)
	}
	return nil
}

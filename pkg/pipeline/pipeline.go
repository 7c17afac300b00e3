// Package pipeline orchestrates the ingestion and transformation
// stages and materializes the training plan for the external driver.
package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	"github.com/textsumlab/sumpipe/pkg/config"
	"github.com/textsumlab/sumpipe/pkg/ingest"
	"github.com/textsumlab/sumpipe/pkg/report"
	"github.com/textsumlab/sumpipe/pkg/runs"
	"github.com/textsumlab/sumpipe/pkg/storage"
	"github.com/textsumlab/sumpipe/pkg/transform"
	"github.com/textsumlab/sumpipe/pkg/types"
)

const (
	StageReportFilename = "report.yaml"
	PlanFilename        = "training_plan.yaml"
)

type Options struct {
	ConfigFile    string `json:"configFile,omitempty"`
	ParamsFile    string `json:"paramsFile,omitempty"`
	ArtifactsRoot string `json:"artifactsRoot,omitempty"`
	LedgerPath    string `json:"ledgerPath,omitempty"`
	// Run pins the run timestamp to operate on; empty starts a new run.
	Run string `json:"run,omitempty"`

	S3 *storage.S3Options `json:"s3,omitempty"`
}

func NewDefaultOptions() *Options {
	return &Options{
		ConfigFile:    config.DefaultConfigFile,
		ParamsFile:    config.DefaultParamsFile,
		ArtifactsRoot: config.ArtifactsRoot,
		LedgerPath:    runs.DefaultLedgerPath,
		S3:            storage.NewDefaultS3Options(),
	}
}

// Pipeline runs ingestion, transformation and plan materialization for
// one run timestamp. Backup and Ledger may be nil.
type Pipeline struct {
	Manager  *config.Manager
	Backup   storage.Backend
	Ledger   *runs.Ledger
	Progress io.Writer
}

func New(ctx context.Context, options *Options) (*Pipeline, error) {
	timestamp := options.Run
	if timestamp == "" {
		timestamp = config.RunTimestamp()
	}
	manager, err := config.NewManagerAt(options.ConfigFile, options.ParamsFile, options.ArtifactsRoot, timestamp)
	if err != nil {
		return nil, err
	}

	var backup storage.Backend
	if storagecfg := manager.StorageConfig(); storagecfg.S3Enabled {
		s3opts := storage.NewDefaultS3Options()
		if options.S3 != nil {
			copied := *options.S3
			s3opts = &copied
		}
		if s3opts.Bucket == "" {
			s3opts.Bucket = storagecfg.BucketName
		}
		if s3opts.Region == "" {
			s3opts.Region = storagecfg.Region
		}
		backup, err = storage.NewS3Backend(ctx, s3opts)
		if err != nil {
			return nil, err
		}
	}

	ledger, err := runs.Open(options.LedgerPath)
	if err != nil {
		return nil, err
	}
	return &Pipeline{Manager: manager, Backup: backup, Ledger: ledger}, nil
}

func (p *Pipeline) Close() error {
	if p.Ledger != nil {
		return p.Ledger.Close()
	}
	return nil
}

// Run executes the full pipeline and records the outcome in the
// ledger, failed runs included.
func (p *Pipeline) Run(ctx context.Context) (*types.RunRecord, error) {
	log := logr.FromContextOrDiscard(ctx)
	record := &types.RunRecord{
		Timestamp: p.Manager.Timestamp,
		StartedAt: time.Now(),
	}
	err := p.runStages(ctx, record)
	record.FinishedAt = time.Now()
	if err != nil {
		record.Status = types.RunStatusFailed
		record.Error = err.Error()
	} else {
		record.Status = types.RunStatusSucceeded
	}
	if p.Ledger != nil {
		if recorderr := p.Ledger.Record(ctx, record); recorderr != nil {
			log.Error(recorderr, "record run")
		}
	}
	if err != nil {
		return record, err
	}
	log.Info("pipeline finished", "run", record.Timestamp, "plan", record.PlanFilepath)
	return record, nil
}

func (p *Pipeline) runStages(ctx context.Context, record *types.RunRecord) error {
	ingestion, err := p.RunIngestion(ctx)
	if err != nil {
		return err
	}
	record.Ingestion = ingestion

	transformation, err := p.RunTransformation(ctx)
	if err != nil {
		return err
	}
	record.Transformation = transformation

	plan, err := p.WritePlan(ctx)
	if err != nil {
		return err
	}
	record.PlanFilepath = plan

	if p.Backup != nil && p.Manager.StorageConfig().S3Enabled {
		trainerdir := p.Manager.TrainerConfig().RootDir
		if err := storage.SyncDirectory(ctx, p.Backup, trainerdir, config.ObjectKey(trainerdir)); err != nil {
			return err
		}
	}
	return nil
}

// RunIngestion executes the ingestion stage and writes its report.
func (p *Pipeline) RunIngestion(ctx context.Context) (*types.IngestionArtifact, error) {
	cfg := p.Manager.IngestionConfig()
	stage := ingest.New(cfg, p.Backup)
	if p.Progress != nil {
		stage.Progress = p.Progress
	}
	artifact, err := stage.Run(ctx)
	if err != nil {
		return nil, err
	}
	stagereport := report.New().
		Set("run", p.Manager.Timestamp).
		Set("raw_filepath", artifact.RawFilepath).
		Set("ingested_filepath", artifact.IngestedFilepath).
		Set("raw_digest", artifact.RawDigest.String()).
		Set("ingested_digest", artifact.IngestedDigest.String()).
		Set("raw_size", artifact.RawSize).
		Set("rows", artifact.Rows)
	if artifact.RawURI != "" {
		stagereport.Set("raw_uri", artifact.RawURI).Set("ingested_uri", artifact.IngestedURI)
	}
	if err := stagereport.WriteFile(filepath.Join(cfg.RootDir, StageReportFilename)); err != nil {
		return nil, err
	}
	return artifact, nil
}

// RunTransformation executes the transformation stage and writes its
// report.
func (p *Pipeline) RunTransformation(ctx context.Context) (*types.TransformationArtifact, error) {
	cfg := p.Manager.TransformationConfig()
	artifact, err := transform.New(cfg, p.Backup).Run(ctx)
	if err != nil {
		return nil, err
	}
	stagereport := report.New().
		Set("run", p.Manager.Timestamp).
		Set("train_filepath", artifact.TrainFilepath).
		Set("val_filepath", artifact.ValFilepath).
		Set("test_filepath", artifact.TestFilepath).
		Set("preprocessor_filepath", artifact.PreprocessorFilepath).
		Set("train_rows", artifact.TrainRows).
		Set("val_rows", artifact.ValRows).
		Set("test_rows", artifact.TestRows)
	if artifact.TrainURI != "" {
		stagereport.
			Set("train_uri", artifact.TrainURI).
			Set("val_uri", artifact.ValURI).
			Set("test_uri", artifact.TestURI)
	}
	if err := stagereport.WriteFile(filepath.Join(cfg.RootDir, StageReportFilename)); err != nil {
		return nil, err
	}
	return artifact, nil
}

// WritePlan materializes the resolved trainer, tracking and evaluation
// configuration as the training plan consumed by the external driver.
func (p *Pipeline) WritePlan(ctx context.Context) (string, error) {
	trainer := p.Manager.TrainerConfig()
	evaluation := p.Manager.EvaluationConfig()

	plan := report.New().
		Set("run", p.Manager.Timestamp).
		Set("model_ckpt", trainer.ModelCkpt).
		Set("data_path", trainer.DataPath).
		Set("inference_model_filepath", trainer.InferenceModelFilepath).
		Set("trained_model_filepath", trainer.TrainedModelFilepath).
		Set("training_report_filepath", trainer.TrainingReportFilepath).
		Set("training_arguments", report.New().
			Set("num_train_epochs", trainer.NumTrainEpochs).
			Set("warmup_steps", trainer.WarmupSteps).
			Set("per_device_train_batch_size", trainer.PerDeviceTrainBatchSize).
			Set("per_device_eval_batch_size", trainer.PerDeviceEvalBatchSize).
			Set("weight_decay", trainer.WeightDecay).
			Set("logging_steps", trainer.LoggingSteps).
			Set("evaluation_strategy", trainer.EvaluationStrategy).
			Set("eval_steps", trainer.EvalSteps).
			Set("save_steps", trainer.SaveSteps).
			Set("gradient_accumulation_steps", trainer.GradientAccumulationSteps).
			Set("learning_rate", trainer.LearningRate).
			Set("fp16", trainer.FP16)).
		Set("tracking", report.New().
			Set("enabled", trainer.Tracking.Enabled).
			Set("experiment_name", trainer.Tracking.ExperimentName).
			Set("registry_model_name", trainer.Tracking.RegistryModelName).
			Set("metrics_to_log", trainer.Tracking.MetricsToLog).
			Set("log_trials", trainer.Tracking.LogTrials)).
		Set("evaluation", report.New().
			Set("metrics", evaluation.Metrics).
			Set("report_filepath", evaluation.ReportFilepath))

	filename := filepath.Join(trainer.RootDir, PlanFilename)
	if err := plan.WriteFile(filename); err != nil {
		return "", err
	}
	logr.FromContextOrDiscard(ctx).Info("training plan written", "file", filename)
	return filename, nil
}

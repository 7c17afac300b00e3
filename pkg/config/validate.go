package config

import (
	"fmt"
	"net/url"

	"github.com/textsumlab/sumpipe/pkg/errors"
	"github.com/textsumlab/sumpipe/pkg/units"
)

// SplitSumTolerance is the floating point tolerance applied when
// checking that the three split fractions sum to 1.0.
const SplitSumTolerance = 1e-6

// KnownMetrics are the metric identifiers accepted in
// model_evaluation.metrics and tracking.mlflow.metrics_to_log.
var KnownMetrics = map[string]bool{
	"rouge1":    true,
	"rouge2":    true,
	"rougeL":    true,
	"rougeLsum": true,
	"bleu":      true,
	"meteor":    true,
	"loss":      true,
	"eval_loss": true,
}

var evaluationStrategies = map[string]bool{
	"no":    true,
	"steps": true,
	"epoch": true,
}

// Validate checks every invariant the schema can state and returns the
// first violation, naming the dotted key.
func (p *Params) Validate() error {
	if err := p.DataTransformation.DataSplit.validate(); err != nil {
		return err
	}
	if err := p.DataTransformation.Tokenizer.validate(); err != nil {
		return err
	}
	if err := p.ModelTrainer.TrainingArguments.validate(); err != nil {
		return err
	}
	if err := p.Tracking.MLFlow.validate(); err != nil {
		return err
	}
	if err := validateMetrics("model_evaluation.metrics", p.ModelEvaluation.Metrics); err != nil {
		return err
	}
	return nil
}

func (s DataSplitParams) validate() error {
	const prefix = "data_transformation.data_split."
	fractions := []struct {
		key string
		val *float64
	}{
		{prefix + "train_size", s.TrainSize},
		{prefix + "val_size", s.ValSize},
		{prefix + "test_size", s.TestSize},
	}
	sum := 0.0
	for _, f := range fractions {
		if f.val == nil {
			return errors.NewKeyMissingError(f.key)
		}
		if *f.val <= 0 || *f.val >= 1 {
			return errors.NewValueInvalidError(f.key, fmt.Sprintf("must be in (0,1), got %v", *f.val))
		}
		sum += *f.val
	}
	if sum < 1-SplitSumTolerance || sum > 1+SplitSumTolerance {
		return errors.NewValueInvalidError(prefix+"train_size",
			fmt.Sprintf("split sizes must sum to 1.0, got %v", sum))
	}
	if s.RandomState == nil {
		return errors.NewKeyMissingError(prefix + "random_state")
	}
	if s.Stratify == nil {
		return errors.NewKeyMissingError(prefix + "stratify")
	}
	return nil
}

func (t TokenizerParams) validate() error {
	const prefix = "data_transformation.tokenizer."
	if t.PretrainedModelName == "" {
		return errors.NewKeyMissingError(prefix + "pretrained_model_name")
	}
	if err := requirePositiveInt(prefix+"max_input_length", t.MaxInputLength); err != nil {
		return err
	}
	return requirePositiveInt(prefix+"max_target_length", t.MaxTargetLength)
}

func (a TrainingArguments) validate() error {
	const prefix = "model_trainer.training_arguments."
	positives := []struct {
		key string
		val *int
	}{
		{prefix + "num_train_epochs", a.NumTrainEpochs},
		{prefix + "warmup_steps", a.WarmupSteps},
		{prefix + "per_device_train_batch_size", a.PerDeviceTrainBatchSize},
		{prefix + "per_device_eval_batch_size", a.PerDeviceEvalBatchSize},
		{prefix + "logging_steps", a.LoggingSteps},
		{prefix + "eval_steps", a.EvalSteps},
		{prefix + "save_steps", a.SaveSteps},
		{prefix + "gradient_accumulation_steps", a.GradientAccumulationSteps},
	}
	for _, p := range positives {
		if err := requirePositiveInt(p.key, p.val); err != nil {
			return err
		}
	}
	if a.WeightDecay == nil {
		return errors.NewKeyMissingError(prefix + "weight_decay")
	}
	if *a.WeightDecay < 0 {
		return errors.NewValueInvalidError(prefix+"weight_decay",
			fmt.Sprintf("must be >= 0, got %v", *a.WeightDecay))
	}
	if a.EvaluationStrategy == "" {
		return errors.NewKeyMissingError(prefix + "evaluation_strategy")
	}
	if !evaluationStrategies[a.EvaluationStrategy] {
		return errors.NewValueInvalidError(prefix+"evaluation_strategy",
			fmt.Sprintf("must be one of no|steps|epoch, got %q", a.EvaluationStrategy))
	}
	if a.LearningRate == nil {
		return errors.NewKeyMissingError(prefix + "learning_rate")
	}
	if *a.LearningRate <= 0 {
		return errors.NewValueInvalidError(prefix+"learning_rate",
			fmt.Sprintf("must be > 0, got %v", *a.LearningRate))
	}
	if a.FP16 == nil {
		return errors.NewKeyMissingError(prefix + "fp16")
	}
	return nil
}

func (m MLFlowParams) validate() error {
	const prefix = "tracking.mlflow."
	if m.Enabled == nil {
		return errors.NewKeyMissingError(prefix + "enabled")
	}
	if m.LogTrials == nil {
		return errors.NewKeyMissingError(prefix + "log_trials")
	}
	// metrics_to_log must hold recognized identifiers whether or not
	// tracking is enabled; only the run names are conditional.
	if err := validateMetrics(prefix+"metrics_to_log", m.MetricsToLog); err != nil {
		return err
	}
	if !*m.Enabled {
		return nil
	}
	if m.ExperimentName == "" {
		return errors.NewKeyMissingError(prefix + "experiment_name")
	}
	if m.RegistryModelName == "" {
		return errors.NewKeyMissingError(prefix + "registry_model_name")
	}
	return nil
}

func validateMetrics(key string, metrics []string) error {
	if len(metrics) == 0 {
		return errors.NewKeyMissingError(key)
	}
	for _, m := range metrics {
		if !KnownMetrics[m] {
			return errors.NewValueInvalidError(key, fmt.Sprintf("unrecognized metric %q", m))
		}
	}
	return nil
}

func requirePositiveInt(key string, val *int) error {
	if val == nil {
		return errors.NewKeyMissingError(key)
	}
	if *val <= 0 {
		return errors.NewValueInvalidError(key, fmt.Sprintf("must be a positive integer, got %d", *val))
	}
	return nil
}

// Validate checks config.yaml: stage filenames present, source URL
// parseable, backup switches present, and the bucket set whenever the
// S3 backup is enabled.
func (c *Config) Validate() error {
	required := []struct {
		key string
		val string
	}{
		{"data_ingestion.source_URL", c.DataIngestion.SourceURL},
		{"data_ingestion.raw_data_filename", c.DataIngestion.RawDataFilename},
		{"data_ingestion.ingested_data_filename", c.DataIngestion.IngestedDataFilename},
		{"data_transformation.train_filename", c.DataTransformation.TrainFilename},
		{"data_transformation.val_filename", c.DataTransformation.ValFilename},
		{"data_transformation.test_filename", c.DataTransformation.TestFilename},
		{"data_transformation.preprocessor_filename", c.DataTransformation.PreprocessorFilename},
		{"model_trainer.root_dir", c.ModelTrainer.RootDir},
		{"model_trainer.model_ckpt", c.ModelTrainer.ModelCkpt},
		{"model_trainer.inference_model_filename", c.ModelTrainer.InferenceModelFilename},
		{"model_trainer.trained_model_filename", c.ModelTrainer.TrainedModelFilename},
		{"model_trainer.training_report_filename", c.ModelTrainer.TrainingReportFilename},
		{"model_evaluation.report_filename", c.ModelEvaluation.ReportFilename},
	}
	for _, r := range required {
		if r.val == "" {
			return errors.NewKeyMissingError(r.key)
		}
	}
	if _, err := url.ParseRequestURI(c.DataIngestion.SourceURL); err != nil {
		return errors.NewValueInvalidError("data_ingestion.source_URL", err.Error())
	}
	if c.DataIngestion.MaxDownloadSize != "" {
		if _, err := units.FromHumanSize(c.DataIngestion.MaxDownloadSize); err != nil {
			return errors.NewValueInvalidError("data_ingestion.max_download_size", err.Error())
		}
	}
	if c.DataBackup.S3Enabled == nil {
		return errors.NewKeyMissingError("data_backup.s3_enabled")
	}
	if c.DataBackup.LocalEnabled == nil {
		return errors.NewKeyMissingError("data_backup.local_enabled")
	}
	if *c.DataBackup.S3Enabled && c.S3Handler.BucketName == "" {
		return errors.NewKeyMissingError("s3_handler.bucket_name")
	}
	return nil
}

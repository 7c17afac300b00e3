package config

// Schema types for the two configuration documents. Required scalar
// keys are pointers so that an absent key is distinguishable from a
// zero value; Validate reports the dotted key of the first violation.

// Params mirrors params.yaml: the hyperparameters consumed by the
// transformation stage and handed to the external training driver.
type Params struct {
	DataTransformation TransformParams `json:"data_transformation"`
	ModelTrainer       TrainerParams   `json:"model_trainer"`
	Tracking           TrackingParams  `json:"tracking"`
	ModelEvaluation    EvalParams      `json:"model_evaluation"`
}

type TransformParams struct {
	DataSplit DataSplitParams `json:"data_split"`
	Tokenizer TokenizerParams `json:"tokenizer"`
}

type DataSplitParams struct {
	TrainSize   *float64 `json:"train_size"`
	ValSize     *float64 `json:"val_size"`
	TestSize    *float64 `json:"test_size"`
	RandomState *int64   `json:"random_state"`
	Stratify    *bool    `json:"stratify"`
}

type TokenizerParams struct {
	PretrainedModelName string `json:"pretrained_model_name"`
	MaxInputLength      *int   `json:"max_input_length"`
	MaxTargetLength     *int   `json:"max_target_length"`
}

type TrainerParams struct {
	TrainingArguments TrainingArguments `json:"training_arguments"`
}

type TrainingArguments struct {
	NumTrainEpochs            *int     `json:"num_train_epochs"`
	WarmupSteps               *int     `json:"warmup_steps"`
	PerDeviceTrainBatchSize   *int     `json:"per_device_train_batch_size"`
	PerDeviceEvalBatchSize    *int     `json:"per_device_eval_batch_size"`
	WeightDecay               *float64 `json:"weight_decay"`
	LoggingSteps              *int     `json:"logging_steps"`
	EvaluationStrategy        string   `json:"evaluation_strategy"`
	EvalSteps                 *int     `json:"eval_steps"`
	SaveSteps                 *int     `json:"save_steps"`
	GradientAccumulationSteps *int     `json:"gradient_accumulation_steps"`
	LearningRate              *float64 `json:"learning_rate"`
	FP16                      *bool    `json:"fp16"`
}

type TrackingParams struct {
	MLFlow MLFlowParams `json:"mlflow"`
}

type MLFlowParams struct {
	Enabled           *bool    `json:"enabled"`
	ExperimentName    string   `json:"experiment_name"`
	RegistryModelName string   `json:"registry_model_name"`
	MetricsToLog      []string `json:"metrics_to_log"`
	LogTrials         *bool    `json:"log_trials"`
}

type EvalParams struct {
	Metrics []string `json:"metrics"`
}

// Config mirrors config.yaml: per-stage directory and file names plus
// remote storage and backup switches.
type Config struct {
	DataIngestion      IngestionPaths `json:"data_ingestion"`
	DataTransformation TransformPaths `json:"data_transformation"`
	ModelTrainer       TrainerPaths   `json:"model_trainer"`
	ModelEvaluation    EvalPaths      `json:"model_evaluation"`
	S3Handler          S3HandlerConf  `json:"s3_handler"`
	DataBackup         DataBackup     `json:"data_backup"`
}

type IngestionPaths struct {
	SourceURL            string `json:"source_URL"`
	RawDataFilename      string `json:"raw_data_filename"`
	IngestedDataFilename string `json:"ingested_data_filename"`
	// MaxDownloadSize bounds the archive download, e.g. "512MB".
	// Empty means unbounded.
	MaxDownloadSize string `json:"max_download_size,omitempty"`
}

type TransformPaths struct {
	TrainFilename        string `json:"train_filename"`
	ValFilename          string `json:"val_filename"`
	TestFilename         string `json:"test_filename"`
	PreprocessorFilename string `json:"preprocessor_filename"`
}

type TrainerPaths struct {
	RootDir                string `json:"root_dir"`
	ModelCkpt              string `json:"model_ckpt"`
	InferenceModelFilename string `json:"inference_model_filename"`
	TrainedModelFilename   string `json:"trained_model_filename"`
	TrainingReportFilename string `json:"training_report_filename"`
}

type EvalPaths struct {
	ReportFilename string `json:"report_filename"`
}

type S3HandlerConf struct {
	BucketName string `json:"bucket_name"`
}

type DataBackup struct {
	S3Enabled    *bool `json:"s3_enabled"`
	LocalEnabled *bool `json:"local_enabled"`
}

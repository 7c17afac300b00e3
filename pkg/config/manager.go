package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/textsumlab/sumpipe/pkg/errors"
	"github.com/textsumlab/sumpipe/pkg/units"
)

const (
	ArtifactsRoot = "artifacts"
	DVCRoot       = "data"

	IngestRootDir        = "data_ingestion"
	IngestRawSubdir      = "raw_data"
	IngestIngestedSubdir = "ingested_data"
	DVCRawSubdir         = "raw"

	TransformRootDir     = "data_transformation"
	DVCTransformedSubdir = "transformed"

	EvaluationRootDir = "model_evaluation"
	StorageRootDir    = "s3_handler"
)

// TimestampLayout names a run; all artifacts of a run share it.
const TimestampLayout = "2006_01_02T15_04_05Z"

var (
	runTimestamp     string
	runTimestampOnce sync.Once
)

// RunTimestamp returns the process-wide UTC run timestamp, generated on
// first use so every stage of a run stores artifacts together.
func RunTimestamp() string {
	runTimestampOnce.Do(func() {
		runTimestamp = time.Now().UTC().Format(TimestampLayout)
	})
	return runTimestamp
}

// LatestRun returns the most recent run timestamp directory under base,
// so single-stage commands can pick up where an earlier process left
// off.
func LatestRun(base string) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", errors.NewFileNotFoundError(base)
	}
	latest := ""
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := time.Parse(TimestampLayout, entry.Name()); err != nil {
			continue
		}
		// the layout sorts lexically
		if entry.Name() > latest {
			latest = entry.Name()
		}
	}
	if latest == "" {
		return "", errors.NewFileNotFoundError(base)
	}
	return latest, nil
}

// Manager loads both configuration documents once and resolves the
// per-stage configuration entities with run-scoped artifact paths.
type Manager struct {
	Config *Config
	Params *Params

	Timestamp string
	// Root is artifacts/<timestamp>; every stage directory lives below it.
	Root string
}

func NewManager(configFile, paramsFile string) (*Manager, error) {
	return NewManagerAt(configFile, paramsFile, ArtifactsRoot, RunTimestamp())
}

// NewManagerAt pins the artifacts base directory and run timestamp,
// used by tests and by --artifacts-root overrides.
func NewManagerAt(configFile, paramsFile, base, timestamp string) (*Manager, error) {
	config, err := ReadConfig(configFile)
	if err != nil {
		return nil, err
	}
	params, err := ReadParams(paramsFile)
	if err != nil {
		return nil, err
	}
	return &Manager{
		Config:    config,
		Params:    params,
		Timestamp: timestamp,
		Root:      filepath.Join(base, timestamp),
	}, nil
}

// IngestionConfig is the resolved configuration of the ingestion stage.
type IngestionConfig struct {
	RootDir         string
	SourceURL       string
	MaxDownloadSize int64 // bytes, 0 for unbounded

	RawFilepath         string
	IngestedFilepath    string
	DVCRawFilepath      string
	DVCIngestedFilepath string

	LocalEnabled bool
	S3Enabled    bool
}

// RawKey is the object key for the raw archive backup.
func (c IngestionConfig) RawKey() string { return ObjectKey(c.RawFilepath) }

// IngestedKey is the object key for the ingested dataset backup.
func (c IngestionConfig) IngestedKey() string { return ObjectKey(c.IngestedFilepath) }

func (m *Manager) IngestionConfig() IngestionConfig {
	ingestion := m.Config.DataIngestion
	backup := m.Config.DataBackup
	rootDir := filepath.Join(m.Root, IngestRootDir)

	maxSize := int64(0)
	if ingestion.MaxDownloadSize != "" {
		// validated in Config.Validate
		maxSize, _ = units.FromHumanSize(ingestion.MaxDownloadSize)
	}
	return IngestionConfig{
		RootDir:             rootDir,
		SourceURL:           ingestion.SourceURL,
		MaxDownloadSize:     maxSize,
		RawFilepath:         filepath.Join(rootDir, IngestRawSubdir, ingestion.RawDataFilename),
		IngestedFilepath:    filepath.Join(rootDir, IngestIngestedSubdir, ingestion.IngestedDataFilename),
		DVCRawFilepath:      filepath.Join(DVCRoot, DVCRawSubdir, ingestion.RawDataFilename),
		DVCIngestedFilepath: filepath.Join(DVCRoot, IngestIngestedSubdir, ingestion.IngestedDataFilename),
		LocalEnabled:        *backup.LocalEnabled,
		S3Enabled:           *backup.S3Enabled,
	}
}

// TransformationConfig is the resolved configuration of the
// transformation stage.
type TransformationConfig struct {
	RootDir          string
	IngestedFilepath string

	TrainFilepath        string
	ValFilepath          string
	TestFilepath         string
	PreprocessorFilepath string
	DVCTrainFilepath     string
	DVCValFilepath       string
	DVCTestFilepath      string

	TokenizerName   string
	MaxInputLength  int
	MaxTargetLength int

	TrainSize   float64
	ValSize     float64
	TestSize    float64
	RandomState int64
	Stratify    bool

	LocalEnabled bool
	S3Enabled    bool
}

func (c TransformationConfig) TrainKey() string { return ObjectKey(c.TrainFilepath) }
func (c TransformationConfig) ValKey() string   { return ObjectKey(c.ValFilepath) }
func (c TransformationConfig) TestKey() string  { return ObjectKey(c.TestFilepath) }

func (m *Manager) TransformationConfig() TransformationConfig {
	paths := m.Config.DataTransformation
	params := m.Params.DataTransformation
	backup := m.Config.DataBackup
	rootDir := filepath.Join(m.Root, TransformRootDir)

	return TransformationConfig{
		RootDir:          rootDir,
		IngestedFilepath: m.IngestionConfig().IngestedFilepath,

		TrainFilepath:        filepath.Join(rootDir, paths.TrainFilename),
		ValFilepath:          filepath.Join(rootDir, paths.ValFilename),
		TestFilepath:         filepath.Join(rootDir, paths.TestFilename),
		PreprocessorFilepath: filepath.Join(rootDir, paths.PreprocessorFilename),
		DVCTrainFilepath:     filepath.Join(DVCRoot, DVCTransformedSubdir, paths.TrainFilename),
		DVCValFilepath:       filepath.Join(DVCRoot, DVCTransformedSubdir, paths.ValFilename),
		DVCTestFilepath:      filepath.Join(DVCRoot, DVCTransformedSubdir, paths.TestFilename),

		TokenizerName:   params.Tokenizer.PretrainedModelName,
		MaxInputLength:  *params.Tokenizer.MaxInputLength,
		MaxTargetLength: *params.Tokenizer.MaxTargetLength,

		TrainSize:   *params.DataSplit.TrainSize,
		ValSize:     *params.DataSplit.ValSize,
		TestSize:    *params.DataSplit.TestSize,
		RandomState: *params.DataSplit.RandomState,
		Stratify:    *params.DataSplit.Stratify,

		LocalEnabled: *backup.LocalEnabled,
		S3Enabled:    *backup.S3Enabled,
	}
}

// TrackingConfig is the resolved experiment-tracking section handed to
// the external training driver.
type TrackingConfig struct {
	Enabled           bool
	ExperimentName    string
	RegistryModelName string
	MetricsToLog      []string
	LogTrials         bool
}

// TrainerConfig is the resolved training-arguments plan for the
// external driver; sumpipe materializes it but never trains.
type TrainerConfig struct {
	RootDir  string
	DataPath string

	ModelCkpt              string
	InferenceModelFilepath string
	TrainedModelFilepath   string
	TrainingReportFilepath string

	NumTrainEpochs            int
	WarmupSteps               int
	PerDeviceTrainBatchSize   int
	PerDeviceEvalBatchSize    int
	WeightDecay               float64
	LoggingSteps              int
	EvaluationStrategy        string
	EvalSteps                 int
	SaveSteps                 int
	GradientAccumulationSteps int
	LearningRate              float64
	FP16                      bool

	Tracking TrackingConfig
}

func (m *Manager) TrainerConfig() TrainerConfig {
	paths := m.Config.ModelTrainer
	args := m.Params.ModelTrainer.TrainingArguments
	mlflow := m.Params.Tracking.MLFlow
	rootDir := filepath.Join(m.Root, paths.RootDir)

	return TrainerConfig{
		RootDir:  rootDir,
		DataPath: filepath.Join(m.Root, TransformRootDir),

		ModelCkpt:              paths.ModelCkpt,
		InferenceModelFilepath: filepath.Join(rootDir, paths.InferenceModelFilename),
		TrainedModelFilepath:   filepath.Join(rootDir, paths.TrainedModelFilename),
		TrainingReportFilepath: filepath.Join(rootDir, paths.TrainingReportFilename),

		NumTrainEpochs:            *args.NumTrainEpochs,
		WarmupSteps:               *args.WarmupSteps,
		PerDeviceTrainBatchSize:   *args.PerDeviceTrainBatchSize,
		PerDeviceEvalBatchSize:    *args.PerDeviceEvalBatchSize,
		WeightDecay:               *args.WeightDecay,
		LoggingSteps:              *args.LoggingSteps,
		EvaluationStrategy:        args.EvaluationStrategy,
		EvalSteps:                 *args.EvalSteps,
		SaveSteps:                 *args.SaveSteps,
		GradientAccumulationSteps: *args.GradientAccumulationSteps,
		LearningRate:              *args.LearningRate,
		FP16:                      *args.FP16,

		Tracking: TrackingConfig{
			Enabled:           *mlflow.Enabled,
			ExperimentName:    mlflow.ExperimentName,
			RegistryModelName: mlflow.RegistryModelName,
			MetricsToLog:      mlflow.MetricsToLog,
			LogTrials:         *mlflow.LogTrials,
		},
	}
}

// EvaluationConfig is the resolved evaluation section for the external
// driver.
type EvaluationConfig struct {
	RootDir        string
	Metrics        []string
	ReportFilepath string
}

func (m *Manager) EvaluationConfig() EvaluationConfig {
	rootDir := filepath.Join(m.Root, EvaluationRootDir)
	return EvaluationConfig{
		RootDir:        rootDir,
		Metrics:        m.Params.ModelEvaluation.Metrics,
		ReportFilepath: filepath.Join(rootDir, m.Config.ModelEvaluation.ReportFilename),
	}
}

// StorageConfig is the resolved S3 backup configuration. Region comes
// from the environment, as the AWS SDK expects.
type StorageConfig struct {
	RootDir    string
	BucketName string
	Region     string
	S3Enabled  bool
}

func (m *Manager) StorageConfig() StorageConfig {
	return StorageConfig{
		RootDir:    filepath.Join(m.Root, StorageRootDir),
		BucketName: m.Config.S3Handler.BucketName,
		Region:     os.Getenv("AWS_REGION"),
		S3Enabled:  *m.Config.DataBackup.S3Enabled,
	}
}

// ObjectKey converts a local artifact path into its backup object key.
func ObjectKey(path string) string {
	return filepath.ToSlash(path)
}

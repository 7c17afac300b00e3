package transform

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/textsumlab/sumpipe/pkg/config"
	"github.com/textsumlab/sumpipe/pkg/errors"
	"github.com/textsumlab/sumpipe/pkg/report"
	"github.com/textsumlab/sumpipe/pkg/storage"
	"github.com/textsumlab/sumpipe/pkg/types"
)

const (
	defaultInputColumn  = "dialogue"
	defaultTargetColumn = "summary"
)

// Transformation splits the ingested dataset into train/val/test CSVs
// and persists the resolved preprocessor settings.
type Transformation struct {
	Config config.TransformationConfig
	Backup storage.Backend
}

func New(cfg config.TransformationConfig, backup storage.Backend) *Transformation {
	return &Transformation{Config: cfg, Backup: backup}
}

func (t *Transformation) Run(ctx context.Context) (*types.TransformationArtifact, error) {
	log := logr.FromContextOrDiscard(ctx)
	cfg := t.Config

	header, records, err := readDataset(cfg.IngestedFilepath)
	if err != nil {
		return nil, err
	}
	inputCol, targetCol, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		rec[inputCol] = truncateTokens(rec[inputCol], cfg.MaxInputLength)
		rec[targetCol] = truncateTokens(rec[targetCol], cfg.MaxTargetLength)
	}

	train, val, test := Split(records, targetCol, SplitOptions{
		TrainSize:   cfg.TrainSize,
		ValSize:     cfg.ValSize,
		TestSize:    cfg.TestSize,
		RandomState: cfg.RandomState,
		Stratify:    cfg.Stratify,
	})
	log.Info("split dataset",
		"rows", len(records), "train", len(train), "val", len(val), "test", len(test))

	eg, _ := errgroup.WithContext(ctx)
	for _, split := range []struct {
		filename string
		records  [][]string
	}{
		{cfg.TrainFilepath, train},
		{cfg.ValFilepath, val},
		{cfg.TestFilepath, test},
	} {
		split := split
		eg.Go(func() error {
			return writeCSV(split.filename, header, split.records)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := t.writePreprocessor(len(records)); err != nil {
		return nil, err
	}

	artifact := &types.TransformationArtifact{
		TrainFilepath:        cfg.TrainFilepath,
		ValFilepath:          cfg.ValFilepath,
		TestFilepath:         cfg.TestFilepath,
		PreprocessorFilepath: cfg.PreprocessorFilepath,
		TrainRows:            len(train),
		ValRows:              len(val),
		TestRows:             len(test),
	}

	if cfg.LocalEnabled {
		mirrors := map[string]string{
			cfg.TrainFilepath: cfg.DVCTrainFilepath,
			cfg.ValFilepath:   cfg.DVCValFilepath,
			cfg.TestFilepath:  cfg.DVCTestFilepath,
		}
		for src, dest := range mirrors {
			if err := copyFile(src, dest); err != nil {
				return nil, err
			}
		}
	}
	if cfg.S3Enabled && t.Backup != nil {
		if artifact.TrainURI, err = storage.UploadFile(ctx, t.Backup, cfg.TrainFilepath, cfg.TrainKey()); err != nil {
			return nil, err
		}
		if artifact.ValURI, err = storage.UploadFile(ctx, t.Backup, cfg.ValFilepath, cfg.ValKey()); err != nil {
			return nil, err
		}
		if artifact.TestURI, err = storage.UploadFile(ctx, t.Backup, cfg.TestFilepath, cfg.TestKey()); err != nil {
			return nil, err
		}
	}
	return artifact, nil
}

// writePreprocessor persists the resolved preprocessing settings the
// external tokenizer driver needs to reproduce the transformation.
func (t *Transformation) writePreprocessor(rows int) error {
	cfg := t.Config
	return report.New().
		Set("tokenizer", report.New().
			Set("pretrained_model_name", cfg.TokenizerName).
			Set("max_input_length", cfg.MaxInputLength).
			Set("max_target_length", cfg.MaxTargetLength)).
		Set("data_split", report.New().
			Set("train_size", cfg.TrainSize).
			Set("val_size", cfg.ValSize).
			Set("test_size", cfg.TestSize).
			Set("random_state", cfg.RandomState).
			Set("stratify", cfg.Stratify)).
		Set("rows", rows).
		WriteFile(cfg.PreprocessorFilepath)
}

func readDataset(filename string) (header []string, records [][]string, err error) {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.NewFileNotFoundError(filename)
		}
		return nil, nil, errors.NewInternalError(err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err = reader.Read()
	if err != nil {
		return nil, nil, errors.NewDataInvalidError(fmt.Sprintf("read header of %s: %v", filename, err))
	}
	for {
		rec, err := reader.Read()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				break
			}
			return nil, nil, errors.NewDataInvalidError(fmt.Sprintf("read %s: %v", filename, err))
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, nil, errors.NewDataInvalidError(fmt.Sprintf("dataset %s has no records", filename))
	}
	return header, records, nil
}

// resolveColumns locates the input and target columns. The conventional
// dialogue/summary names win; otherwise any two-column schema is taken
// as input,target.
func resolveColumns(header []string) (inputCol, targetCol int, err error) {
	inputCol, targetCol = -1, -1
	for i, name := range header {
		switch name {
		case defaultInputColumn:
			inputCol = i
		case defaultTargetColumn:
			targetCol = i
		}
	}
	if inputCol >= 0 && targetCol >= 0 {
		return inputCol, targetCol, nil
	}
	if len(header) == 2 {
		return 0, 1, nil
	}
	return 0, 0, errors.NewDataInvalidError(
		fmt.Sprintf("cannot locate %s/%s columns in header %v", defaultInputColumn, defaultTargetColumn, header))
}

func writeCSV(filename string, header []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return errors.NewInternalError(err)
	}
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.NewInternalError(err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return errors.NewInternalError(err)
	}
	if err := writer.WriteAll(records); err != nil {
		return errors.NewInternalError(err)
	}
	writer.Flush()
	return writer.Error()
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.NewInternalError(err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

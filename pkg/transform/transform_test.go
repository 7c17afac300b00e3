package transform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/textsumlab/sumpipe/pkg/config"
	"github.com/textsumlab/sumpipe/pkg/errors"
	"github.com/textsumlab/sumpipe/pkg/storage"
)

func sampleRecords(n int) [][]string {
	records := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("dialogue number %d with %s", i, strings.Repeat("words ", i+1)),
			fmt.Sprintf("summary %d", i),
		})
	}
	return records
}

func defaultSplitOptions() SplitOptions {
	return SplitOptions{TrainSize: 0.8, ValSize: 0.1, TestSize: 0.1, RandomState: 42}
}

func TestSplitFractions(t *testing.T) {
	train, val, test := Split(sampleRecords(10), 2, defaultSplitOptions())
	if len(train) != 8 || len(val) != 1 || len(test) != 1 {
		t.Errorf("split sizes = %d/%d/%d, want 8/1/1", len(train), len(val), len(test))
	}
}

func TestSplitDeterministic(t *testing.T) {
	records := sampleRecords(50)
	train1, val1, test1 := Split(records, 2, defaultSplitOptions())
	train2, val2, test2 := Split(records, 2, defaultSplitOptions())
	if !reflect.DeepEqual(train1, train2) || !reflect.DeepEqual(val1, val2) || !reflect.DeepEqual(test1, test2) {
		t.Error("same seed produced different splits")
	}

	opts := defaultSplitOptions()
	opts.RandomState = 7
	train3, _, _ := Split(records, 2, opts)
	if reflect.DeepEqual(train1, train3) {
		t.Error("different seeds produced identical train split")
	}
}

func TestSplitCoversAllRecords(t *testing.T) {
	for _, stratify := range []bool{false, true} {
		records := sampleRecords(37)
		opts := defaultSplitOptions()
		opts.Stratify = stratify

		train, val, test := Split(records, 2, opts)
		var ids []string
		for _, rec := range append(append(append([][]string{}, train...), val...), test...) {
			ids = append(ids, rec[0])
		}
		if len(ids) != len(records) {
			t.Fatalf("stratify=%v: split covers %d records, want %d", stratify, len(ids), len(records))
		}
		sort.Strings(ids)
		var want []string
		for _, rec := range records {
			want = append(want, rec[0])
		}
		sort.Strings(want)
		if !reflect.DeepEqual(ids, want) {
			t.Errorf("stratify=%v: split lost or duplicated records", stratify)
		}
	}
}

func TestTruncateTokens(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"one two three four", 2, "one two"},
		{"one two", 4, "one two"},
		{"", 4, ""},
	}
	for _, tt := range tests {
		if got := truncateTokens(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateTokens(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name       string
		header     []string
		wantInput  int
		wantTarget int
		wantErr    bool
	}{
		{name: "conventional", header: []string{"id", "dialogue", "summary"}, wantInput: 1, wantTarget: 2},
		{name: "two columns", header: []string{"text", "headline"}, wantInput: 0, wantTarget: 1},
		{name: "unknown wide schema", header: []string{"a", "b", "c"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, target, err := resolveColumns(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveColumns() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (input != tt.wantInput || target != tt.wantTarget) {
				t.Errorf("resolveColumns() = %d, %d, want %d, %d", input, target, tt.wantInput, tt.wantTarget)
			}
		})
	}
}

func testTransformationConfig(t *testing.T, ingested string) config.TransformationConfig {
	t.Helper()
	root := filepath.Join(t.TempDir(), "data_transformation")
	return config.TransformationConfig{
		RootDir:              root,
		IngestedFilepath:     ingested,
		TrainFilepath:        filepath.Join(root, "train.csv"),
		ValFilepath:          filepath.Join(root, "val.csv"),
		TestFilepath:         filepath.Join(root, "test.csv"),
		PreprocessorFilepath: filepath.Join(root, "preprocessor.yaml"),
		TokenizerName:        "google/pegasus-cnn_dailymail",
		MaxInputLength:       6,
		MaxTargetLength:      4,
		TrainSize:            0.8,
		ValSize:              0.1,
		TestSize:             0.1,
		RandomState:          42,
	}
}

func writeDataset(t *testing.T, records [][]string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "samsum.csv")
	if err := writeCSV(filename, []string{"id", "dialogue", "summary"}, records); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestTransformationRun(t *testing.T) {
	cfg := testTransformationConfig(t, writeDataset(t, sampleRecords(20)))
	artifact, err := New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if artifact.TrainRows != 16 || artifact.ValRows != 2 || artifact.TestRows != 2 {
		t.Errorf("rows = %d/%d/%d, want 16/2/2", artifact.TrainRows, artifact.ValRows, artifact.TestRows)
	}

	header, records, err := readDataset(cfg.TrainFilepath)
	if err != nil {
		t.Fatalf("readDataset(train) error = %v", err)
	}
	if !reflect.DeepEqual(header, []string{"id", "dialogue", "summary"}) {
		t.Errorf("train header = %v", header)
	}
	for _, rec := range records {
		if n := len(strings.Fields(rec[1])); n > cfg.MaxInputLength {
			t.Errorf("dialogue not truncated: %d tokens", n)
		}
	}

	if _, err := os.Stat(cfg.PreprocessorFilepath); err != nil {
		t.Errorf("preprocessor file missing: %v", err)
	}
	data, _ := os.ReadFile(cfg.PreprocessorFilepath)
	if !strings.Contains(string(data), "pretrained_model_name: google/pegasus-cnn_dailymail") {
		t.Errorf("preprocessor content = %s", data)
	}
}

func TestTransformationBackups(t *testing.T) {
	backend, err := storage.NewLocalBackend(&storage.LocalOptions{Basepath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	cfg := testTransformationConfig(t, writeDataset(t, sampleRecords(10)))
	dvcRoot := t.TempDir()
	cfg.DVCTrainFilepath = filepath.Join(dvcRoot, "transformed", "train.csv")
	cfg.DVCValFilepath = filepath.Join(dvcRoot, "transformed", "val.csv")
	cfg.DVCTestFilepath = filepath.Join(dvcRoot, "transformed", "test.csv")
	cfg.LocalEnabled = true
	cfg.S3Enabled = true

	artifact, err := New(cfg, backend).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, mirror := range []string{cfg.DVCTrainFilepath, cfg.DVCValFilepath, cfg.DVCTestFilepath} {
		if _, err := os.Stat(mirror); err != nil {
			t.Errorf("dvc mirror missing: %v", err)
		}
	}
	for _, uri := range []string{artifact.TrainURI, artifact.ValURI, artifact.TestURI} {
		if uri == "" {
			t.Errorf("artifact URI not set: %+v", artifact)
		}
	}
	if exists, _ := backend.Exists(context.Background(), cfg.TrainKey()); !exists {
		t.Error("train backup object missing")
	}
}

func TestTransformationMissingDataset(t *testing.T) {
	cfg := testTransformationConfig(t, filepath.Join(t.TempDir(), "nope.csv"))
	_, err := New(cfg, nil).Run(context.Background())
	if !errors.IsErrCode(err, errors.ErrCodeFileNotFound) {
		t.Fatalf("Run() error = %v, want %s", err, errors.ErrCodeFileNotFound)
	}
}

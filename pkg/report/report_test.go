package report

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReportOrder(t *testing.T) {
	r := New().
		Set("run", "2025_01_02T03_04_05Z").
		Set("rows", 3).
		Set("tokenizer", New().
			Set("pretrained_model_name", "google/pegasus-cnn_dailymail").
			Set("max_input_length", 1024)).
		Set("fractions", []float64{0.8, 0.1, 0.1})

	data, err := r.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	want := "run: 2025_01_02T03_04_05Z\n" +
		"rows: 3\n" +
		"tokenizer:\n" +
		"  pretrained_model_name: google/pegasus-cnn_dailymail\n" +
		"  max_input_length: 1024\n" +
		"fractions:\n" +
		"- 0.8\n" +
		"- 0.1\n" +
		"- 0.1\n"
	if string(data) != want {
		t.Errorf("Marshal() =\n%s\nwant\n%s", data, want)
	}
}

func TestReportWriteFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "reports", "ingestion.yaml")
	if err := New().Set("status", "succeeded").WriteFile(filename); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "status: succeeded\n" {
		t.Errorf("file = %q", data)
	}
}

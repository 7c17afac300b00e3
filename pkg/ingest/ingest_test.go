package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/textsumlab/sumpipe/pkg/config"
	"github.com/textsumlab/sumpipe/pkg/errors"
	"github.com/textsumlab/sumpipe/pkg/storage"
)

const sampleCSV = "id,dialogue,summary\n" +
	"1,hello there how are you,greeting\n" +
	"2,meet me at noon for lunch,lunch plan\n" +
	"3,the report is due friday,deadline\n"

func zipArchive(t *testing.T, members map[string]string) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testIngestionConfig(t *testing.T, sourceURL string) config.IngestionConfig {
	t.Helper()
	root := filepath.Join(t.TempDir(), "artifacts", "2025_01_02T03_04_05Z", "data_ingestion")
	return config.IngestionConfig{
		RootDir:          root,
		SourceURL:        sourceURL,
		RawFilepath:      filepath.Join(root, "raw_data", "samsum.zip"),
		IngestedFilepath: filepath.Join(root, "ingested_data", "samsum.csv"),
	}
}

func TestRewriteGitHubURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{
			url:  "https://github.com/textsumlab/datasets/blob/main/samsum.zip",
			want: "https://github.com/textsumlab/datasets/raw/main/samsum.zip",
		},
		{
			url:  "https://example.com/blob/samsum.zip",
			want: "https://example.com/blob/samsum.zip",
		},
		{
			url:  "https://github.com/textsumlab/datasets/releases/samsum.zip",
			want: "https://github.com/textsumlab/datasets/releases/samsum.zip",
		},
	}
	for _, tt := range tests {
		if got := rewriteGitHubURL(tt.url); got != tt.want {
			t.Errorf("rewriteGitHubURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestIngestionRun(t *testing.T) {
	archive := zipArchive(t, map[string]string{
		"README.md":  "not the dataset",
		"samsum.csv": sampleCSV,
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	cfg := testIngestionConfig(t, server.URL+"/samsum.zip")
	artifact, err := New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got, err := os.ReadFile(cfg.IngestedFilepath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != sampleCSV {
		t.Errorf("ingested file = %q, want %q", got, sampleCSV)
	}
	if artifact.Rows != 3 {
		t.Errorf("Rows = %d, want 3", artifact.Rows)
	}
	if artifact.RawSize != int64(len(archive)) {
		t.Errorf("RawSize = %d, want %d", artifact.RawSize, len(archive))
	}
	if artifact.RawDigest == "" || artifact.IngestedDigest == "" {
		t.Error("artifact digests not set")
	}
}

func TestIngestionSkipsExistingArchive(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.NotFound(w, r)
	}))
	defer server.Close()

	cfg := testIngestionConfig(t, server.URL+"/samsum.zip")
	archive := zipArchive(t, map[string]string{"samsum.csv": sampleCSV})
	if err := os.MkdirAll(filepath.Dir(cfg.RawFilepath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.RawFilepath, archive, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(cfg, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if requests != 0 {
		t.Errorf("server received %d requests, want 0", requests)
	}
}

func TestIngestionRetriesDownload(t *testing.T) {
	saved := downloadBackoff
	downloadBackoff = wait.Backoff{Duration: time.Millisecond, Factor: 2.0, Steps: 3}
	defer func() { downloadBackoff = saved }()

	archive := zipArchive(t, map[string]string{"samsum.csv": sampleCSV})
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		w.Write(archive)
	}))
	defer server.Close()

	cfg := testIngestionConfig(t, server.URL+"/samsum.zip")
	if _, err := New(cfg, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if requests != 3 {
		t.Errorf("server received %d requests, want 3", requests)
	}
}

func TestIngestionDownloadFailure(t *testing.T) {
	saved := downloadBackoff
	downloadBackoff = wait.Backoff{Duration: time.Millisecond, Factor: 2.0, Steps: 2}
	defer func() { downloadBackoff = saved }()

	server := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer server.Close()

	cfg := testIngestionConfig(t, server.URL+"/samsum.zip")
	_, err := New(cfg, nil).Run(context.Background())
	if !errors.IsErrCode(err, errors.ErrCodeDownloadFailed) {
		t.Fatalf("Run() error = %v, want %s", err, errors.ErrCodeDownloadFailed)
	}
}

func TestIngestionSizeLimit(t *testing.T) {
	saved := downloadBackoff
	downloadBackoff = wait.Backoff{Duration: time.Millisecond, Factor: 2.0, Steps: 2}
	defer func() { downloadBackoff = saved }()

	archive := zipArchive(t, map[string]string{"samsum.csv": sampleCSV})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	cfg := testIngestionConfig(t, server.URL+"/samsum.zip")
	cfg.MaxDownloadSize = 16
	_, err := New(cfg, nil).Run(context.Background())
	if !errors.IsErrCode(err, errors.ErrCodeDownloadFailed) {
		t.Fatalf("Run() error = %v, want %s", err, errors.ErrCodeDownloadFailed)
	}
}

func TestIngestionNoCSVMember(t *testing.T) {
	archive := zipArchive(t, map[string]string{"README.md": "nothing here"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	cfg := testIngestionConfig(t, server.URL+"/samsum.zip")
	_, err := New(cfg, nil).Run(context.Background())
	if !errors.IsErrCode(err, errors.ErrCodeArchiveInvalid) {
		t.Fatalf("Run() error = %v, want %s", err, errors.ErrCodeArchiveInvalid)
	}
}

func TestIngestionBackups(t *testing.T) {
	archive := zipArchive(t, map[string]string{"samsum.csv": sampleCSV})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	backend, err := storage.NewLocalBackend(&storage.LocalOptions{Basepath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	cfg := testIngestionConfig(t, server.URL+"/samsum.zip")
	dvcRoot := t.TempDir()
	cfg.DVCRawFilepath = filepath.Join(dvcRoot, "raw", "samsum.zip")
	cfg.DVCIngestedFilepath = filepath.Join(dvcRoot, "ingested_data", "samsum.csv")
	cfg.LocalEnabled = true
	cfg.S3Enabled = true

	artifact, err := New(cfg, backend).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(cfg.DVCRawFilepath); err != nil {
		t.Errorf("dvc raw mirror missing: %v", err)
	}
	got, err := os.ReadFile(cfg.DVCIngestedFilepath)
	if err != nil || string(got) != sampleCSV {
		t.Errorf("dvc ingested mirror = %q, %v", got, err)
	}

	if artifact.RawURI == "" || artifact.IngestedURI == "" {
		t.Fatalf("artifact URIs not set: %+v", artifact)
	}
	if exists, _ := backend.Exists(context.Background(), cfg.IngestedKey()); !exists {
		t.Error("ingested backup object missing")
	}
}

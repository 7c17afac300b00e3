package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{
			name:       "valid",
			uri:        "s3://sumpipe-artifacts/artifacts/run/raw.zip",
			wantBucket: "sumpipe-artifacts",
			wantKey:    "artifacts/run/raw.zip",
		},
		{
			name:    "missing scheme",
			uri:     "sumpipe-artifacts/raw.zip",
			wantErr: true,
		},
		{
			name:    "missing key",
			uri:     "s3://sumpipe-artifacts",
			wantErr: true,
		},
		{
			name:    "empty bucket",
			uri:     "s3:///raw.zip",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseS3URI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || key != tt.wantKey {
				t.Errorf("ParseS3URI() = %q %q, want %q %q", bucket, key, tt.wantBucket, tt.wantKey)
			}
		})
	}
}

func newLocalBackend(t *testing.T) *LocalBackend {
	t.Helper()
	backend, err := NewLocalBackend(&LocalOptions{Basepath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	return backend
}

func TestLocalBackendPutGet(t *testing.T) {
	ctx := context.Background()
	backend := newLocalBackend(t)

	body := "dialogue,summary\nhello,hi\n"
	err := backend.Put(ctx, "runs/a/samsum.csv", ObjectContent{
		Body:          strings.NewReader(body),
		ContentLength: int64(len(body)),
		ContentType:   "text/csv",
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	exists, err := backend.Exists(ctx, "runs/a/samsum.csv")
	if err != nil || !exists {
		t.Fatalf("Exists() = %v, %v", exists, err)
	}
	if exists, _ := backend.Exists(ctx, "runs/a/other.csv"); exists {
		t.Error("Exists() reported a missing object")
	}

	content, err := backend.Get(ctx, "runs/a/samsum.csv")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got, err := io.ReadAll(content.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != body {
		t.Errorf("Get() = %q, want %q", got, body)
	}
	if content.ContentLength != int64(len(body)) {
		t.Errorf("ContentLength = %d, want %d", content.ContentLength, len(body))
	}

	meta, err := backend.Stat(ctx, "runs/a/samsum.csv")
	if err != nil || meta.Size != int64(len(body)) {
		t.Errorf("Stat() = %+v, %v", meta, err)
	}

	if err := backend.Remove(ctx, "runs/a/samsum.csv"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if exists, _ := backend.Exists(ctx, "runs/a/samsum.csv"); exists {
		t.Error("object still exists after Remove()")
	}
}

func TestSyncDirectory(t *testing.T) {
	ctx := context.Background()
	backend := newLocalBackend(t)

	srcdir := t.TempDir()
	files := map[string]string{
		"train.csv":          "a,b\n1,2\n",
		"val.csv":            "a,b\n3,4\n",
		"nested/report.yaml": "rows: 2\n",
	}
	for name, content := range files {
		full := filepath.Join(srcdir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := SyncDirectory(ctx, backend, srcdir, "backup/transform"); err != nil {
		t.Fatalf("SyncDirectory() error = %v", err)
	}

	listed, err := backend.List(ctx, "backup/transform", true)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var keys []string
	for _, meta := range listed {
		keys = append(keys, meta.Key)
	}
	sort.Strings(keys)
	want := []string{"nested/report.yaml", "train.csv", "val.csv"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("List() keys = %v, want %v", keys, want)
	}
}

func TestSyncDirectoryMissing(t *testing.T) {
	backend := newLocalBackend(t)
	if err := SyncDirectory(context.Background(), backend, filepath.Join(t.TempDir(), "nope"), "x"); err == nil {
		t.Error("SyncDirectory() expected error for missing directory")
	}
}

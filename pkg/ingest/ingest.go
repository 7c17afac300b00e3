package ingest

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/mholt/archiver/v4"
	"github.com/opencontainers/go-digest"

	"github.com/textsumlab/sumpipe/pkg/config"
	"github.com/textsumlab/sumpipe/pkg/errors"
	"github.com/textsumlab/sumpipe/pkg/progress"
	"github.com/textsumlab/sumpipe/pkg/storage"
	"github.com/textsumlab/sumpipe/pkg/types"
)

// Ingestion downloads the dataset archive and extracts the dataset file
// from it. Backup is optional; when set and s3 backup is enabled the
// raw and ingested files are uploaded after extraction.
type Ingestion struct {
	Config   config.IngestionConfig
	Backup   storage.Backend
	Progress io.Writer
}

func New(cfg config.IngestionConfig, backup storage.Backend) *Ingestion {
	return &Ingestion{Config: cfg, Backup: backup, Progress: io.Discard}
}

func (i *Ingestion) Run(ctx context.Context) (*types.IngestionArtifact, error) {
	log := logr.FromContextOrDiscard(ctx)
	cfg := i.Config

	if err := i.download(ctx); err != nil {
		return nil, err
	}
	if err := extractFirstCSV(ctx, cfg.RawFilepath, cfg.IngestedFilepath); err != nil {
		return nil, err
	}

	rawfi, err := os.Stat(cfg.RawFilepath)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	rawDigest, err := digestFile(cfg.RawFilepath)
	if err != nil {
		return nil, err
	}
	ingestedDigest, err := digestFile(cfg.IngestedFilepath)
	if err != nil {
		return nil, err
	}
	rows, err := countDataRows(cfg.IngestedFilepath)
	if err != nil {
		return nil, err
	}
	log.Info("ingested dataset", "file", cfg.IngestedFilepath, "rows", rows, "digest", ingestedDigest)

	artifact := &types.IngestionArtifact{
		RawFilepath:      cfg.RawFilepath,
		IngestedFilepath: cfg.IngestedFilepath,
		RawDigest:        rawDigest,
		IngestedDigest:   ingestedDigest,
		RawSize:          rawfi.Size(),
		Rows:             rows,
	}

	if cfg.LocalEnabled {
		if err := copyFile(cfg.RawFilepath, cfg.DVCRawFilepath); err != nil {
			return nil, err
		}
		if err := copyFile(cfg.IngestedFilepath, cfg.DVCIngestedFilepath); err != nil {
			return nil, err
		}
		artifact.DVCRawFilepath = cfg.DVCRawFilepath
		artifact.DVCIngestedFilepath = cfg.DVCIngestedFilepath
	}
	if cfg.S3Enabled && i.Backup != nil {
		rawURI, err := storage.UploadFile(ctx, i.Backup, cfg.RawFilepath, cfg.RawKey())
		if err != nil {
			return nil, err
		}
		ingestedURI, err := storage.UploadFile(ctx, i.Backup, cfg.IngestedFilepath, cfg.IngestedKey())
		if err != nil {
			return nil, err
		}
		artifact.RawURI, artifact.IngestedURI = rawURI, ingestedURI
	}
	return artifact, nil
}

func (i *Ingestion) download(ctx context.Context) error {
	log := logr.FromContextOrDiscard(ctx)
	cfg := i.Config

	if _, err := os.Stat(cfg.RawFilepath); err == nil {
		log.Info("raw archive already present, skipping download", "file", cfg.RawFilepath)
		return nil
	}
	url := rewriteGitHubURL(cfg.SourceURL)

	dest := i.Progress
	if dest == nil {
		dest = io.Discard
	}
	mb := progress.NewMultiBar(dest, 40, 1)
	mb.Go(path.Base(cfg.RawFilepath), "connecting", func(b *progress.Bar) error {
		return downloadFile(ctx, url, cfg.RawFilepath, cfg.MaxDownloadSize, b)
	})
	return mb.Wait()
}

var errCSVFound = stderrors.New("csv member found")

// extractFirstCSV writes the first .csv member of the zip archive at
// zipPath to dest.
func extractFirstCSV(ctx context.Context, zipPath string, dest string) error {
	src, err := os.Open(zipPath)
	if err != nil {
		return errors.NewInternalError(err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.NewInternalError(err)
	}

	found := false
	err = archiver.Zip{}.Extract(ctx, src, nil, func(ctx context.Context, f archiver.File) error {
		if f.IsDir() || !strings.EqualFold(filepath.Ext(f.NameInArchive), ".csv") {
			return nil
		}
		srcfile, err := f.Open()
		if err != nil {
			return err
		}
		defer srcfile.Close()

		destfile, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		defer destfile.Close()

		if _, err := io.Copy(destfile, srcfile); err != nil {
			return err
		}
		found = true
		return errCSVFound // stop after the first member
	})
	if err != nil && !stderrors.Is(err, errCSVFound) {
		return errors.NewArchiveInvalidError(fmt.Sprintf("extract %s: %v", zipPath, err))
	}
	if !found {
		return errors.NewArchiveInvalidError(fmt.Sprintf("no csv member in archive %s", zipPath))
	}
	return nil
}

// countDataRows counts the csv records following the header.
func countDataRows(filename string) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, errors.NewInternalError(err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows := 0
	for {
		if _, err := reader.Read(); err != nil {
			if stderrors.Is(err, io.EOF) {
				break
			}
			return 0, errors.NewDataInvalidError(fmt.Sprintf("read %s: %v", filename, err))
		}
		rows++
	}
	if rows == 0 {
		return 0, errors.NewDataInvalidError(fmt.Sprintf("dataset %s is empty", filename))
	}
	return rows - 1, nil
}

func digestFile(filename string) (digest.Digest, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", errors.NewInternalError(err)
	}
	defer f.Close()
	d, err := digest.FromReader(f)
	if err != nil {
		return "", errors.NewInternalError(err)
	}
	return d, nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.NewInternalError(err)
	}
	srcfile, err := os.Open(src)
	if err != nil {
		return errors.NewInternalError(err)
	}
	defer srcfile.Close()

	destfile, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.NewInternalError(err)
	}
	defer destfile.Close()

	if _, err := io.Copy(destfile, srcfile); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

package storage

import (
	"context"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/textsumlab/sumpipe/pkg/errors"
)

const syncConcurrency = 4

// UploadFile stores a single local file under key and returns the
// object URI.
func UploadFile(ctx context.Context, backend Backend, localPath string, key string) (string, error) {
	fi, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewFileNotFoundError(localPath)
		}
		return "", errors.NewStorageFailedError(err)
	}
	src, err := os.Open(localPath)
	if err != nil {
		return "", errors.NewStorageFailedError(err)
	}
	defer src.Close()

	content := ObjectContent{
		Body:          src,
		ContentLength: fi.Size(),
		ContentType:   mime.TypeByExtension(filepath.Ext(localPath)),
	}
	if err := backend.Put(ctx, key, content); err != nil {
		return "", err
	}
	uri := backend.URI(key)
	logr.FromContextOrDiscard(ctx).Info("uploaded", "file", localPath, "uri", uri)
	return uri, nil
}

// SyncDirectory recursively uploads a local directory under the given
// key prefix, a bounded number of files at a time.
func SyncDirectory(ctx context.Context, backend Backend, localDir string, prefix string) error {
	if fi, err := os.Stat(localDir); err != nil || !fi.IsDir() {
		return errors.NewFileNotFoundError(localDir)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(syncConcurrency)

	err := filepath.Walk(localDir, func(file string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, file)
		if err != nil {
			return err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))
		eg.Go(func() error {
			_, err := UploadFile(ctx, backend, file, key)
			return err
		})
		return nil
	})
	if err != nil {
		return errors.NewStorageFailedError(err)
	}
	return eg.Wait()
}

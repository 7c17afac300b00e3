package storage

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/textsumlab/sumpipe/pkg/errors"
)

const (
	DefaultFileMode = 0o644
	DefaultDirMode  = 0o755
)

type LocalOptions struct {
	Basepath string `json:"basepath,omitempty"`
}

func NewDefaultLocalOptions() *LocalOptions {
	return &LocalOptions{Basepath: "data/backup"}
}

var _ Backend = &LocalBackend{}

// LocalBackend mirrors artifacts into a local directory tree. Used for
// the filesystem backup target and in tests.
type LocalBackend struct {
	basepath string
}

func NewLocalBackend(options *LocalOptions) (*LocalBackend, error) {
	if err := os.MkdirAll(options.Basepath, DefaultDirMode); err != nil {
		return nil, errors.NewStorageFailedError(err)
	}
	return &LocalBackend{basepath: options.Basepath}, nil
}

func (f *LocalBackend) Put(ctx context.Context, key string, content ObjectContent) error {
	filename := f.localPath(key)
	if err := os.MkdirAll(filepath.Dir(filename), DefaultDirMode); err != nil {
		return errors.NewStorageFailedError(err)
	}
	dest, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, DefaultFileMode)
	if err != nil {
		return errors.NewStorageFailedError(err)
	}
	defer dest.Close()
	if _, err := io.Copy(dest, content.Body); err != nil {
		return errors.NewStorageFailedError(err)
	}
	return nil
}

func (f *LocalBackend) Get(ctx context.Context, key string) (*ObjectContent, error) {
	filename := f.localPath(key)
	fi, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	src, err := os.Open(filename)
	if err != nil {
		return nil, errors.NewStorageFailedError(err)
	}
	return &ObjectContent{
		Body:          src,
		ContentLength: fi.Size(),
		ContentType:   mime.TypeByExtension(filepath.Ext(filename)),
	}, nil
}

func (f *LocalBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(f.localPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.NewStorageFailedError(err)
	}
	return true, nil
}

func (f *LocalBackend) Stat(ctx context.Context, key string) (ObjectMeta, error) {
	fi, err := os.Stat(f.localPath(key))
	if err != nil {
		return ObjectMeta{}, err
	}
	return ObjectMeta{
		Key:          key,
		Size:         fi.Size(),
		LastModified: fi.ModTime(),
		ContentType:  mime.TypeByExtension(filepath.Ext(key)),
	}, nil
}

func (f *LocalBackend) List(ctx context.Context, prefix string, recursive bool) ([]ObjectMeta, error) {
	root := f.localPath(prefix)
	var result []ObjectMeta
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		result = append(result, ObjectMeta{
			Key:          filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, errors.NewStorageFailedError(err)
	}
	return result, nil
}

func (f *LocalBackend) Remove(ctx context.Context, key string) error {
	if err := os.Remove(f.localPath(key)); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageFailedError(err)
	}
	return nil
}

func (f *LocalBackend) URI(key string) string {
	return "file://" + filepath.ToSlash(f.localPath(key))
}

func (f *LocalBackend) localPath(key string) string {
	return filepath.Join(f.basepath, filepath.FromSlash(strings.TrimPrefix(key, "/")))
}

package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/textsumlab/sumpipe/pkg/errors"
	"github.com/textsumlab/sumpipe/pkg/progress"
)

var downloadBackoff = wait.Backoff{
	Duration: 2 * time.Second,
	Factor:   2.0,
	Steps:    3,
}

// rewriteGitHubURL converts GitHub blob page URLs into raw content
// URLs so datasets linked from the web UI download directly.
func rewriteGitHubURL(url string) string {
	if strings.Contains(url, "github.com") && strings.Contains(url, "/blob/") {
		return strings.Replace(url, "/blob/", "/raw/", 1)
	}
	return url
}

// downloadFile fetches url into dest with bounded retries. maxSize of 0
// means unbounded.
func downloadFile(ctx context.Context, url string, dest string, maxSize int64, bar *progress.Bar) error {
	log := logr.FromContextOrDiscard(ctx)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.NewInternalError(err)
	}

	var lastErr error
	attempt := 0
	err := wait.ExponentialBackoff(downloadBackoff, func() (bool, error) {
		attempt++
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if err := fetchOnce(ctx, url, dest, maxSize, bar); err != nil {
			log.Info("download attempt failed", "attempt", attempt, "url", url, "error", err.Error())
			lastErr = err
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		if lastErr != nil {
			return errors.NewDownloadFailedError(url, lastErr)
		}
		return errors.NewDownloadFailedError(url, err)
	}
	return nil
}

func fetchOnce(ctx context.Context, url string, dest string, maxSize int64, bar *progress.Bar) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if maxSize > 0 && resp.ContentLength > maxSize {
		return fmt.Errorf("archive size %d exceeds limit %d", resp.ContentLength, maxSize)
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	src := io.Reader(resp.Body)
	if bar != nil {
		src = bar.WrapReader(src, resp.ContentLength, "downloading", "downloaded")
	}
	if maxSize > 0 {
		src = io.LimitReader(src, maxSize+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		return err
	}
	if maxSize > 0 && n > maxSize {
		return fmt.Errorf("archive exceeds size limit %d", maxSize)
	}
	return nil
}

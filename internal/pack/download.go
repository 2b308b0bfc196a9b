package pack

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultResponseHeaderTimeout is the default timeout for receiving response headers.
const DefaultResponseHeaderTimeout = 30 * time.Second

// Downloader fetches remote inputs to local files, resuming partial
// downloads with Range requests.
type Downloader struct {
	client *http.Client
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(d *Downloader) {
		d.client = client
	}
}

// NewDownloader creates a new Downloader with sensible defaults.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// open starts a GET for url, resuming after existing bytes when the
// server honours Range. It returns the body, the total size (-1 if
// unknown) and whether the body continues the existing bytes.
func (d *Downloader) open(ctx context.Context, url string, existing int64) (io.ReadCloser, int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, false, fmt.Errorf("creating request: %w", err)
	}
	if existing > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", existing))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, false, fmt.Errorf("downloading: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, resp.ContentLength, false, nil
	case http.StatusPartialContent:
		total := int64(-1)
		var start, end int64
		if _, err := fmt.Sscanf(resp.Header.Get("Content-Range"), "bytes %d-%d/%d", &start, &end, &total); err != nil {
			total = existing + resp.ContentLength
		}
		return resp.Body, total, true, nil
	case http.StatusRequestedRangeNotSatisfiable:
		// The partial file is already complete.
		resp.Body.Close()
		return io.NopCloser(http.NoBody), existing, true, nil
	}
	resp.Body.Close()
	return nil, 0, false, fmt.Errorf("unexpected status: %s", resp.Status)
}

// DownloadToFile downloads url to destPath, appending to an existing
// partial file when the server supports it.
func (d *Downloader) DownloadToFile(ctx context.Context, url, destPath string, progress ProgressFunc) error {
	var existing int64
	if info, err := os.Stat(destPath); err == nil {
		existing = info.Size()
	}

	body, total, resumed, err := d.open(ctx, url, existing)
	if err != nil {
		return err
	}
	defer body.Close()

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if resumed {
		flags = os.O_WRONLY | os.O_APPEND
	} else {
		existing = 0
	}
	file, err := os.OpenFile(destPath, flags, 0o644)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	buf := make([]byte, 256*1024)
	downloaded := existing
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return fmt.Errorf("writing file: %w", werr)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(Progress{Phase: PhaseDownload, BytesDownloaded: downloaded, BytesTotal: total})
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
	}
	return file.Close()
}

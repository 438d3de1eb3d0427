package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

const (
	// DefaultUserAgent identifies kidep to download servers.
	DefaultUserAgent = "kidep/1.0 (external tool downloader)"
	// DefaultTimeout bounds connecting and waiting for response headers.
	DefaultTimeout = 20 * time.Second

	// MaxDownloadSize bounds what a single fetch keeps in memory.
	MaxDownloadSize = 1 << 30

	progressSteps = 50
	minChunkSize  = 4096
	maxSizeHint   = 64 << 20
)

// Downloader fetches remote content into memory.
type Downloader struct {
	Client    *http.Client
	UserAgent string
	Logger    *log.Logger
	// IdleTimeout aborts a transfer when no data arrives for this long.
	IdleTimeout time.Duration
}

// NewDownloader builds a downloader whose connect, header and idle read waits
// are each bounded by timeout.
func NewDownloader(timeout time.Duration, userAgent string, logger *log.Logger) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = discardLogger()
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	return &Downloader{
		Client:      &http.Client{Transport: transport},
		UserAgent:   userAgent,
		Logger:      logger,
		IdleTimeout: timeout,
	}
}

// chunkSize splits total into at most progressSteps reads of at least minChunkSize bytes.
func chunkSize(total int64) int {
	size := (total + progressSteps - 1) / progressSteps
	if size < minChunkSize {
		size = minChunkSize
	}
	return int(size)
}

// Fetch downloads url. A non-200 answer or a transport failure returns a
// NetworkFailure. When the server declares the size and progress is not nil,
// progress receives the completed fraction after every chunk.
func (d *Downloader) Fetch(ctx context.Context, url string, progress func(float64)) ([]byte, error) {
	return d.fetch(ctx, url, nil, progress)
}

// FetchAPI downloads a GitHub API document.
func (d *Downloader) FetchAPI(ctx context.Context, url string) ([]byte, error) {
	return d.fetch(ctx, url, http.Header{"Accept": []string{"application/vnd.github+json"}}, nil)
}

func (d *Downloader) fetch(ctx context.Context, url string, header http.Header, progress func(float64)) ([]byte, error) {
	d.Logger.Debug("trying to download", "url", url)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	idle := d.IdleTimeout
	if idle <= 0 {
		idle = DefaultTimeout
	}
	stalled := time.AfterFunc(idle, cancel)
	defer stalled.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wrapError(ReasonNetwork, err, "create request")
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("User-Agent", d.UserAgent)

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, wrapError(ReasonNetwork, err, "download %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.Logger.Debug("failed to download", "url", url, "status", resp.Status)
		return nil, newError(ReasonNetwork, "download %s: unexpected status %s", url, resp.Status)
	}

	total := resp.ContentLength
	d.Logger.Debug("total length", "bytes", total)
	if total > MaxDownloadSize {
		return nil, newError(ReasonNetwork, "download %s: declared size %d exceeds the %s limit",
			url, total, humanize.IBytes(MaxDownloadSize))
	}
	body := &idleReader{r: resp.Body, timer: stalled, idle: idle}
	if total <= 0 {
		data, err := io.ReadAll(io.LimitReader(body, MaxDownloadSize+1))
		if err != nil {
			return nil, d.readError(url, err, body)
		}
		if len(data) > MaxDownloadSize {
			return nil, newError(ReasonNetwork, "download %s: exceeds the %s limit", url, humanize.IBytes(MaxDownloadSize))
		}
		return data, nil
	}

	chunk := chunkSize(total)
	d.Logger.Debug("chunk size", "bytes", chunk)
	data := make([]byte, 0, min(total, maxSizeHint))
	buf := make([]byte, chunk)
	if progress != nil {
		progress(0)
	}
	for {
		n, err := io.ReadFull(body, buf)
		data = append(data, buf[:n]...)
		if n > 0 && progress != nil {
			progress(fraction(int64(len(data)), total))
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, d.readError(url, err, body)
		}
	}
	d.Logger.Debug("downloaded", "url", url, "size", humanize.Bytes(uint64(len(data))))
	if int64(len(data)) != total {
		return nil, newError(ReasonNetwork, "download %s: got %d of %d bytes", url, len(data), total)
	}
	return data, nil
}

func (d *Downloader) readError(url string, err error, body *idleReader) error {
	if body.expired() {
		return newError(ReasonNetwork, "download %s: no data for %s", url, body.idle)
	}
	return wrapError(ReasonNetwork, err, "read %s", url)
}

// idleReader pushes the stall deadline back after every successful read.
type idleReader struct {
	r     io.Reader
	timer *time.Timer
	idle  time.Duration
	fired bool
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 && !ir.timer.Reset(ir.idle) {
		// The deadline passed before this read returned; the request
		// context is already cancelled.
		ir.fired = true
	}
	if err != nil && !errors.Is(err, io.EOF) && !ir.fired {
		ir.fired = !ir.timer.Stop()
	}
	return n, err
}

func (ir *idleReader) expired() bool {
	return ir.fired
}

func fraction(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(done) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}

// ProgressBar renders the classic fixed-width text bar.
func ProgressBar(f float64) string {
	done := int(f * progressSteps)
	if done > progressSteps {
		done = progressSteps
	}
	bar := make([]byte, progressSteps)
	for i := range bar {
		if i < done {
			bar[i] = '='
		} else {
			bar[i] = ' '
		}
	}
	return fmt.Sprintf("[%s] %3d%%", bar, done*2)
}

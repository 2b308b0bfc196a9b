package pack

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// Phases reported through ProgressFunc.
const (
	PhaseDownload = "download"
	PhaseCompress = "compress"
	PhaseUpload   = "upload"
	PhaseDone     = "done"
)

// Progress tracks packing progress.
type Progress struct {
	Phase           string
	BytesDownloaded int64
	BytesTotal      int64
	BytesRead       int64 // uncompressed input consumed
	BytesWritten    int64 // xz output produced
	StartTime       time.Time
}

// ProgressFunc is called periodically with progress updates.
type ProgressFunc func(Progress)

// progressWriter wraps an io.Writer to track bytes written.
type progressWriter struct {
	w       io.Writer
	written *atomic.Int64
}

func newProgressWriter(w io.Writer, counter *atomic.Int64) *progressWriter {
	return &progressWriter{w: w, written: counter}
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.written.Add(int64(n))
	return n, err
}

// progressReader wraps an io.Reader to track bytes read.
type progressReader struct {
	r    io.Reader
	read *atomic.Int64
}

func newProgressReader(r io.Reader, counter *atomic.Int64) *progressReader {
	return &progressReader{r: r, read: counter}
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	pr.read.Add(int64(n))
	return n, err
}

// FormatBytes formats bytes as human-readable string.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatDuration formats duration as human-readable string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// ratio returns out/in, or 0 for empty input.
func ratio(in, out int64) float64 {
	if in == 0 {
		return 0
	}
	return float64(out) / float64(in)
}

// NewProgressPrinter returns a ProgressFunc that redraws one status line
// on w.
func NewProgressPrinter(w io.Writer) ProgressFunc {
	return func(p Progress) {
		switch p.Phase {
		case PhaseDownload:
			pct := float64(0)
			if p.BytesTotal > 0 {
				pct = float64(p.BytesDownloaded) / float64(p.BytesTotal) * 100
			}
			fmt.Fprintf(w, "\r[Download] %s / %s (%.1f%%)",
				FormatBytes(p.BytesDownloaded), FormatBytes(p.BytesTotal), pct)
		case PhaseCompress:
			fmt.Fprintf(w, "\r[Compress] %s in, %s out (ratio %.3f)",
				FormatBytes(p.BytesRead), FormatBytes(p.BytesWritten), ratio(p.BytesRead, p.BytesWritten))
		case PhaseUpload:
			fmt.Fprintf(w, "\n[Upload] %s\n", FormatBytes(p.BytesWritten))
		case PhaseDone:
			fmt.Fprintf(w, "\n[Done] %s -> %s (ratio %.3f) in %s\n",
				FormatBytes(p.BytesRead), FormatBytes(p.BytesWritten),
				ratio(p.BytesRead, p.BytesWritten), FormatDuration(time.Since(p.StartTime)))
		}
	}
}

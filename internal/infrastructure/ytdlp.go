package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alessio/shellescape"
	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/internal/domain"
	"github.com/yourusername/tubetrove-go/pkg/logger"
)

const progressPrefix = "[progress] "

// progressTemplate makes yt-dlp print one parseable line per progress tick:
// downloaded bytes, total bytes, estimated total bytes. Unknown values print as NA.
const progressTemplate = "download:" + progressPrefix +
	"%(progress.downloaded_bytes)s %(progress.total_bytes)s %(progress.total_bytes_estimate)s"

// DownloadOptions is the complete set of yt-dlp options this application uses.
// Each media kind fills in its own fields; nothing else is ever passed.
type DownloadOptions struct {
	Format            string // -f selector
	ExtractAudio      bool
	AudioFormat       string
	AudioQuality      string
	MergeOutputFormat string
	WriteThumbnail    bool
	FFmpegLocation    string
	OutputTemplate    string
}

// NewDownloadOptions builds the options for a job
func NewDownloadOptions(job domain.FetchJob, ffmpegLocation string) DownloadOptions {
	opts := DownloadOptions{
		WriteThumbnail: true,
		FFmpegLocation: ffmpegLocation,
		OutputTemplate: filepath.Join(job.OutputDir, job.Title+".%(ext)s"),
	}

	switch job.Request.Kind {
	case domain.KindAudio:
		opts.Format = "bestaudio/best"
		opts.ExtractAudio = true
		opts.AudioFormat = job.Request.Format
		opts.AudioQuality = "5"
		if job.Request.Format == "mp3" {
			opts.AudioQuality = "192"
		}
	default:
		opts.Format = "bestvideo+bestaudio/best"
		opts.MergeOutputFormat = job.Request.Format
	}
	return opts
}

// Args renders the options as a yt-dlp argument list ending with url
func (o DownloadOptions) Args(url string) []string {
	args := []string{"--newline", "--no-warnings", "--progress-template", progressTemplate}
	if o.Format != "" {
		args = append(args, "-f", o.Format)
	}
	if o.ExtractAudio {
		args = append(args, "-x", "--audio-format", o.AudioFormat, "--audio-quality", o.AudioQuality)
	}
	if o.MergeOutputFormat != "" {
		args = append(args, "--merge-output-format", o.MergeOutputFormat)
	}
	if o.WriteThumbnail {
		args = append(args, "--write-thumbnail")
	}
	if o.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", o.FFmpegLocation)
	}
	args = append(args, "-o", o.OutputTemplate, url)
	return args
}

// ParseProgressLine parses a line printed through progressTemplate
func ParseProgressLine(line string) (domain.Progress, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), progressPrefix)
	if !ok {
		return domain.Progress{}, false
	}
	fields := strings.Fields(rest)
	if len(fields) != 3 {
		return domain.Progress{}, false
	}

	downloaded, ok := parseByteCount(fields[0])
	if !ok {
		return domain.Progress{}, false
	}
	total, ok := parseByteCount(fields[1])
	if !ok {
		total, _ = parseByteCount(fields[2])
	}
	return domain.Progress{DownloadedBytes: downloaded, TotalBytes: total}, true
}

func parseByteCount(s string) (int64, bool) {
	if s == "NA" || s == "None" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int64(f), true
}

// YTDLPDownloader implements domain.Fetcher by shelling out to yt-dlp
type YTDLPDownloader struct {
	binary         string
	ffmpegLocation string
	logsDir        string
	eventLogger    *logger.MultiLogger
}

// NewYTDLPDownloader creates a new yt-dlp downloader
func NewYTDLPDownloader(binary, ffmpegLocation, logsDir string, eventLogger *logger.MultiLogger) *YTDLPDownloader {
	return &YTDLPDownloader{
		binary:         binary,
		ffmpegLocation: ffmpegLocation,
		logsDir:        logsDir,
		eventLogger:    eventLogger,
	}
}

// FFmpegLocation returns the value passed to --ffmpeg-location
func (d *YTDLPDownloader) FFmpegLocation() string {
	return d.ffmpegLocation
}

type videoInfo struct {
	Title string `json:"title"`
}

// ResolveTitle fetches the metadata of url without downloading and returns its title
func (d *YTDLPDownloader) ResolveTitle(ctx context.Context, url string) (string, error) {
	cmd := exec.CommandContext(ctx, d.binary, "--dump-single-json", "--skip-download", "--no-warnings", url)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("metadata fetch failed: %s", toolError(err, stderr.String()))
	}

	var info videoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return "", fmt.Errorf("failed to parse metadata: %w", err)
	}
	return info.Title, nil
}

// Fetch downloads media and thumbnail for job into job.OutputDir
func (d *YTDLPDownloader) Fetch(ctx context.Context, job domain.FetchJob, progress domain.ProgressCallback) error {
	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if progress == nil {
		progress = func(domain.Progress) {}
	}

	args := NewDownloadOptions(job, d.ffmpegLocation).Args(job.Request.URL)

	downloadLog, err := d.openLogFile()
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer downloadLog.Close()

	d.writeLogHeader(downloadLog, job.ID, shellescape.QuoteCommand(append([]string{d.binary}, args...)))

	// stdout and stderr share one pipe, like 2>&1
	pr, pw := io.Pipe()
	cmd := exec.CommandContext(ctx, d.binary, args...)
	cmd.Stdout = pw
	cmd.Stderr = pw

	filename := job.Title + "." + job.Request.Format
	var lastError string
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if p, ok := ParseProgressLine(line); ok {
				p.Filename = filename
				progress(p)
				continue
			}
			fmt.Fprintln(downloadLog, line)
			if strings.HasPrefix(line, "ERROR:") {
				lastError = strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
			}
		}
		// drain so the child never blocks on a full pipe
		_, _ = io.Copy(io.Discard, pr)
	}()

	err = cmd.Run()
	pw.Close()
	wg.Wait()

	if err != nil {
		msg := toolError(err, lastError)
		d.writeLogFooter(downloadLog, false, "yt-dlp failed: "+msg)
		if d.eventLogger != nil {
			d.eventLogger.LogAppError("yt-dlp failed", zap.String("download_id", job.ID), zap.String("error", msg))
		}
		return fmt.Errorf("yt-dlp failed: %s", msg)
	}

	progress(domain.Progress{Filename: filename, Finished: true})
	d.writeLogFooter(downloadLog, true, "Downloaded: "+filepath.Join(job.OutputDir, filename))
	return nil
}

// openLogFile opens today's download log, shared by every download
func (d *YTDLPDownloader) openLogFile() (*os.File, error) {
	if err := os.MkdirAll(d.logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	return os.OpenFile(logger.DownloadLogPath(d.logsDir, time.Now()), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func (d *YTDLPDownloader) writeLogHeader(w io.Writer, downloadID, cmdLine string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(w, "\n=== [%s] Download: %s ===\n", timestamp, downloadID)
	fmt.Fprintf(w, "$ %s\n", cmdLine)
}

func (d *YTDLPDownloader) writeLogFooter(w io.Writer, success bool, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, status, message)
	fmt.Fprint(w, "=== END ===\n\n")
}

// toolError prefers the tool's own error text over the bare exit status
func toolError(err error, output string) string {
	output = strings.TrimSpace(output)
	if output != "" {
		if i := strings.LastIndex(output, "ERROR:"); i >= 0 {
			output = strings.TrimSpace(output[i+len("ERROR:"):])
		}
		return output
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return strings.TrimSpace(string(exitErr.Stderr))
	}
	return err.Error()
}

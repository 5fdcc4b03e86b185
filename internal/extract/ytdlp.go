package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// strategy is one yt-dlp invocation profile. Profiles are tried in order
// until one produces an audio file; later entries trade quality for
// reliability against throttling and format gaps.
type strategy struct {
	name      string
	format    string
	quality   string
	userAgent string
}

var strategies = []strategy{
	{name: "bestaudio", format: "bestaudio/best", quality: "192K", userAgent: browserUserAgent},
	{name: "worstaudio", format: "worstaudio/worst", quality: "128K", userAgent: browserUserAgent},
	{name: "mp4", format: "mp4"},
}

type Options struct {
	// Executable is the yt-dlp binary. Empty means "yt-dlp" on PATH.
	Executable string

	// TempDir hosts per-extraction working directories. Empty means the
	// system temp directory.
	TempDir string

	// Timeout bounds a single yt-dlp invocation. Zero means 10 minutes.
	Timeout time.Duration

	Logger *zap.Logger
}

// YtDlp extracts audio by shelling out to yt-dlp. Each call works in a
// fresh directory so concurrent requests never share files.
type YtDlp struct {
	executable string
	tempDir    string
	timeout    time.Duration
	logger     *zap.Logger

	// runFn is replaced in tests that cannot exec a real binary.
	runFn func(ctx context.Context, name string, args []string) (string, error)
}

func NewYtDlp(opts Options) *YtDlp {
	if opts.Executable == "" {
		opts.Executable = "yt-dlp"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	e := &YtDlp{
		executable: opts.Executable,
		tempDir:    opts.TempDir,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
	}
	e.runFn = e.run
	return e
}

// Extract downloads the URL's audio track as mp3 and returns the file
// path. The caller owns the returned file and its parent directory.
func (e *YtDlp) Extract(ctx context.Context, url string) (string, error) {
	workDir, err := os.MkdirTemp(e.tempDir, "tubescribe-audio-")
	if err != nil {
		return "", fmt.Errorf("create extraction directory: %w", err)
	}

	audioPath, err := e.extractInto(ctx, url, workDir)
	if err != nil {
		_ = os.RemoveAll(workDir)
		return "", err
	}
	return audioPath, nil
}

func (e *YtDlp) extractInto(ctx context.Context, url, workDir string) (string, error) {
	outputTemplate := filepath.Join(workDir, "audio.%(ext)s")
	expected := filepath.Join(workDir, "audio.mp3")

	var lastErr error
	for _, s := range strategies {
		runCtx, cancel := context.WithTimeout(ctx, e.timeout)
		output, err := e.runFn(runCtx, e.executable, buildArgs(s, url, outputTemplate))
		cancel()

		if err == nil {
			if _, statErr := os.Stat(expected); statErr == nil {
				return expected, nil
			}
			// yt-dlp exited zero without producing the file; treat it
			// like a failed strategy.
			err = fmt.Errorf("no audio file produced")
		}

		lastErr = classifyRunError(err, output)
		e.logger.Warn("extraction strategy failed",
			zap.String("strategy", s.name),
			zap.String("url", url),
			zap.Error(lastErr),
		)

		if ctx.Err() != nil {
			return "", fmt.Errorf("extraction canceled: %w", ctx.Err())
		}
	}

	return "", fmt.Errorf("all extraction strategies failed: %w", lastErr)
}

func buildArgs(s strategy, url, outputTemplate string) []string {
	args := []string{
		"--no-warnings",
		"--no-playlist",
		"-f", s.format,
		"-x",
		"--audio-format", "mp3",
	}
	if s.quality != "" {
		args = append(args, "--audio-quality", s.quality)
	}
	if s.userAgent != "" {
		args = append(args, "--user-agent", s.userAgent)
	}
	return append(args, "-o", outputTemplate, url)
}

func (e *YtDlp) run(ctx context.Context, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	// yt-dlp spreads diagnostics across both streams; capture them
	// together for classification.
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	e.logger.Debug("running yt-dlp", zap.String("executable", name), zap.Strings("args", args))
	err := cmd.Run()
	return output.String(), err
}

func classifyRunError(err error, output string) error {
	detail := strings.TrimSpace(output)
	lowered := strings.ToLower(detail)

	switch {
	case strings.Contains(lowered, "video unavailable"),
		strings.Contains(lowered, "this video is not available"),
		strings.Contains(lowered, "video has been removed"):
		return fmt.Errorf("%w: %s", ErrUnavailable, firstLine(detail))
	case strings.Contains(lowered, "sign in to confirm"),
		strings.Contains(lowered, "private video"),
		strings.Contains(lowered, "age-restricted"),
		strings.Contains(lowered, "confirm your age"):
		return fmt.Errorf("%w: %s", ErrRestricted, firstLine(detail))
	}

	if detail != "" {
		return fmt.Errorf("yt-dlp failed: %w (%s)", err, firstLine(detail))
	}
	return fmt.Errorf("yt-dlp failed: %w", err)
}

func firstLine(s string) string {
	// yt-dlp prints its actual error on the last ERROR: line.
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			return line
		}
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

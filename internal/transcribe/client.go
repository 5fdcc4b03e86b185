package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.assemblyai.com"

var (
	// ErrPollTimeout means the job did not reach a terminal state before
	// the configured deadline. The upstream job may still finish later;
	// the request just stops waiting for it.
	ErrPollTimeout = errors.New("transcription poll deadline exceeded")

	// ErrJobFailed means the service reported a terminal error state for
	// the job.
	ErrJobFailed = errors.New("transcription job failed")
)

type Options struct {
	// APIKey authorizes every request.
	APIKey string

	// BaseURL overrides the API host. Used by tests.
	BaseURL string

	// Language is the language_code submitted with each job. Empty means
	// the service's automatic detection.
	Language string

	// PollInterval is the initial delay between status checks. Zero
	// means 2 seconds. Subsequent checks back off ×1.5 capped at 15 s.
	PollInterval time.Duration

	// PollTimeout bounds the whole wait for a terminal state. Zero means
	// 10 minutes.
	PollTimeout time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the AssemblyAI v2 REST API: upload an audio file,
// submit a transcription job, and poll it until terminal.
type Client struct {
	apiKey       string
	baseURL      string
	language     string
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpClient   *http.Client
	logger       *zap.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 10 * time.Minute
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Client{
		apiKey:       opts.APIKey,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		language:     opts.Language,
		pollInterval: opts.PollInterval,
		pollTimeout:  opts.PollTimeout,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
	}, nil
}

// Transcribe uploads the audio file, submits a job for it, and waits for
// the transcript text.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	audioURL, err := c.Upload(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}

	jobID, err := c.Submit(ctx, audioURL)
	if err != nil {
		return "", fmt.Errorf("submit transcription job: %w", err)
	}

	c.logger.Info("transcription job submitted", zap.String("job_id", jobID))
	return c.Wait(ctx, jobID)
}

// Upload streams the file to the upload endpoint and returns the URL the
// transcript endpoint accepts as audio_url.
func (c *Client) Upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", f)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var parsed uploadResponse
	if err := c.do(req, &parsed); err != nil {
		return "", err
	}
	if parsed.UploadURL == "" {
		return "", errors.New("upload response missing upload_url")
	}
	return parsed.UploadURL, nil
}

// Submit creates a transcription job for an already-uploaded audio URL
// and returns the job ID.
func (c *Client) Submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(transcriptRequest{AudioURL: audioURL, LanguageCode: c.language})
	if err != nil {
		return "", fmt.Errorf("encode transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create transcript request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var job Job
	if err := c.do(req, &job); err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", errors.New("transcript response missing job id")
	}
	return job.ID, nil
}

// Status fetches the current state of a job.
func (c *Client) Status(ctx context.Context, jobID string) (Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+jobID, nil)
	if err != nil {
		return Job{}, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	var job Job
	if err := c.do(req, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Wait polls the job until it reaches a terminal state, backing off
// between checks, and returns the transcript text. It gives up with
// ErrPollTimeout once the deadline passes.
func (c *Client) Wait(ctx context.Context, jobID string) (string, error) {
	deadline := time.Now().Add(c.pollTimeout)
	interval := c.pollInterval

	for {
		job, err := c.Status(ctx, jobID)
		if err != nil {
			return "", fmt.Errorf("check job status: %w", err)
		}

		switch job.Status {
		case StatusCompleted:
			return job.Text, nil
		case StatusError:
			if job.Error == "" {
				return "", ErrJobFailed
			}
			return "", fmt.Errorf("%w: %s", ErrJobFailed, job.Error)
		}

		if time.Now().Add(interval).After(deadline) {
			c.logger.Warn("giving up on transcription job",
				zap.String("job_id", jobID),
				zap.String("last_status", job.Status),
				zap.Duration("waited", c.pollTimeout),
			)
			return "", ErrPollTimeout
		}

		c.logger.Debug("job not terminal yet",
			zap.String("job_id", jobID),
			zap.String("status", job.Status),
			zap.Duration("next_check", interval),
		)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}

		interval = interval * 3 / 2
		if interval > 15*time.Second {
			interval = 15 * time.Second
		}
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Error bodies are short; cap them so a broken proxy cannot make
		// the service buffer arbitrary data.
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
		}
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, req.URL.Path, compact(body))
	}

	// Completed transcript resources carry per-word timing data and grow
	// well past a megabyte for long audio, so the success path decodes
	// the stream unbounded.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

func compact(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

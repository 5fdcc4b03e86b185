// Package pipeline runs the per-request chain: validate the URL,
// download its audio, transcribe it, and clean up the temporary file on
// every exit path. Each request owns its own state; nothing is shared or
// retried.
package pipeline

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"tubescribe/internal/extract"
	"tubescribe/internal/metrics"
	"tubescribe/internal/questions"
)

// Transcriber turns a local audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// QuestionGenerator produces study questions from a transcript.
type QuestionGenerator interface {
	Generate(ctx context.Context, transcript string) ([]questions.Question, error)
}

// Result is what a successful run hands to the renderer.
type Result struct {
	URL        string
	Transcript string
	Questions  []questions.Question
}

type Options struct {
	Extractor   extract.Extractor
	Transcriber Transcriber

	// Questions is optional; nil disables question generation.
	Questions QuestionGenerator

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type Pipeline struct {
	extractor   extract.Extractor
	transcriber Transcriber
	questions   QuestionGenerator
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(prometheus.NewRegistry())
	}

	return &Pipeline{
		extractor:   opts.Extractor,
		transcriber: opts.Transcriber,
		questions:   opts.Questions,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
}

// Run processes one request start to finish. The temporary audio file is
// removed before Run returns, whether or not any step succeeded.
func (p *Pipeline) Run(ctx context.Context, rawURL string) (Result, error) {
	p.metrics.RequestsTotal.Inc()
	p.metrics.RequestsInFlight.Inc()
	defer p.metrics.RequestsInFlight.Dec()

	videoURL, err := validateURL(rawURL)
	if err != nil {
		p.metrics.RequestsFailed.WithLabelValues(metrics.StageValidate).Inc()
		return Result{}, err
	}

	started := time.Now()
	audioPath, err := p.extractor.Extract(ctx, videoURL)
	p.metrics.StageDuration.WithLabelValues(metrics.StageDownload).Observe(time.Since(started).Seconds())
	if err != nil {
		p.metrics.RequestsFailed.WithLabelValues(metrics.StageDownload).Inc()
		p.logger.Warn("audio extraction failed", zap.String("url", videoURL), zap.Error(err))
		return Result{}, &DownloadError{Err: err}
	}
	defer p.cleanup(audioPath)

	p.logger.Info("audio extracted", zap.String("url", videoURL), zap.String("audio", audioPath))

	started = time.Now()
	transcript, err := p.transcriber.Transcribe(ctx, audioPath)
	p.metrics.StageDuration.WithLabelValues(metrics.StageTranscribe).Observe(time.Since(started).Seconds())
	if err != nil {
		p.metrics.RequestsFailed.WithLabelValues(metrics.StageTranscribe).Inc()
		p.logger.Warn("transcription failed", zap.String("url", videoURL), zap.Error(err))
		return Result{}, &TranscriptionError{Err: err}
	}

	p.logger.Info("transcription finished",
		zap.String("url", videoURL),
		zap.Int("transcript_chars", len(transcript)),
		zap.Duration("elapsed", time.Since(started)),
	)

	result := Result{URL: videoURL, Transcript: transcript}
	if p.questions != nil {
		result.Questions = p.generateQuestions(ctx, transcript)
	}
	return result, nil
}

// generateQuestions is best-effort: a failure leaves the transcript page
// without questions but never fails the request.
func (p *Pipeline) generateQuestions(ctx context.Context, transcript string) []questions.Question {
	started := time.Now()
	generated, err := p.questions.Generate(ctx, transcript)
	p.metrics.StageDuration.WithLabelValues(metrics.StageQuestions).Observe(time.Since(started).Seconds())
	if err != nil {
		p.metrics.RequestsFailed.WithLabelValues(metrics.StageQuestions).Inc()
		p.logger.Warn("question generation failed", zap.Error(err))
		return nil
	}
	return generated
}

// cleanup removes the temporary audio file and its per-request
// directory, including any partial output an earlier failed strategy
// left beside it. The pipeline owns the directory exclusively per the
// Extractor contract. Failures are logged only; a stale temp file must
// never fail a request that otherwise succeeded.
func (p *Pipeline) cleanup(audioPath string) {
	if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("failed to remove temporary audio", zap.String("path", audioPath), zap.Error(err))
		return
	}
	if err := os.RemoveAll(filepath.Dir(audioPath)); err != nil {
		p.logger.Warn("failed to remove audio work directory", zap.String("path", filepath.Dir(audioPath)), zap.Error(err))
	}
}

func validateURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", &ValidationError{Reason: "Please enter a video URL."}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", &ValidationError{Reason: "That does not look like a valid video URL."}
	}

	return trimmed, nil
}

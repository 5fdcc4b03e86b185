// Package server exposes the web surface: the transcript form page, a
// liveness endpoint, and Prometheus metrics.
package server

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tubescribe/internal/pipeline"
)

//go:embed templates/index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

// Runner is the pipeline surface the handlers need.
type Runner interface {
	Run(ctx context.Context, rawURL string) (pipeline.Result, error)
}

type pageData struct {
	URL        string
	Transcript string
	Questions  []struct{ Question, Answer string }
	Error      string
}

type Options struct {
	Pipeline Runner
	Logger   *zap.Logger

	// Gatherer backs the /metrics endpoint. Nil disables it.
	Gatherer prometheus.Gatherer

	// ReadTimeout bounds reading a request. Zero means 30 seconds.
	ReadTimeout time.Duration
}

type Server struct {
	app      *fiber.App
	pipeline Runner
	logger   *zap.Logger
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}

	s := &Server{
		pipeline: opts.Pipeline,
		logger:   opts.Logger,
	}

	app := fiber.New(fiber.Config{
		AppName:               "tubescribe",
		DisableStartupMessage: true,
		ReadTimeout:           opts.ReadTimeout,
		// Transcription holds the connection for the whole pipeline, so
		// writes must be allowed to take as long as the poll deadline.
		WriteTimeout: 0,
	})

	app.Get("/", s.handleIndex)
	app.Post("/", s.handleTranscribe)
	app.Get("/health", s.handleHealth)
	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	s.app = app
	return s
}

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	return s.render(c, pageData{})
}

func (s *Server) handleTranscribe(c *fiber.Ctx) error {
	rawURL := c.FormValue("youtube_url")

	result, err := s.pipeline.Run(c.UserContext(), rawURL)
	if err != nil {
		return s.render(c, pageData{URL: rawURL, Error: pipeline.UserMessage(err)})
	}

	data := pageData{URL: result.URL, Transcript: result.Transcript}
	for _, q := range result.Questions {
		data.Questions = append(data.Questions, struct{ Question, Answer string }{q.Question, q.Answer})
	}
	return s.render(c, data)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

func (s *Server) render(c *fiber.Ctx, data pageData) error {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("render index template", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

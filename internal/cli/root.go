package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tubescribe/internal/config"
	"tubescribe/internal/extract"
	"tubescribe/internal/logging"
	"tubescribe/internal/metrics"
	"tubescribe/internal/pipeline"
	"tubescribe/internal/questions"
	"tubescribe/internal/server"
	"tubescribe/internal/transcribe"
	"tubescribe/internal/version"
)

type appState struct {
	verbose  bool
	jsonLogs bool

	logger *zap.Logger

	// Replaced in tests.
	loadConfigFn func() (config.Config, error)
	serveFn      func(ctx context.Context, cfg config.Config) error
}

func NewRootCmd() *cobra.Command {
	app := &appState{}
	app.loadConfigFn = config.Load
	app.serveFn = app.serve

	cmd := &cobra.Command{
		Use:           "tubescribe",
		Short:         "Web service that turns video URLs into transcripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runServe(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newServeCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runServe(cmd.Context())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "tubescribe v%s\n", version.Resolve())
			return nil
		},
	}
}

func (a *appState) runServe(ctx context.Context) error {
	cfg, err := a.loadConfigFn()
	if err != nil {
		return err
	}
	return a.serveFn(ctx, cfg)
}

func (a *appState) serve(ctx context.Context, cfg config.Config) error {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	transcriber, err := transcribe.NewClient(transcribe.Options{
		APIKey:       cfg.AssemblyAIKey,
		Language:     cfg.Language,
		PollInterval: cfg.PollInterval,
		PollTimeout:  cfg.PollTimeout,
		Logger:       a.log(),
	})
	if err != nil {
		return fmt.Errorf("build transcription client: %w", err)
	}

	var generator pipeline.QuestionGenerator
	if cfg.QuestionsEnabled() {
		g, err := questions.NewGenerator(questions.Options{APIKey: cfg.OpenAIKey, Logger: a.log()})
		if err != nil {
			return fmt.Errorf("build question generator: %w", err)
		}
		generator = g
		a.log().Info("question generation enabled")
	}

	p := pipeline.New(pipeline.Options{
		Extractor: extract.NewYtDlp(extract.Options{
			Executable: cfg.YtDlpPath,
			TempDir:    cfg.TempDir,
			Timeout:    cfg.ExtractTimeout,
			Logger:     a.log(),
		}),
		Transcriber: transcriber,
		Questions:   generator,
		Logger:      a.log(),
		Metrics:     m,
	})

	srv := server.New(server.Options{
		Pipeline: p,
		Logger:   a.log(),
		Gatherer: registry,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

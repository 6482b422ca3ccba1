package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nijaru/yt-summary/config"
	"github.com/nijaru/yt-summary/handlers/api"
	"github.com/nijaru/yt-summary/logger"
	"github.com/nijaru/yt-summary/repository/sqlstore"
	"github.com/nijaru/yt-summary/scripts"
	"github.com/nijaru/yt-summary/services/summary"
	"github.com/nijaru/yt-summary/services/transcript"
	"github.com/nijaru/yt-summary/services/video"
	"github.com/nijaru/yt-summary/storage"
	"github.com/nijaru/yt-summary/youtube"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string

	// evaluate / transcript options
	promptOnly bool
	outputPath string
	timeout    time.Duration
)

// buildApp is replaced in tests.
var buildApp = newApp

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "yt-summary",
		Short:         "Summarize YouTube videos from their captions or a local transcription",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (default $CONFIG_FILE)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	evaluateCmd := &cobra.Command{
		Use:   "evaluate URL",
		Short: "Summarize a single video and write the result to a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvaluate,
	}
	evaluateCmd.Flags().BoolVar(&promptOnly, "prompt-only", false, "Write the LLM prompt instead of calling the model")
	evaluateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default video_summary.md, or prompt.txt with --prompt-only)")
	evaluateCmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall time limit (default from VIDEO_PROCESS_TIMEOUT)")

	transcriptCmd := &cobra.Command{
		Use:   "transcript URL",
		Short: "Fetch or produce the transcript of a video",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranscript,
	}
	transcriptCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default stdout)")
	transcriptCmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall time limit (default from VIDEO_PROCESS_TIMEOUT)")

	rootCmd.AddCommand(serveCmd, evaluateCmd, transcriptCmd)
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFrom(configFile)
	}
	return config.Load()
}

// app holds everything a command needs; close releases it.
type app struct {
	config  *config.Config
	logger  *logrus.Logger
	service video.Service
	db      *sqlstore.DB
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Database shutdown error")
	}
}

// appOptions carries command-line overrides on top of the loaded config.
type appOptions struct {
	// quiet keeps logs off stdout for commands that print results there
	quiet      bool
	promptOnly bool
	timeout    time.Duration
}

// newApp wires the collaborators from configuration.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.promptOnly {
		cfg.Summary.PromptOnly = true
	}
	if opts.timeout > 0 {
		cfg.Transcript.ProcessTimeout = opts.timeout
	}
	quiet := opts.quiet

	log, err := logger.New(logger.Options{
		Dir:    cfg.LogDir,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Quiet:  quiet,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	dbConfig := sqlstore.DefaultDBConfig()
	dbConfig.Driver = cfg.Database.Driver
	dbConfig.DSN = cfg.Database.DSN
	dbConfig.MaxConnections = cfg.Database.MaxConnections
	dbConfig.MaxIdleConnections = cfg.Database.MaxIdleConnections
	dbConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime

	db, err := sqlstore.Open(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	summarizer, err := newSummarizer(ctx, cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	// progress bars are for the CLI commands only
	yt := youtube.NewClient(youtube.Options{
		HTTPClient:   &http.Client{Timeout: cfg.Transcript.ProcessTimeout},
		ShowProgress: cfg.Transcript.ShowProgress && quiet,
	}, log)

	whisper := scripts.NewWhisper(scripts.WhisperConfig{
		WhisperPath: cfg.Transcript.WhisperPath,
		Model:       cfg.Transcript.WhisperModel,
		FFmpegPath:  cfg.Transcript.FFmpegPath,
	}, scripts.NewRunner(cfg.Transcript.Environment, log), log)
	if err := whisper.Validate(); err != nil {
		// captions still work without a local engine
		log.WithError(err).Warn("Local transcription is unavailable")
	}

	pipeline := transcript.NewPipeline(yt, yt, whisper, transcript.Config{
		Languages:     cfg.Transcript.Languages,
		ScratchDir:    cfg.TempDir,
		Language:      cfg.Transcript.Language,
		OutputFormat:  cfg.Transcript.OutputFormat,
		MaxConcurrent: cfg.Transcript.MaxConcurrent,
	}, log)

	serviceOpts := []video.Option{
		video.WithRepository(sqlstore.NewRepository(db)),
		video.WithLogger(log),
	}
	if cfg.Storage.Enabled {
		archive, err := storage.NewSpacesClient(ctx, storage.SpacesConfig{
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			Bucket:    cfg.Storage.Bucket,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize transcript archive: %w", err)
		}
		serviceOpts = append(serviceOpts, video.WithArchive(archive))
	}

	service := video.NewService(pipeline, summarizer, video.Config{
		ProcessTimeout: cfg.Transcript.ProcessTimeout,
		ReuseCompleted: true,
	}, serviceOpts...)

	return &app{config: cfg, logger: log, service: service, db: db}, nil
}

func newSummarizer(ctx context.Context, cfg *config.Config, log *logrus.Logger) (summary.Client, error) {
	if cfg.Summary.PromptOnly {
		return summary.PromptOnly{}, nil
	}
	if cfg.Summary.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required unless --prompt-only is set")
	}
	client, err := summary.NewGemini(ctx, summary.Config{
		APIKey:          cfg.Summary.APIKey,
		Model:           cfg.Summary.Model,
		Temperature:     cfg.Summary.Temperature,
		MaxOutputTokens: cfg.Summary.MaxOutputTokens,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize summarizer: %w", err)
	}
	return client, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := buildApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	server := api.NewServer(a.config,
		api.WithLogger(a.logger),
		api.WithServices(a.service),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("Server shutdown error")
		return err
	}
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := buildApp(ctx, appOptions{quiet: true, promptOnly: promptOnly, timeout: timeout})
	if err != nil {
		return err
	}
	defer a.close()

	evaluation, err := a.service.Evaluate(ctx, args[0])
	if err != nil {
		return err
	}

	path := outputPath
	if path == "" {
		path = "video_summary.md"
		if a.config.Summary.PromptOnly {
			path = "prompt.txt"
		}
	}

	if err := os.WriteFile(path, []byte(evaluation.Summary), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s transcript, model %s)\n",
		path, evaluation.TranscriptSource, evaluation.SummaryModel)
	return nil
}

func runTranscript(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	// no model is called, so a missing API key must not block this command
	a, err := buildApp(ctx, appOptions{quiet: true, promptOnly: true, timeout: timeout})
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.service.Transcript(ctx, args[0])
	if err != nil {
		return err
	}

	if outputPath == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), result.Text)
		return err
	}

	if err := os.WriteFile(outputPath, []byte(result.Text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", outputPath, result.Source)
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/interviewer/internal/analytics"
	"github.com/pavelanni/interviewer/internal/handler"
	appI18n "github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/interview"
	"github.com/pavelanni/interviewer/internal/jobs"
	"github.com/pavelanni/interviewer/internal/llm"
	"github.com/pavelanni/interviewer/internal/llm/prompts"
	"github.com/pavelanni/interviewer/internal/metrics"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/scoring"
	"github.com/pavelanni/interviewer/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "interviewer",
		Short: "Adaptive interview practice server powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, pregenerateCmd(), leaderboardCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "en", "Default language for API messages (en, ru)")
	f.StringSlice("cors-origins", []string{"http://localhost:5173"}, "Allowed CORS origins")
	f.Int("default-questions", model.DefaultConfig().DefaultQuestionCount, "Questions per type when a request does not say")
	f.Int("max-questions", model.DefaultConfig().MaxQuestionCount, "Largest question count a request may ask for")
	f.Int("eval-concurrency", model.DefaultConfig().EvalConcurrency, "Subjective answers evaluated in parallel")
	f.Duration("evaluation-timeout", model.DefaultConfig().EvaluationTimeout, "Timeout for one answer evaluation")
	f.String("pregen-schedule", "@hourly", "Cron spec for question bank pre-generation (empty disables it)")
	addPregenFlags(f)
	addStoreFlags(f)
	addLLMFlags(f)
	addLogFlags(f)
	return cmd
}

func addStoreFlags(f *pflag.FlagSet) {
	f.String("db", "interviewer.db", "SQLite database path")
}

func addLLMFlags(f *pflag.FlagSet) {
	f.String("llm-provider", "openai", "Text generation backend (openai, gemini)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for the OpenAI-compatible endpoint")
	f.String("llm-model", "llama3.2", "Model name")
	f.Float32("llm-temperature", 0.7, "Sampling temperature for the OpenAI-compatible endpoint")
	f.String("gemini-key", "", "Gemini API key (or set INTERVIEWER_GEMINI_KEY)")
	f.Duration("generation-timeout", model.DefaultConfig().GenerationTimeout, "Timeout for one generation call")
}

func addPregenFlags(f *pflag.FlagSet) {
	def := jobs.DefaultPregenConfig()
	f.StringSlice("pregen-roles", def.Roles, "Roles kept stocked in the question bank")
	f.Int("pregen-min-bank", def.MinBankSize, "Bank size per role and level below which questions are generated")
	f.Int("pregen-batch", def.BatchSize, "Questions requested per type and generation call")
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func setupLogging(v *viper.Viper) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)
	return logger
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("INTERVIEWER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("interviewer")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/interviewer")
	v.AddConfigPath("/etc/interviewer")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func interviewConfig(v *viper.Viper) model.Config {
	return model.Config{
		DefaultQuestionCount: v.GetInt("default-questions"),
		MaxQuestionCount:     v.GetInt("max-questions"),
		EvalConcurrency:      v.GetInt("eval-concurrency"),
		GenerationTimeout:    v.GetDuration("generation-timeout"),
		EvaluationTimeout:    v.GetDuration("evaluation-timeout"),
	}
}

func pregenConfig(v *viper.Viper) jobs.PregenConfig {
	cfg := jobs.DefaultPregenConfig()
	cfg.Schedule = v.GetString("pregen-schedule")
	cfg.Roles = v.GetStringSlice("pregen-roles")
	cfg.MinBankSize = v.GetInt("pregen-min-bank")
	cfg.BatchSize = v.GetInt("pregen-batch")
	cfg.Timeout = v.GetDuration("generation-timeout")
	return cfg
}

// newLLMService builds the configured text-generation backend.
func newLLMService(ctx context.Context, v *viper.Viper, logger *slog.Logger, m *metrics.Metrics) (*llm.Service, error) {
	set, err := prompts.Load()
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	var client llm.Client
	switch provider := strings.ToLower(v.GetString("llm-provider")); provider {
	case "gemini":
		c, err := llm.NewGemini(ctx, v.GetString("gemini-key"), v.GetString("llm-model"))
		if err != nil {
			return nil, err
		}
		client = c
	case "openai":
		c := llm.NewOpenAI(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"),
			float32(v.GetFloat64("llm-temperature")))
		// Generation falls back to banked questions, so a dead endpoint is not fatal.
		if err := c.Ping(ctx); err != nil {
			logger.Warn("LLM health check failed", "url", v.GetString("llm-url"), "error", err)
		} else {
			logger.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
		}
		client = c
	default:
		return nil, fmt.Errorf("unknown llm-provider %q (want openai or gemini)", provider)
	}
	return llm.NewService(client, set, logger, m), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	logger := setupLogging(v)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang, logger); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gen, err := newLLMService(ctx, v, logger, m)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}

	cfg := interviewConfig(v)
	engine := analytics.NewEngine(db, logger, m)
	evaluator := scoring.NewEvaluator(db, gen, logger, m, cfg)
	svc := interview.New(db, gen, evaluator, engine, logger, m, cfg)

	if pcfg := pregenConfig(v); pcfg.Schedule != "" {
		job := jobs.NewPregenerator(db, gen, logger, m, pcfg)
		if err := job.Start(); err != nil {
			return err
		}
		defer job.Stop()
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: v.GetStringSlice("cors-origins"),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type"},
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(appI18n.Middleware)
	handler.New(svc, engine, m, logger).Routes(r)

	// A full session makes two generation calls before responding.
	writeTimeout := 3*cfg.GenerationTimeout + 15*time.Second
	srv := &http.Server{
		Addr:         v.GetString("addr"),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", srv.Addr,
			"provider", v.GetString("llm-provider"),
			"model", v.GetString("llm-model"),
			"lang", lang,
			"default_questions", cfg.DefaultQuestionCount,
			"max_questions", cfg.MaxQuestionCount,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

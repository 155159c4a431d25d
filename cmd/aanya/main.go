// Command aanya runs the companion core behind a thin JSON HTTP surface.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/clog"
	"github.com/urfave/cli/v3"

	"github.com/aanya-ai/aanya/brain"
	"github.com/aanya-ai/aanya/logging"
	"github.com/aanya-ai/aanya/memory"
	"github.com/aanya-ai/aanya/memory/embedder/mock"
	"github.com/aanya-ai/aanya/memory/embedder/ollama"
	"github.com/aanya-ai/aanya/memory/store/chromem"
	"github.com/aanya-ai/aanya/memory/store/sqlite"
	"github.com/aanya-ai/aanya/persona"
	"github.com/aanya-ai/aanya/provider"
	"github.com/aanya-ai/aanya/provider/anthropic"
	"github.com/aanya-ai/aanya/provider/openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

type config struct {
	addr     string
	dataDir  string
	userName string
	logLevel string

	groqKeys       string
	groqModel      string
	anthropicKeys  string
	anthropicModel string

	embedder    string
	ollamaHost  string
	ollamaModel string
}

func main() {
	// Same convention as the original deployment: secrets come from .env.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args); err != nil {
		logging.Default().Error("aanya exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cfg config

	app := &cli.Command{
		Name:  "aanya",
		Usage: "personal AI companion with layered memory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "HTTP listen address",
				Value:       ":8080",
				Sources:     cli.EnvVars("AANYA_ADDR"),
				Destination: &cfg.addr,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "directory for chat history and vector memory",
				Value:       "data",
				Sources:     cli.EnvVars("AANYA_DATA_DIR"),
				Destination: &cfg.dataDir,
			},
			&cli.StringFlag{
				Name:        "user-name",
				Usage:       "name of the user the companion talks to",
				Value:       "friend",
				Sources:     cli.EnvVars("AANYA_USER_NAME", "USER_NAME"),
				Destination: &cfg.userName,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Value:       "info",
				Sources:     cli.EnvVars("AANYA_LOG_LEVEL"),
				Destination: &cfg.logLevel,
			},
			&cli.StringFlag{
				Name:        "groq-api-key",
				Usage:       "comma-separated Groq API keys (primary backend)",
				Sources:     cli.EnvVars("GROQ_API_KEY"),
				Destination: &cfg.groqKeys,
			},
			&cli.StringFlag{
				Name:        "groq-model",
				Usage:       "Groq completion model",
				Value:       "llama-3.1-8b-instant",
				Sources:     cli.EnvVars("AANYA_GROQ_MODEL"),
				Destination: &cfg.groqModel,
			},
			&cli.StringFlag{
				Name:        "anthropic-api-key",
				Usage:       "comma-separated Anthropic API keys (backup backend)",
				Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
				Destination: &cfg.anthropicKeys,
			},
			&cli.StringFlag{
				Name:        "anthropic-model",
				Usage:       "Anthropic completion model",
				Value:       anthropic.DefaultModel,
				Sources:     cli.EnvVars("AANYA_ANTHROPIC_MODEL"),
				Destination: &cfg.anthropicModel,
			},
			&cli.StringFlag{
				Name:        "embedder",
				Usage:       "embedding backend (mock, ollama)",
				Value:       "mock",
				Sources:     cli.EnvVars("AANYA_EMBEDDER"),
				Destination: &cfg.embedder,
			},
			&cli.StringFlag{
				Name:        "ollama-host",
				Usage:       "Ollama base URL for the ollama embedder",
				Value:       "http://localhost:11434",
				Sources:     cli.EnvVars("OLLAMA_HOST"),
				Destination: &cfg.ollamaHost,
			},
			&cli.StringFlag{
				Name:        "ollama-model",
				Usage:       "Ollama embedding model",
				Value:       ollama.DefaultModel,
				Sources:     cli.EnvVars("AANYA_OLLAMA_MODEL"),
				Destination: &cfg.ollamaModel,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var level slog.Level
			if err := level.UnmarshalText([]byte(cfg.logLevel)); err != nil {
				return ctx, err
			}
			handler := clog.New(clog.WithLevel(level), clog.WithColor(true))
			logging.SetDefault(slog.New(handler))
			return ctx, nil
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, &cfg)
		},
	}

	return app.Run(ctx, args)
}

func serve(ctx context.Context, cfg *config) error {
	logger := logging.Default()
	ctx = logging.With(ctx, logger)

	rotator := provider.NewRotator(buildBackends(cfg))
	if rotator.Status().Primary == "none" {
		logger.Warn("no provider API keys configured, every turn will get the fallback reply")
	}

	mem := memory.NewManager(ctx, openHistory(ctx, cfg), openVectors(ctx, cfg), buildEmbedder(cfg))
	defer func() {
		if err := mem.Close(); err != nil {
			logger.Warn("failed to close memory stores", "error", err)
		}
	}()

	b := brain.New(ctx, rotator, mem, persona.New(cfg.userName))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req brain.TurnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Message == "" {
			http.Error(w, "message is required", http.StatusBadRequest)
			return
		}
		writeJSON(w, b.HandleTurn(logging.With(r.Context(), logger), &req))
	})
	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, b.Stats(logging.With(r.Context(), logger)))
	})

	srv := &http.Server{Addr: cfg.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.addr, "user", cfg.userName)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	// Drain in-flight requests and let pending consolidation finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown incomplete", "error", err)
	}
	if err := b.Close(shutdownCtx); err != nil {
		logger.Warn("consolidation did not finish before shutdown", "error", err)
	}
	logger.Info("aanya is asleep, memories saved")
	return nil
}

func buildBackends(cfg *config) []provider.Backend {
	var backends []provider.Backend
	if keys := provider.ParseKeys(cfg.groqKeys); len(keys) > 0 {
		backends = append(backends, openai.New(keys,
			openai.WithName("groq"),
			openai.WithBaseURL(groqBaseURL),
			openai.WithModel(cfg.groqModel)))
	}
	if keys := provider.ParseKeys(cfg.anthropicKeys); len(keys) > 0 {
		backends = append(backends, anthropic.New(keys,
			anthropic.WithModel(cfg.anthropicModel)))
	}
	return backends
}

// openHistory returns nil on failure: the manager degrades instead of
// refusing to start.
func openHistory(ctx context.Context, cfg *config) memory.HistoryStore {
	store, err := sqlite.New(filepath.Join(cfg.dataDir, "chat_history.db"))
	if err != nil {
		logging.From(ctx).Error("failed to open history store, running without exact memory", "error", err)
		return nil
	}
	return store
}

func openVectors(ctx context.Context, cfg *config) memory.VectorStore {
	store, err := chromem.NewPersistent(filepath.Join(cfg.dataDir, "chromem"))
	if err != nil {
		logging.From(ctx).Error("failed to open vector store, running without semantic recall", "error", err)
		return nil
	}
	return store
}

func buildEmbedder(cfg *config) memory.Embedder {
	if cfg.embedder == "ollama" {
		return ollama.New(cfg.ollamaHost, cfg.ollamaModel)
	}
	return mock.New()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Default().Warn("failed to encode response", "error", err)
	}
}

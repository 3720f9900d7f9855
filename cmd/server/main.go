package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yuki/kotoba/internal/analysis"
	"github.com/yuki/kotoba/internal/api"
	"github.com/yuki/kotoba/internal/config"
	"github.com/yuki/kotoba/internal/provider"
	"github.com/yuki/kotoba/internal/provider/llm"
	"github.com/yuki/kotoba/internal/provider/stt"
	"github.com/yuki/kotoba/internal/shadowing"
	"github.com/yuki/kotoba/internal/speech"
	"github.com/yuki/kotoba/internal/ws"
	"github.com/yuki/kotoba/web"
)

func main() {
	configFile := flag.String("config", "", "path to config file (default: ./kotoba.yaml or ./configs/kotoba.yaml)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	config.SetupLogging(cfg.Logging)

	// Build provider registry
	registry := provider.NewRegistry()
	registerProviders(cfg, registry)

	speaker, err := newSpeaker(cfg.Speech)
	if err != nil {
		slog.Error("failed to build speech client", "error", err)
		os.Exit(1)
	}

	analyzer := analysis.NewService(registry, cfg.LLM.Compat.CompatProvider())
	scorer := shadowing.NewService(registry)

	// Build WebSocket hub
	sessionHandler := ws.NewSessionHandler(analyzer, speaker)
	hub := ws.NewHub(sessionHandler, cfg.Server.Origins())

	router := api.NewRouter(api.Deps{
		Config:    cfg,
		Registry:  registry,
		Analysis:  analyzer,
		Speaker:   speaker,
		Shadowing: scorer,
		Hub:       hub,
		Assets:    web.Dist,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // long enough for streamed explanations
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func newSpeaker(cfg config.SpeechConfig) (*speech.Speaker, error) {
	var doer speech.Doer
	if cfg.Transport == "tls" {
		timeout := max(cfg.BootstrapTimeout, cfg.GenerateTimeout)
		d, err := speech.NewTLSTransport(timeout, cfg.Proxy)
		if err != nil {
			return nil, err
		}
		doer = d
		slog.Info("speech transport", "kind", "tls", "proxy", cfg.Proxy != "")
	}
	client := speech.NewClient(cfg.ClientConfig(), doer)

	fallback := speech.NewCommandSynthesizer(speech.CommandConfig{
		Binary:      cfg.Fallback.Binary,
		Args:        cfg.Fallback.Args,
		ContentType: cfg.Fallback.ContentType,
	})
	if fallback.Available() {
		slog.Info("local speech fallback ready", "binary", fallback.Name())
	} else {
		slog.Warn("local speech fallback not found; clients will use browser speech", "binary", cfg.Fallback.Binary)
	}

	return speech.NewSpeaker(client, fallback), nil
}

func registerProviders(cfg *config.Config, registry *provider.Registry) {
	// LLM providers
	if cfg.LLM.Compat.APIKey != "" {
		registry.RegisterLLM(llm.NewCompatProvider(cfg.LLM.Compat.CompatProvider()))
		slog.Info("registered LLM provider", "name", "compat", "url", cfg.LLM.Compat.URL)
	}
	if cfg.LLM.Anthropic.APIKey != "" {
		registry.RegisterLLM(llm.NewAnthropicProvider(cfg.LLM.Anthropic.APIKey, cfg.LLM.Anthropic.Model))
		slog.Info("registered LLM provider", "name", "anthropic")
	}
	if cfg.LLM.OpenAI.APIKey != "" {
		registry.RegisterLLM(llm.NewOpenAIProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model))
		slog.Info("registered LLM provider", "name", "openai")
	}
	if cfg.LLM.Gemini.APIKey != "" {
		p, err := llm.NewGeminiProvider(context.Background(), cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.Model)
		if err != nil {
			slog.Error("failed to create Gemini provider", "error", err)
		} else {
			registry.RegisterLLM(p)
			slog.Info("registered LLM provider", "name", "gemini")
		}
	}

	// STT providers
	if cfg.LLM.OpenAI.APIKey != "" {
		registry.RegisterSTT(stt.NewOpenAISTTProvider(cfg.LLM.OpenAI.APIKey, cfg.STT.Language))
		slog.Info("registered STT provider", "name", "openai")
	}
	if cfg.STT.GoogleProjectID != "" {
		registry.RegisterSTT(stt.NewGoogleSTTProvider(cfg.STT.GoogleProjectID, cfg.STT.GoogleLanguage))
		slog.Info("registered STT provider", "name", "google")
	}

	if cfg.LLM.Default != "" {
		if err := registry.SetDefaultLLM(cfg.LLM.Default); err != nil {
			slog.Warn("default LLM provider not registered", "name", cfg.LLM.Default, "using", registry.DefaultLLM())
		}
	}
	if cfg.STT.Default != "" {
		if err := registry.SetDefaultSTT(cfg.STT.Default); err != nil {
			slog.Warn("default STT provider not registered", "name", cfg.STT.Default)
		}
	}
}

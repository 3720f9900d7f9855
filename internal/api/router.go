package api

import (
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yuki/kotoba/internal/analysis"
	"github.com/yuki/kotoba/internal/config"
	"github.com/yuki/kotoba/internal/provider"
	"github.com/yuki/kotoba/internal/ws"
)

// Deps are the services the HTTP API exposes.
type Deps struct {
	Config    *config.Config
	Registry  *provider.Registry
	Analysis  Analyzer
	Speaker   Speaker
	Shadowing Scorer
	Hub       *ws.Hub
	// Assets is the embedded UI, used when Config.Server.StaticDir is empty.
	Assets fs.FS
}

// Server holds dependencies for API handlers.
type Server struct {
	Deps
}

// NewRouter creates a fully wired Chi router.
func NewRouter(d Deps) *chi.Mux {
	s := &Server{Deps: d}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))
	r.Use(CORSMiddleware(d.Config.Server.Origins()))

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(d.Config.Server.RateLimit))

		r.Get("/health", s.handleHealth)
		r.Get("/providers", s.handleProviders)
		r.Post("/translate", s.handleAnalysis(analysis.KindTranslate))
		r.Post("/explanation", s.handleAnalysis(analysis.KindExplain))
		r.Post("/speech", s.handleSpeech)
		r.Post("/tts", s.handleSpeech)
		r.Post("/stt", s.handleSTT)
		r.Post("/shadowing", s.handleShadowing)
	})

	if d.Hub != nil {
		r.Get("/ws", d.Hub.ServeWS)
	}

	switch {
	case d.Config.Server.StaticDir != "":
		r.Handle("/*", spaFileServer(d.Config.Server.StaticDir))
	case d.Assets != nil:
		r.Handle("/*", embeddedSPAHandler(d.Assets))
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	fallback := ""
	if named, ok := s.Speaker.(interface{ FallbackName() string }); ok {
		fallback = named.FallbackName()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"llm":         s.Registry.ListLLMs(),
		"default_llm": s.Registry.DefaultLLM(),
		"stt":         s.Registry.ListSTT(),
		"speech": map[string]string{
			"base_url": s.Config.Speech.BaseURL,
			"voice":    s.Config.Speech.Voice,
			"fallback": fallback,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yuki/kotoba/internal/analysis"
	"github.com/yuki/kotoba/internal/provider"
	"github.com/yuki/kotoba/internal/shadowing"
	"github.com/yuki/kotoba/internal/speech"
)

const maxUploadSize = 10 << 20

// Analyzer runs translation and explanation requests.
type Analyzer interface {
	Stream(ctx context.Context, req analysis.Request, onChunk func(provider.StreamChunk) error) (analysis.Result, error)
	Complete(ctx context.Context, req analysis.Request) (analysis.Result, error)
}

// Speaker produces speech audio.
type Speaker interface {
	Speak(ctx context.Context, text string) (*speech.Outcome, error)
}

// Scorer scores a shadowing attempt.
type Scorer interface {
	Score(ctx context.Context, audio io.Reader, contentType, target, providerID string) (shadowing.Result, error)
}

type analysisRequest struct {
	Text     string `json:"text"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
	APIURL   string `json:"apiUrl"`
	Stream   bool   `json:"stream"`
}

func (s *Server) handleAnalysis(kind analysis.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}

		areq := analysis.Request{
			Kind:       kind,
			Text:       req.Text,
			ProviderID: req.Provider,
			Model:      req.Model,
			APIKey:     bearerToken(r),
			APIURL:     req.APIURL,
		}

		if req.Stream {
			s.streamAnalysis(w, r, areq)
			return
		}

		res, err := s.Analysis.Complete(r.Context(), areq)
		if err != nil {
			writeAnalysisError(w, kind, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// streamAnalysis relays chunks as server-sent events. Errors before the
// first chunk are answered as JSON.
func (s *Server) streamAnalysis(w http.ResponseWriter, r *http.Request, areq analysis.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	started := false
	_, err := s.Analysis.Stream(r.Context(), areq, func(chunk provider.StreamChunk) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if chunk.Done {
			fmt.Fprint(w, "data: [DONE]\n\n")
		} else {
			data, _ := json.Marshal(map[string]string{"content": chunk.Content})
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		flusher.Flush()
		return r.Context().Err()
	})
	if err == nil {
		return
	}
	if !started {
		writeAnalysisError(w, areq.Kind, err)
		return
	}
	if r.Context().Err() == nil {
		slog.Error("analysis stream failed", "kind", areq.Kind, "error", err)
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func writeAnalysisError(w http.ResponseWriter, kind analysis.Kind, err error) {
	switch {
	case errors.Is(err, analysis.ErrEmptyText), errors.Is(err, analysis.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, analysis.ErrNoAPIKey):
		writeError(w, http.StatusInternalServerError, "no API key: set one in the settings or configure the server")
	case errors.Is(err, provider.ErrNotFound):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("analysis failed", "kind", kind, "error", err)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("%s request failed", kind))
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := s.Speaker.Speak(r.Context(), req.Text)
	switch {
	case errors.Is(err, speech.ErrEmptyText):
		writeError(w, http.StatusBadRequest, "text is required")
		return
	case errors.Is(err, speech.ErrFallbackUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":    err.Error(),
			"fallback": "unavailable",
		})
		return
	case err != nil:
		// Only the caller going away gets here.
		slog.Info("speech request aborted", "error", err)
		writeError(w, http.StatusServiceUnavailable, "speech request canceled")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"audioData":   out.Audio.Encoded(),
		"contentType": out.ContentType,
		"source":      string(out.Source),
		"state":       out.State.String(),
	})
}

func (s *Server) handleSTT(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	sttProvider, err := s.Registry.GetSTT(r.FormValue("provider"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := sttProvider.Transcribe(r.Context(), file, header.Header.Get("Content-Type"))
	if err != nil {
		slog.Error("STT transcription failed", "error", err)
		writeError(w, http.StatusInternalServerError, "transcription failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleShadowing(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	target := r.FormValue("target")
	if strings.TrimSpace(target) == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	res, err := s.Shadowing.Score(r.Context(), file, header.Header.Get("Content-Type"), target, r.FormValue("provider"))
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) || errors.Is(err, shadowing.ErrEmptyTarget) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("shadowing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "transcription failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

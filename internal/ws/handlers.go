package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yuki/kotoba/internal/analysis"
	"github.com/yuki/kotoba/internal/provider"
	"github.com/yuki/kotoba/internal/speech"
)

// speechBudget bounds one speech.generate including the local fallback.
const speechBudget = 45 * time.Second

// AnalysisSendPayload is the payload for "analysis.send" messages.
type AnalysisSendPayload struct {
	Kind       string `json:"kind"`
	Text       string `json:"text"`
	ProviderID string `json:"provider_id"`
	Model      string `json:"model"`
	APIKey     string `json:"api_key"`
	APIURL     string `json:"api_url"`
}

// AnalysisChunkPayload is the payload for "analysis.chunk" messages.
type AnalysisChunkPayload struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// SpeechGeneratePayload is the payload for "speech.generate" messages.
type SpeechGeneratePayload struct {
	Text string `json:"text"`
}

// SpeechResultPayload is the payload for "speech.result" messages.
type SpeechResultPayload struct {
	Text        string `json:"text"`
	AudioData   string `json:"audio_data"`
	ContentType string `json:"content_type"`
	Source      string `json:"source"`
	State       string `json:"state"`
}

// Analyzer streams an analysis.
type Analyzer interface {
	Stream(ctx context.Context, req analysis.Request, onChunk func(provider.StreamChunk) error) (analysis.Result, error)
}

// Speaker produces speech audio.
type Speaker interface {
	Speak(ctx context.Context, text string) (*speech.Outcome, error)
}

// SessionHandler implements MessageHandler for analysis and speech.
type SessionHandler struct {
	analyzer Analyzer
	speaker  Speaker
	cancels  sync.Map // map[clientID]*stream
}

type stream struct {
	cancel context.CancelFunc
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(analyzer Analyzer, speaker Speaker) *SessionHandler {
	return &SessionHandler{analyzer: analyzer, speaker: speaker}
}

func (h *SessionHandler) HandleMessage(client *Client, env Envelope) {
	switch env.Type {
	case "analysis.send":
		h.handleAnalysisSend(client, env.Payload)
	case "analysis.cancel":
		h.cancel(client)
	case "speech.generate":
		h.handleSpeechGenerate(client, env.Payload)
	default:
		slog.Warn("unknown message type", "type", env.Type, "client", client.ID)
		sendError(client, "unknown message type: "+env.Type)
	}
}

// HandleDisconnect stops any analysis still streaming to client.
func (h *SessionHandler) HandleDisconnect(client *Client) {
	h.cancel(client)
}

func (h *SessionHandler) handleAnalysisSend(client *Client, payload json.RawMessage) {
	var p AnalysisSendPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Error("invalid analysis.send payload", "error", err, "client", client.ID)
		sendError(client, "invalid analysis.send payload")
		return
	}
	kind, err := analysis.ParseKind(p.Kind)
	if err != nil {
		sendError(client, err.Error())
		return
	}

	// One analysis per client at a time.
	h.cancel(client)

	ctx, cancel := context.WithCancel(context.Background())
	st := &stream{cancel: cancel}
	h.cancels.Store(client.ID, st)

	go func() {
		defer func() {
			h.cancels.CompareAndDelete(client.ID, st)
			cancel()
		}()

		_, err := h.analyzer.Stream(ctx, analysis.Request{
			Kind:       kind,
			Text:       p.Text,
			ProviderID: p.ProviderID,
			Model:      p.Model,
			APIKey:     p.APIKey,
			APIURL:     p.APIURL,
		}, func(chunk provider.StreamChunk) error {
			chunkPayload, _ := json.Marshal(AnalysisChunkPayload{
				Content: chunk.Content,
				Done:    chunk.Done,
			})
			return client.Send(Envelope{
				Type:    "analysis.chunk",
				Payload: chunkPayload,
			})
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("analysis stream error", "error", err, "client", client.ID)
			sendError(client, err.Error())
		}
	}()
}

func (h *SessionHandler) handleSpeechGenerate(client *Client, payload json.RawMessage) {
	var p SpeechGeneratePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		sendError(client, "invalid speech.generate payload")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), speechBudget)
		defer cancel()

		out, err := h.speaker.Speak(ctx, p.Text)
		if err != nil {
			msg := map[string]string{"error": err.Error()}
			if errors.Is(err, speech.ErrFallbackUnavailable) {
				msg["fallback"] = "unavailable"
				msg["text"] = p.Text
			}
			errPayload, _ := json.Marshal(msg)
			client.Send(Envelope{Type: "error", Payload: errPayload})
			return
		}

		resPayload, _ := json.Marshal(SpeechResultPayload{
			Text:        p.Text,
			AudioData:   out.Audio.Encoded(),
			ContentType: out.ContentType,
			Source:      string(out.Source),
			State:       out.State.String(),
		})
		client.Send(Envelope{Type: "speech.result", Payload: resPayload})
	}()
}

func (h *SessionHandler) cancel(client *Client) {
	if st, ok := h.cancels.LoadAndDelete(client.ID); ok {
		st.(*stream).cancel()
	}
}

func sendError(client *Client, msg string) {
	errPayload, _ := json.Marshal(map[string]string{"error": msg})
	client.Send(Envelope{
		Type:    "error",
		Payload: errPayload,
	})
}

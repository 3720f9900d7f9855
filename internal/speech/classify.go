package speech

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/tidwall/gjson"
)

// AudioPayload is audio returned by the provider, either as the base64 string
// from its JSON envelope or as raw response bytes.
type AudioPayload struct {
	Base64 string
	Raw    []byte
	// ContentType is the declared audio type of a raw response, if any.
	ContentType string
}

// Encoded returns the audio as standard base64.
func (a *AudioPayload) Encoded() string {
	if a.Base64 != "" {
		return a.Base64
	}
	return base64.StdEncoding.EncodeToString(a.Raw)
}

// Bytes returns the decoded audio.
func (a *AudioPayload) Bytes() ([]byte, error) {
	if a.Base64 == "" {
		return a.Raw, nil
	}
	return base64.StdEncoding.DecodeString(a.Base64)
}

// ClassifyOptions tunes the heuristics in Classify.
type ClassifyOptions struct {
	// Threshold is the length above which a non-JSON, non-HTML body is audio.
	Threshold int
}

// Classify decides what the generate endpoint returned. The checks run in a
// fixed order: JSON envelope, HTML page, size heuristic, content-type hint.
func Classify(body []byte, contentType string, opts ClassifyOptions) (*AudioPayload, error) {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultAudioThreshold
	}

	if gjson.ValidBytes(body) {
		res := gjson.ParseBytes(body)
		stream := res.Get("stream")
		if res.Get("status").String() == "success" && stream.Type == gjson.String && stream.Str != "" {
			return &AudioPayload{Base64: stream.Str}, nil
		}
		return nil, &ProviderError{Body: body}
	}

	if looksLikeHTML(body) {
		return nil, &FormatError{Reason: "unexpected HTML"}
	}

	if len(body) > threshold {
		return &AudioPayload{Raw: body, ContentType: audioMediaType(contentType)}, nil
	}

	if len(body) > 0 && isAudioContentType(contentType) {
		return &AudioPayload{Raw: body, ContentType: audioMediaType(contentType)}, nil
	}

	return nil, &FormatError{Reason: "unrecognized response shape"}
}

func looksLikeHTML(body []byte) bool {
	head := bytes.TrimLeft(body, " \t\r\n\ufeff")
	if len(head) > 16 {
		head = head[:16]
	}
	lower := bytes.ToLower(head)
	return bytes.HasPrefix(lower, []byte("<!doctype")) || bytes.HasPrefix(lower, []byte("<html"))
}

// audioMediaType returns the media type of ct without parameters when it
// names an audio format, and "" otherwise.
func audioMediaType(ct string) string {
	mt, _, _ := strings.Cut(ct, ";")
	mt = strings.ToLower(strings.TrimSpace(mt))
	if !strings.HasPrefix(mt, "audio/") {
		return ""
	}
	return mt
}

func isAudioContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.HasPrefix(ct, "audio/") || strings.HasPrefix(ct, "application/octet-stream")
}

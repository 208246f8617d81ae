package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultElevenLabsURL   = "https://api.elevenlabs.io"
	DefaultElevenLabsModel = "eleven_multilingual_v2"
)

// ElevenLabsSynthesizer calls the text-to-speech "with-timestamps" endpoint,
// which returns mp3 audio together with character alignment.
type ElevenLabsSynthesizer struct {
	APIKey  string
	VoiceID string
	ModelID string
	BaseURL string
	Client  *http.Client
}

func NewElevenLabsSynthesizer(apiKey, voiceID, modelID string) *ElevenLabsSynthesizer {
	if modelID == "" {
		modelID = DefaultElevenLabsModel
	}
	return &ElevenLabsSynthesizer{
		APIKey:  apiKey,
		VoiceID: voiceID,
		ModelID: modelID,
		BaseURL: DefaultElevenLabsURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

type elevenLabsResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Alignment   struct {
		Characters []string  `json:"characters"`
		Starts     []float64 `json:"character_start_times_seconds"`
		Ends       []float64 `json:"character_end_times_seconds"`
	} `json:"alignment"`
}

func (e *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string) (*SpeechWithTimestamps, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty text")
	}
	if e.APIKey == "" {
		return nil, errors.New("elevenlabs api key is not configured")
	}

	payload, err := json.Marshal(elevenLabsRequest{Text: text, ModelID: e.ModelID})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/text-to-speech/%s/with-timestamps", strings.TrimSuffix(e.BaseURL, "/"), e.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("elevenlabs error: %s - %s", resp.Status, string(body))
	}

	var out elevenLabsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode elevenlabs response: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(out.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode elevenlabs audio: %w", err)
	}

	s := &SpeechWithTimestamps{
		Audio:        audio,
		Format:       "mp3",
		Chars:        out.Alignment.Characters,
		StartSeconds: out.Alignment.Starts,
		EndSeconds:   out.Alignment.Ends,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

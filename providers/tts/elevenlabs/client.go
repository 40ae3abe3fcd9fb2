// Package elevenlabs implements the remote narration synthesizer against the
// ElevenLabs text-to-speech HTTP API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
	"github.com/tiger/oracle-voice-sessions/providers/common/httpadapter"
)

const ProviderID = "tts-elevenlabs"

type Config struct {
	APIKey  string
	BaseURL string
	ModelID string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:  os.Getenv("ORACLE_ELEVENLABS_API_KEY"),
		BaseURL: defaultString(os.Getenv("ORACLE_ELEVENLABS_BASE_URL"), "https://api.elevenlabs.io"),
		ModelID: defaultString(os.Getenv("ORACLE_ELEVENLABS_MODEL"), "eleven_multilingual_v2"),
		Timeout: 15 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("elevenlabs api key is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("elevenlabs base url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("elevenlabs timeout must be positive")
	}
	return nil
}

// Client synthesizes narration audio. Implements narration.Synthesizer.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type synthesisRequest struct {
	ModelID       string        `json:"model_id"`
	Text          string        `json:"text"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize posts the utterance and returns the MP3 payload. An empty
// payload is an error so the caller can fall back before playback.
func (c *Client) Synthesize(ctx context.Context, text string, profile oracle.VoiceProfile) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("synthesis text is empty")
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("voice profile: %w", err)
	}

	body, err := json.Marshal(synthesisRequest{
		ModelID: c.cfg.ModelID,
		Text:    text,
		VoiceSettings: voiceSettings{
			Stability:       profile.Stability,
			SimilarityBoost: profile.Similarity,
			Style:           profile.Style,
			UseSpeakerBoost: profile.SpeakerBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode synthesis request: %w", err)
	}

	endpoint := c.cfg.BaseURL + "/v1/text-to-speech/" + profile.VoiceID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs synthesis: %w", httpadapter.NormalizeNetworkError(err).Err())
	}
	defer resp.Body.Close()

	if outcome := httpadapter.NormalizeStatus(resp.StatusCode, resp.Header.Get("Retry-After")); !outcome.OK() {
		sample, _, _ := httpadapter.ReadBodySample(resp.Body, 0)
		if len(sample) > 0 {
			return nil, fmt.Errorf("elevenlabs synthesis: %s: %w", string(sample), outcome.Err())
		}
		return nil, fmt.Errorf("elevenlabs synthesis: %w", outcome.Err())
	}

	audio, _, err := httpadapter.ReadBodySample(resp.Body, 16<<20)
	if err != nil {
		return nil, fmt.Errorf("read synthesis payload: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs synthesis returned an empty payload")
	}
	return audio, nil
}

func defaultString(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

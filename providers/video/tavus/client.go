// Package tavus implements the video conversation provider against the Tavus
// replica conversation HTTP API.
package tavus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
	"github.com/tiger/oracle-voice-sessions/internal/videosession"
	"github.com/tiger/oracle-voice-sessions/providers/common/httpadapter"
)

const ProviderID = "video-tavus"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:  os.Getenv("ORACLE_TAVUS_API_KEY"),
		BaseURL: defaultString(os.Getenv("ORACLE_TAVUS_BASE_URL"), "https://tavusapi.com"),
		Timeout: 15 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("tavus api key is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("tavus base url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("tavus timeout must be positive")
	}
	return nil
}

// Client talks to the conversation endpoints. Implements videosession.Provider.
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

type conversationProperties struct {
	MaxCallDuration          int    `json:"max_call_duration"`
	ParticipantLeftTimeout   int    `json:"participant_left_timeout"`
	ParticipantAbsentTimeout int    `json:"participant_absent_timeout"`
	EnableTranscription      bool   `json:"enable_transcription"`
	Language                 string `json:"language"`
}

type createConversationRequest struct {
	ReplicaID        string                 `json:"replica_id"`
	ConversationName string                 `json:"conversation_name,omitempty"`
	Properties       conversationProperties `json:"properties"`
}

type conversationResponse struct {
	ConversationID  string `json:"conversation_id"`
	ConversationURL string `json:"conversation_url"`
	Status          string `json:"status"`
}

// CreateConversation provisions a replica conversation and returns its id and
// join URL.
func (c *Client) CreateConversation(ctx context.Context, req videosession.CreateRequest) (videosession.Conversation, error) {
	if req.ReplicaID == "" {
		return videosession.Conversation{}, fmt.Errorf("replica id is required")
	}
	body, err := json.Marshal(createConversationRequest{
		ReplicaID:        req.ReplicaID,
		ConversationName: req.ConversationName,
		Properties: conversationProperties{
			MaxCallDuration:          req.Properties.MaxCallDurationSec,
			ParticipantLeftTimeout:   req.Properties.ParticipantLeftTimeoutSec,
			ParticipantAbsentTimeout: req.Properties.ParticipantAbsentTimeoutSec,
			EnableTranscription:      req.Properties.EnableTranscription,
			Language:                 req.Properties.Language,
		},
	})
	if err != nil {
		return videosession.Conversation{}, fmt.Errorf("encode conversation request: %w", err)
	}

	var resp conversationResponse
	if err := c.do(ctx, http.MethodPost, "/v2/conversations", body, &resp); err != nil {
		return videosession.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	if resp.ConversationID == "" {
		return videosession.Conversation{}, fmt.Errorf("create conversation: response missing conversation_id")
	}
	return videosession.Conversation{
		ConversationID:  resp.ConversationID,
		ConversationURL: resp.ConversationURL,
	}, nil
}

// GetConversationStatus fetches and maps the provider status. The provider
// reports richer states; anything past active collapses to ended or failed.
func (c *Client) GetConversationStatus(ctx context.Context, conversationID string) (oracle.ConversationStatus, error) {
	if conversationID == "" {
		return "", fmt.Errorf("conversation id is required")
	}
	var resp conversationResponse
	if err := c.do(ctx, http.MethodGet, "/v2/conversations/"+conversationID, nil, &resp); err != nil {
		return "", fmt.Errorf("get conversation status: %w", err)
	}
	switch resp.Status {
	case "active", "starting":
		return oracle.ConversationActive, nil
	case "ended", "shutdown":
		return oracle.ConversationEnded, nil
	case "error", "failed":
		return oracle.ConversationFailed, nil
	default:
		return "", fmt.Errorf("get conversation status: unrecognized provider status %q", resp.Status)
	}
}

// EndConversation requests a remote shutdown.
func (c *Client) EndConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("conversation id is required")
	}
	if err := c.do(ctx, http.MethodPost, "/v2/conversations/"+conversationID+"/end", nil, nil); err != nil {
		return fmt.Errorf("end conversation: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, path string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return httpadapter.NormalizeNetworkError(err).Err()
	}
	defer resp.Body.Close()

	if outcome := httpadapter.NormalizeStatus(resp.StatusCode, resp.Header.Get("Retry-After")); !outcome.OK() {
		sample, _, _ := httpadapter.ReadBodySample(resp.Body, 0)
		if len(sample) > 0 {
			return fmt.Errorf("%s: %w", string(sample), outcome.Err())
		}
		return outcome.Err()
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func defaultString(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

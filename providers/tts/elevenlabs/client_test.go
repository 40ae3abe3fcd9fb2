package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
	"github.com/tiger/oracle-voice-sessions/providers/common/httpadapter"
)

func testProfile() oracle.VoiceProfile {
	return oracle.VoiceProfile{
		VoiceID:      "XrExE9yKIg1WjnnlVkGX",
		Stability:    0.7,
		Similarity:   0.85,
		Style:        0.2,
		SpeakerBoost: true,
	}
}

func testConfig(baseURL string) Config {
	return Config{APIKey: "test-api-key", BaseURL: baseURL, ModelID: "eleven_multilingual_v2", Timeout: 2 * time.Second}
}

func TestSynthesizeSendsVoiceSettings(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey, gotAccept string
	var gotBody synthesisRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		gotAccept = r.Header.Get("Accept")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	audio, err := client.Synthesize(context.Background(), "The cards reveal a journey.", testProfile())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("audio = %q", audio)
	}
	if gotPath != "/v1/text-to-speech/XrExE9yKIg1WjnnlVkGX" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "test-api-key" {
		t.Fatalf("xi-api-key = %q", gotKey)
	}
	if gotAccept != "audio/mpeg" {
		t.Fatalf("accept = %q", gotAccept)
	}
	if gotBody.Text != "The cards reveal a journey." || gotBody.ModelID != "eleven_multilingual_v2" {
		t.Fatalf("body = %+v", gotBody)
	}
	if gotBody.VoiceSettings.Stability != 0.7 || gotBody.VoiceSettings.SimilarityBoost != 0.85 {
		t.Fatalf("voice settings = %+v", gotBody.VoiceSettings)
	}
	if !gotBody.VoiceSettings.UseSpeakerBoost {
		t.Fatalf("speaker boost not forwarded")
	}
}

func TestSynthesizeNormalizesAuthFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Synthesize(context.Background(), "hello", testProfile())
	var outcomeErr *httpadapter.OutcomeError
	if !errors.As(err, &outcomeErr) {
		t.Fatalf("error = %v, want OutcomeError", err)
	}
	if outcomeErr.Outcome.Class != httpadapter.OutcomeBlocked {
		t.Fatalf("class = %s, want %s", outcomeErr.Outcome.Class, httpadapter.OutcomeBlocked)
	}
	if outcomeErr.Retryable() {
		t.Fatalf("auth failure must not be retryable")
	}
}

func TestSynthesizeOverloadIsRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Synthesize(context.Background(), "hello", testProfile())
	var outcomeErr *httpadapter.OutcomeError
	if !errors.As(err, &outcomeErr) {
		t.Fatalf("error = %v, want OutcomeError", err)
	}
	if !outcomeErr.Retryable() {
		t.Fatalf("overload must be retryable")
	}
	if outcomeErr.Outcome.BackoffMS != 2000 {
		t.Fatalf("BackoffMS = %d, want 2000", outcomeErr.Outcome.BackoffMS)
	}
}

func TestSynthesizeRejectsEmptyPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Synthesize(context.Background(), "hello", testProfile()); err == nil {
		t.Fatalf("empty payload must be an error")
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	t.Parallel()

	client, err := NewClient(testConfig("https://api.elevenlabs.io"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Synthesize(context.Background(), "", testProfile()); err == nil {
		t.Fatalf("empty text must be an error")
	}
}

func TestSynthesizeHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Synthesize(ctx, "hello", testProfile()); err == nil {
		t.Fatalf("cancelled context must surface an error")
	}
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	if err := (Config{BaseURL: "https://api.elevenlabs.io", Timeout: time.Second}).Validate(); err == nil {
		t.Fatalf("missing api key must fail validation")
	}
	if err := (Config{APIKey: "k", Timeout: time.Second}).Validate(); err == nil {
		t.Fatalf("missing base url must fail validation")
	}
	if err := testConfig("https://api.elevenlabs.io").Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

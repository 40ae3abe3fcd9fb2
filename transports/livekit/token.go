package livekit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// TokenIssuer mints HS256 join tokens for the realtime room. Implements
// realtime.TokenIssuer.
type TokenIssuer struct {
	cfg Config
	Now func() time.Time
}

func NewTokenIssuer(cfg Config) (*TokenIssuer, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("missing livekit api credentials")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	return &TokenIssuer{cfg: cfg, Now: time.Now}, nil
}

// IssueToken signs a join grant for the identity. The token allows joining
// the room and publishing and subscribing to tracks, and expires after the
// configured TTL.
func (t *TokenIssuer) IssueToken(identity string, room string) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("participant identity is required")
	}
	if room == "" {
		room = t.cfg.Room
	}
	if room == "" {
		return "", fmt.Errorf("room is required")
	}
	now := t.Now()

	header := map[string]string{
		"alg": "HS256",
		"typ": "JWT",
	}
	payload := map[string]any{
		"iss": t.cfg.APIKey,
		"sub": identity,
		"nbf": now.Add(-10 * time.Second).Unix(),
		"exp": now.Add(t.cfg.TokenTTL).Unix(),
		"video": map[string]any{
			"room":         room,
			"roomJoin":     true,
			"canPublish":   true,
			"canSubscribe": true,
		},
	}

	headerRaw, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	payloadRaw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	unsigned := base64.RawURLEncoding.EncodeToString(headerRaw) + "." + base64.RawURLEncoding.EncodeToString(payloadRaw)

	mac := hmac.New(sha256.New, []byte(t.cfg.APISecret))
	if _, err := mac.Write([]byte(unsigned)); err != nil {
		return "", err
	}
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return unsigned + "." + signature, nil
}

// Package livekit provides the realtime voice transport: signed room join
// tokens and the websocket signaling connection.
package livekit

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvURL              = "ORACLE_LIVEKIT_URL"
	EnvAPIKey           = "ORACLE_LIVEKIT_API_KEY"
	EnvAPISecret        = "ORACLE_LIVEKIT_API_SECRET"
	EnvRoom             = "ORACLE_LIVEKIT_ROOM"
	EnvTokenTTLSeconds  = "ORACLE_LIVEKIT_TOKEN_TTL_SECONDS"
	EnvHandshakeTimeout = "ORACLE_LIVEKIT_HANDSHAKE_TIMEOUT_MS"
)

// Config controls token minting and websocket dialing.
type Config struct {
	URL              string
	APIKey           string
	APISecret        string
	Room             string
	TokenTTL         time.Duration
	HandshakeTimeout time.Duration
}

// ConfigFromEnv loads realtime transport settings from ORACLE_LIVEKIT_* variables.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		URL:              strings.TrimSpace(os.Getenv(EnvURL)),
		APIKey:           strings.TrimSpace(os.Getenv(EnvAPIKey)),
		APISecret:        strings.TrimSpace(os.Getenv(EnvAPISecret)),
		Room:             defaultString(strings.TrimSpace(os.Getenv(EnvRoom)), "oracle-reading-room"),
		TokenTTL:         time.Hour,
		HandshakeTimeout: 10 * time.Second,
	}

	if raw := strings.TrimSpace(os.Getenv(EnvTokenTTLSeconds)); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", EnvTokenTTLSeconds, err)
		}
		cfg.TokenTTL = time.Duration(v) * time.Second
	}
	if raw := strings.TrimSpace(os.Getenv(EnvHandshakeTimeout)); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", EnvHandshakeTimeout, err)
		}
		cfg.HandshakeTimeout = time.Duration(v) * time.Millisecond
	}

	return cfg, cfg.Validate()
}

// Validate enforces transport config invariants.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("livekit url is required")
	}
	if !strings.HasPrefix(c.URL, "ws://") && !strings.HasPrefix(c.URL, "wss://") {
		return fmt.Errorf("livekit url must use ws or wss scheme")
	}
	if c.APIKey == "" || c.APISecret == "" {
		return fmt.Errorf("livekit api credentials are required")
	}
	if c.Room == "" {
		return fmt.Errorf("livekit room is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be >0")
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("handshake timeout must be >0")
	}
	return nil
}

func defaultString(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

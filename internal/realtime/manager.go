// Package realtime manages the live two-way voice session: token issuance,
// transport connection, microphone capture control, and agent speech.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
	"github.com/tiger/oracle-voice-sessions/internal/narration"
	"github.com/tiger/oracle-voice-sessions/internal/persona"
)

// TokenIssuer mints a signed join token for the realtime room.
type TokenIssuer interface {
	IssueToken(identity string, room string) (string, error)
}

// Conn is an established realtime connection. SendData publishes a control
// frame to the remote agent over the data channel.
type Conn interface {
	SendData(ctx context.Context, payload []byte) error
	Close() error
}

// Transport dials the realtime signaling endpoint.
type Transport interface {
	Dial(ctx context.Context, url string, token string) (Conn, error)
}

// CaptureOptions configure microphone capture processing.
type CaptureOptions struct {
	EchoCancellation bool `json:"echo_cancellation"`
	NoiseSuppression bool `json:"noise_suppression"`
	AutoGainControl  bool `json:"auto_gain_control"`
}

// DefaultCaptureOptions enable the full processing chain.
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{EchoCancellation: true, NoiseSuppression: true, AutoGainControl: true}
}

type Config struct {
	URL      string
	Room     string
	Identity string
	Platform oracle.Platform
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("realtime url is required")
	}
	if c.Room == "" {
		return fmt.Errorf("realtime room is required")
	}
	if c.Identity == "" {
		return fmt.Errorf("participant identity is required")
	}
	return c.Platform.Validate()
}

// Handlers receive connection lifecycle notifications. Both are optional and
// are invoked outside the manager lock.
type Handlers struct {
	OnConnectionChanged func(oracle.RealtimeState)
	OnError             func(error)
}

// Manager owns a single realtime voice session. Connecting while a session is
// up tears the old one down first; disconnect is idempotent.
type Manager struct {
	cfg       Config
	issuer    TokenIssuer
	transport Transport
	registry  persona.Registry
	engine    narration.Engine
	handlers  Handlers

	mu        sync.Mutex
	state     oracle.RealtimeState
	conn      Conn
	recording bool
}

func NewManager(cfg Config, issuer TokenIssuer, transport Transport, registry persona.Registry, engine narration.Engine, handlers Handlers) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if issuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Platform == oracle.PlatformWeb && engine == nil {
		return nil, fmt.Errorf("web platform requires a local speech engine")
	}
	return &Manager{
		cfg:       cfg,
		issuer:    issuer,
		transport: transport,
		registry:  registry,
		engine:    engine,
		handlers:  handlers,
		state:     oracle.RealtimeDisconnected,
	}, nil
}

// State returns the current connection state.
func (m *Manager) State() oracle.RealtimeState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsRecording reports whether microphone capture is active.
func (m *Manager) IsRecording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

// Connect issues a fresh token and dials the realtime endpoint. An existing
// session is disconnected first so at most one connection exists.
func (m *Manager) Connect(ctx context.Context) error {
	m.Disconnect()

	m.setState(oracle.RealtimeConnecting)

	token, err := m.issuer.IssueToken(m.cfg.Identity, m.cfg.Room)
	if err != nil {
		err = fmt.Errorf("issue realtime token: %w", err)
		m.setState(oracle.RealtimeError)
		m.emitError(err)
		return err
	}
	conn, err := m.transport.Dial(ctx, m.cfg.URL, token)
	if err != nil {
		err = fmt.Errorf("dial realtime endpoint: %w", err)
		m.setState(oracle.RealtimeError)
		m.emitError(err)
		return err
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
	m.setState(oracle.RealtimeConnected)
	return nil
}

// Disconnect tears the session down. Safe to call at any time, including when
// no session exists.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.recording = false
	wasIdle := m.state == oracle.RealtimeDisconnected
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			m.emitError(fmt.Errorf("close realtime connection: %w", err))
		}
	}
	if !wasIdle {
		m.setState(oracle.RealtimeDisconnected)
	}
}

type captureFrame struct {
	Type    string         `json:"type"`
	Options CaptureOptions `json:"options"`
}

// StartRecording begins microphone capture with the given options, or the
// default processing chain when opts is nil.
func (m *Manager) StartRecording(ctx context.Context, opts *CaptureOptions) error {
	m.mu.Lock()
	if m.state != oracle.RealtimeConnected || m.conn == nil {
		m.mu.Unlock()
		return fmt.Errorf("cannot start recording: session is not connected")
	}
	if m.recording {
		m.mu.Unlock()
		return fmt.Errorf("recording is already active")
	}
	conn := m.conn
	m.mu.Unlock()

	options := DefaultCaptureOptions()
	if opts != nil {
		options = *opts
	}
	payload, err := json.Marshal(captureFrame{Type: "capture_start", Options: options})
	if err != nil {
		return fmt.Errorf("encode capture frame: %w", err)
	}
	if err := conn.SendData(ctx, payload); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	m.mu.Lock()
	m.recording = true
	m.mu.Unlock()
	return nil
}

// StopRecording ends microphone capture.
func (m *Manager) StopRecording(ctx context.Context) error {
	m.mu.Lock()
	if !m.recording || m.conn == nil {
		m.mu.Unlock()
		return fmt.Errorf("cannot stop recording: capture is not active")
	}
	conn := m.conn
	m.mu.Unlock()

	payload, err := json.Marshal(captureFrame{Type: "capture_stop"})
	if err != nil {
		return fmt.Errorf("encode capture frame: %w", err)
	}
	if err := conn.SendData(ctx, payload); err != nil {
		return fmt.Errorf("stop capture: %w", err)
	}

	m.mu.Lock()
	m.recording = false
	m.mu.Unlock()
	return nil
}

type speakFrame struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	PersonaID string `json:"persona_id"`
}

// SpeakText makes the oracle voice the utterance inside the live session.
// On web the utterance is rendered by the local speech engine with the
// persona's derived parameters; on native platforms it is forwarded to the
// remote agent over the data channel. Both paths are fire-and-forget:
// completion is not awaited and failures surface through OnError.
func (m *Manager) SpeakText(ctx context.Context, text string, personaID string) error {
	if text == "" {
		return fmt.Errorf("utterance text is empty")
	}
	m.mu.Lock()
	if m.state != oracle.RealtimeConnected || m.conn == nil {
		m.mu.Unlock()
		return fmt.Errorf("cannot speak: session is not connected")
	}
	conn := m.conn
	m.mu.Unlock()

	if m.cfg.Platform == oracle.PlatformWeb {
		profile, _ := m.registry.VoiceProfile(personaID)
		params := narration.DeriveEngineParams(profile)
		go func() {
			if err := m.engine.Speak(ctx, text, params, func() {}); err != nil {
				m.emitError(fmt.Errorf("local speech: %w", err))
			}
		}()
		return nil
	}

	payload, err := json.Marshal(speakFrame{Type: "speak", Text: text, PersonaID: personaID})
	if err != nil {
		return fmt.Errorf("encode speak frame: %w", err)
	}
	if err := conn.SendData(ctx, payload); err != nil {
		return fmt.Errorf("forward speak frame: %w", err)
	}
	return nil
}

func (m *Manager) setState(state oracle.RealtimeState) {
	m.mu.Lock()
	changed := m.state != state
	m.state = state
	m.mu.Unlock()
	if changed && m.handlers.OnConnectionChanged != nil {
		m.handlers.OnConnectionChanged(state)
	}
}

func (m *Manager) emitError(err error) {
	if m.handlers.OnError != nil {
		m.handlers.OnError(err)
	}
}

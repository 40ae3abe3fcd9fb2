package videosession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tiger/oracle-voice-sessions/api/oracle"
	"github.com/tiger/oracle-voice-sessions/internal/persona"
)

// SessionProperties are forwarded to the conversation provider on creation.
type SessionProperties struct {
	MaxCallDurationSec          int
	ParticipantLeftTimeoutSec   int
	ParticipantAbsentTimeoutSec int
	EnableTranscription         bool
	Language                    string
}

// DefaultSessionProperties returns the shipped provider-side limits.
func DefaultSessionProperties() SessionProperties {
	return SessionProperties{
		MaxCallDurationSec:          1800,
		ParticipantLeftTimeoutSec:   60,
		ParticipantAbsentTimeoutSec: 120,
		EnableTranscription:         true,
		Language:                    "english",
	}
}

// Validate enforces provider-side property invariants.
func (p SessionProperties) Validate() error {
	if p.MaxCallDurationSec <= 0 {
		return fmt.Errorf("max_call_duration must be >0 seconds")
	}
	if p.ParticipantLeftTimeoutSec < 0 || p.ParticipantAbsentTimeoutSec < 0 {
		return fmt.Errorf("participant timeouts must be >=0 seconds")
	}
	if p.Language == "" {
		return fmt.Errorf("language is required")
	}
	return nil
}

// CreateRequest is the provider-facing conversation creation payload.
type CreateRequest struct {
	ReplicaID        string
	ConversationName string
	Properties       SessionProperties
}

// Conversation is the provider's answer to a creation call.
type Conversation struct {
	ConversationID  string
	ConversationURL string
}

// Provider is the external video conversation collaborator.
type Provider interface {
	CreateConversation(ctx context.Context, req CreateRequest) (Conversation, error)
	GetConversationStatus(ctx context.Context, conversationID string) (oracle.ConversationStatus, error)
	EndConversation(ctx context.Context, conversationID string) error
}

// Config controls manager timing. Zero values resolve to shipped defaults.
type Config struct {
	PollInterval time.Duration
	PollWindow   time.Duration
	ConnectDelay time.Duration
	Retention    time.Duration
	Properties   SessionProperties
	Now          func() time.Time
	NewSessionID func() string
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.PollWindow <= 0 {
		c.PollWindow = 30 * time.Minute
	}
	if c.ConnectDelay <= 0 {
		c.ConnectDelay = 2 * time.Second
	}
	if c.Retention <= 0 {
		c.Retention = time.Hour
	}
	if c.Properties == (SessionProperties{}) {
		c.Properties = DefaultSessionProperties()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewSessionID == nil {
		c.NewSessionID = uuid.NewString
	}
	return c
}

type session struct {
	snap     oracle.VideoSessionSnapshot
	stopPoll chan struct{}
	stopOnce sync.Once
}

func (s *session) stopPolling() {
	s.stopOnce.Do(func() { close(s.stopPoll) })
}

// Manager exclusively owns the video session map. At most one session may be
// connecting or connected at a time; callers only ever see snapshots.
type Manager struct {
	cfg      Config
	provider Provider
	registry persona.Registry

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager constructs a video session manager.
func NewManager(cfg Config, provider Provider, registry persona.Registry) (*Manager, error) {
	if provider == nil {
		return nil, fmt.Errorf("conversation provider is required")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Properties.Validate(); err != nil {
		return nil, fmt.Errorf("session properties: %w", err)
	}
	return &Manager{
		cfg:      cfg,
		provider: provider,
		registry: registry,
		sessions: map[string]*session{},
	}, nil
}

// CreateSession starts a video conversation for the persona's replica.
// Rejected with UnsupportedPersonaError when the persona has no available
// replica, and with SessionAlreadyActiveError while another session is
// connecting or connected.
func (m *Manager) CreateSession(ctx context.Context, personaID string, name string) (oracle.VideoSessionSnapshot, error) {
	mapping, ok := m.registry.ReplicaMapping(personaID)
	if !ok {
		return oracle.VideoSessionSnapshot{}, &UnsupportedPersonaError{PersonaID: personaID, Reason: "no replica mapping"}
	}
	if !mapping.Available {
		return oracle.VideoSessionSnapshot{}, &UnsupportedPersonaError{PersonaID: personaID, Reason: "replica marked unavailable"}
	}

	sessionID := m.cfg.NewSessionID()
	now := m.cfg.Now()

	m.mu.Lock()
	for id, existing := range m.sessions {
		if existing.snap.Status.Active() {
			m.mu.Unlock()
			return oracle.VideoSessionSnapshot{}, &SessionAlreadyActiveError{ActiveSessionID: id}
		}
	}
	// Reserve the single-active slot before the remote call so a concurrent
	// create observes it.
	reserved := &session{
		snap: oracle.VideoSessionSnapshot{
			SessionID: sessionID,
			PersonaID: personaID,
			Status:    oracle.VideoConnecting,
			StartedAt: now,
		},
		stopPoll: make(chan struct{}),
	}
	m.sessions[sessionID] = reserved
	m.mu.Unlock()

	conversation, err := m.provider.CreateConversation(ctx, CreateRequest{
		ReplicaID:        mapping.ReplicaID,
		ConversationName: name,
		Properties:       m.cfg.Properties,
	})
	if err != nil {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		return oracle.VideoSessionSnapshot{}, fmt.Errorf("create conversation for persona %s: %w", personaID, err)
	}

	m.mu.Lock()
	reserved.snap.ConversationID = conversation.ConversationID
	reserved.snap.ConversationURL = conversation.ConversationURL
	snap := reserved.snap
	m.mu.Unlock()

	// Optimistic UX smoothing; the next poll's remote status overrides it.
	time.AfterFunc(m.cfg.ConnectDelay, func() { m.promoteOptimistically(sessionID) })
	go m.pollLoop(sessionID, reserved.stopPoll)

	return snap, nil
}

// GetStatus returns the last-known local snapshot.
func (m *Manager) GetStatus(sessionID string) (oracle.VideoSessionSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return oracle.VideoSessionSnapshot{}, false
	}
	return s.snap, true
}

// RefreshStatus polls the provider immediately and returns the reconciled
// snapshot. Poll failures retain the last-known snapshot.
func (m *Manager) RefreshStatus(ctx context.Context, sessionID string) (oracle.VideoSessionSnapshot, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return oracle.VideoSessionSnapshot{}, fmt.Errorf("unknown video session %s", sessionID)
	}
	m.pollOnce(ctx, sessionID)
	m.mu.Lock()
	defer m.mu.Unlock()
	return s.snap, nil
}

// ActiveSession returns the currently connecting/connected session, if any.
func (m *Manager) ActiveSession() (oracle.VideoSessionSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.snap.Status.Active() {
			return s.snap, true
		}
	}
	return oracle.VideoSessionSnapshot{}, false
}

// EndSession tears down the conversation. Local state is always cleaned up;
// a failing remote teardown degrades to local-only cleanup and is recorded on
// the snapshot rather than returned.
func (m *Manager) EndSession(ctx context.Context, sessionID string) (oracle.VideoSessionSnapshot, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return oracle.VideoSessionSnapshot{}, fmt.Errorf("unknown video session %s", sessionID)
	}
	if s.snap.Status.Terminal() {
		snap := s.snap
		m.mu.Unlock()
		return snap, nil
	}
	conversationID := s.snap.ConversationID
	m.mu.Unlock()

	var teardownErr error
	if conversationID != "" {
		teardownErr = m.provider.EndConversation(ctx, conversationID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s.stopPolling()
	now := m.cfg.Now()
	if teardownErr != nil {
		if s.snap.Status.CanTransition(oracle.VideoError) {
			s.snap.Status = oracle.VideoError
		}
		s.snap.LastError = fmt.Sprintf("remote teardown failed: %v", teardownErr)
	} else if s.snap.Status.CanTransition(oracle.VideoEnded) {
		s.snap.Status = oracle.VideoEnded
	}
	s.snap.EndedAt = now
	return s.snap, nil
}

// CleanupStaleSessions evicts terminal sessions whose end time is older than
// the retention window. Returns the number of evicted sessions.
func (m *Manager) CleanupStaleSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.cfg.Now().Add(-m.cfg.Retention)
	evicted := 0
	for id, s := range m.sessions {
		if !s.snap.Status.Terminal() {
			continue
		}
		if s.snap.Ended() && s.snap.EndedAt.Before(cutoff) {
			s.stopPolling()
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Close stops every poller. Session state is left in place for inspection.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.stopPolling()
	}
}

func (m *Manager) promoteOptimistically(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	if s.snap.Status == oracle.VideoConnecting {
		s.snap.Status = oracle.VideoConnected
	}
}

func (m *Manager) pollLoop(sessionID string, stop <-chan struct{}) {
	deadline := m.cfg.Now().Add(m.cfg.PollWindow)
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if m.cfg.Now().After(deadline) {
				// Bounded poller lifetime; a stuck session stops consuming
				// a timer after the window regardless of status.
				return
			}
			m.pollOnce(context.Background(), sessionID)
			m.mu.Lock()
			s, ok := m.sessions[sessionID]
			terminal := ok && s.snap.Status.Terminal()
			m.mu.Unlock()
			if !ok || terminal {
				return
			}
		}
	}
}

func (m *Manager) pollOnce(ctx context.Context, sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok || s.snap.ConversationID == "" || s.snap.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	conversationID := s.snap.ConversationID
	m.mu.Unlock()

	remote, err := m.provider.GetConversationStatus(ctx, conversationID)
	if err != nil {
		// Poll failures retain the last-known status.
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok = m.sessions[sessionID]
	if !ok {
		return
	}
	s.snap = Reconcile(s.snap, remote, m.cfg.Now())
	if s.snap.Status.Terminal() {
		s.stopPolling()
	}
}

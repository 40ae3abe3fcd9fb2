package oracle

import (
	"fmt"
	"time"
)

// Platform identifies the host platform a manager instance serves.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Validate enforces supported platform values.
func (p Platform) Validate() error {
	switch p {
	case PlatformWeb, PlatformIOS, PlatformAndroid:
		return nil
	default:
		return fmt.Errorf("unsupported platform: %q", p)
	}
}

// Native reports whether the platform carries a native speech engine.
func (p Platform) Native() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// BuildType distinguishes managed sandbox builds from custom builds.
type BuildType string

const (
	BuildManaged BuildType = "managed"
	BuildCustom  BuildType = "custom"
)

// Validate enforces supported build types.
func (b BuildType) Validate() error {
	switch b {
	case BuildManaged, BuildCustom:
		return nil
	default:
		return fmt.Errorf("unsupported build_type: %q", b)
	}
}

// ProviderKind names one speech or video backend the capability detector rules on.
type ProviderKind string

const (
	ProviderRemoteTTS     ProviderKind = "tts-remote"
	ProviderNativeTTS     ProviderKind = "tts-native"
	ProviderWebTTS        ProviderKind = "tts-web"
	ProviderRealtimeVoice ProviderKind = "realtime-voice"
	ProviderVideoAvatar   ProviderKind = "video-avatar"
)

// Validate enforces supported provider kinds.
func (k ProviderKind) Validate() error {
	switch k {
	case ProviderRemoteTTS, ProviderNativeTTS, ProviderWebTTS, ProviderRealtimeVoice, ProviderVideoAvatar:
		return nil
	default:
		return fmt.Errorf("unsupported provider_kind: %q", k)
	}
}

// CredentialDependent reports whether availability depends on a configured credential.
func (k ProviderKind) CredentialDependent() bool {
	switch k {
	case ProviderRemoteTTS, ProviderRealtimeVoice, ProviderVideoAvatar:
		return true
	default:
		return false
	}
}

// VoiceProfile holds authored per-persona remote-voice parameters.
type VoiceProfile struct {
	VoiceID      string  `json:"voice_id"`
	Stability    float64 `json:"stability"`
	Similarity   float64 `json:"similarity"`
	Style        float64 `json:"style"`
	SpeakerBoost bool    `json:"speaker_boost"`
}

// Validate enforces the documented numeric ranges for authored voice parameters.
func (p VoiceProfile) Validate() error {
	if p.VoiceID == "" {
		return fmt.Errorf("voice_id is required")
	}
	if p.Stability < 0 || p.Stability > 1 {
		return fmt.Errorf("stability must be in [0,1], got %v", p.Stability)
	}
	if p.Similarity < 0 || p.Similarity > 1 {
		return fmt.Errorf("similarity must be in [0,1], got %v", p.Similarity)
	}
	if p.Style < 0 || p.Style > 1 {
		return fmt.Errorf("style must be in [0,1], got %v", p.Style)
	}
	return nil
}

// EngineParams are derived speech-engine parameters for native/web fallback engines.
type EngineParams struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

// Validate enforces engine parameter ranges.
func (p EngineParams) Validate() error {
	if p.Rate < 0.7 || p.Rate > 1.2 {
		return fmt.Errorf("rate must be in [0.7,1.2], got %v", p.Rate)
	}
	if p.Pitch < 0.9 || p.Pitch > 1.1 {
		return fmt.Errorf("pitch must be in [0.9,1.1], got %v", p.Pitch)
	}
	if p.Volume < 0 || p.Volume > 1 {
		return fmt.Errorf("volume must be in [0,1], got %v", p.Volume)
	}
	return nil
}

// ReplicaMapping holds the authored video-replica binding for one persona.
type ReplicaMapping struct {
	ReplicaID   string `json:"replica_id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Available   bool   `json:"available"`
}

// Validate enforces mapping shape invariants.
func (m ReplicaMapping) Validate() error {
	if m.ReplicaID == "" {
		return fmt.Errorf("replica_id is required")
	}
	if m.DisplayName == "" {
		return fmt.Errorf("display_name is required")
	}
	return nil
}

// VideoSessionStatus is the local video-session lifecycle state.
type VideoSessionStatus string

const (
	VideoConnecting VideoSessionStatus = "connecting"
	VideoConnected  VideoSessionStatus = "connected"
	VideoEnded      VideoSessionStatus = "ended"
	VideoError      VideoSessionStatus = "error"
)

// Validate enforces supported status values.
func (s VideoSessionStatus) Validate() error {
	switch s {
	case VideoConnecting, VideoConnected, VideoEnded, VideoError:
		return nil
	default:
		return fmt.Errorf("unsupported video session status: %q", s)
	}
}

// Active reports whether the status still holds the single-active-session slot.
func (s VideoSessionStatus) Active() bool {
	return s == VideoConnecting || s == VideoConnected
}

// Terminal reports whether no further transitions may leave this status.
func (s VideoSessionStatus) Terminal() bool {
	return s == VideoEnded || s == VideoError
}

// CanTransition enforces monotonic lifecycle ordering:
// connecting -> connected -> ended, or connecting|connected -> error.
func (s VideoSessionStatus) CanTransition(to VideoSessionStatus) bool {
	if s.Terminal() {
		return false
	}
	switch to {
	case VideoConnected:
		return s == VideoConnecting
	case VideoEnded, VideoError:
		return true
	case VideoConnecting:
		return false
	default:
		return false
	}
}

// ConversationStatus is the authoritative remote status reported by the video provider.
type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationEnded  ConversationStatus = "ended"
	ConversationFailed ConversationStatus = "failed"
)

// Validate enforces supported remote conversation statuses.
func (s ConversationStatus) Validate() error {
	switch s {
	case ConversationActive, ConversationEnded, ConversationFailed:
		return nil
	default:
		return fmt.Errorf("unsupported conversation status: %q", s)
	}
}

// VideoSessionSnapshot is a read-only copy of one video session's local state.
type VideoSessionSnapshot struct {
	SessionID       string
	ConversationID  string
	ConversationURL string
	PersonaID       string
	Status          VideoSessionStatus
	StartedAt       time.Time
	EndedAt         time.Time
	LastError       string
}

// Ended reports whether the snapshot carries an end timestamp.
func (s VideoSessionSnapshot) Ended() bool {
	return !s.EndedAt.IsZero()
}

// RealtimeState is the duplex voice-channel connection state.
type RealtimeState string

const (
	RealtimeDisconnected RealtimeState = "disconnected"
	RealtimeConnecting   RealtimeState = "connecting"
	RealtimeConnected    RealtimeState = "connected"
	RealtimeError        RealtimeState = "error"
)

// Validate enforces supported realtime states.
func (s RealtimeState) Validate() error {
	switch s {
	case RealtimeDisconnected, RealtimeConnecting, RealtimeConnected, RealtimeError:
		return nil
	default:
		return fmt.Errorf("unsupported realtime state: %q", s)
	}
}

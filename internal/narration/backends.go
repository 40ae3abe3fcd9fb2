package narration

import (
	"context"
	"fmt"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
)

// RemoteBackend synthesizes audio through the remote TTS provider and plays
// the returned payload. Synthesis failures and empty payloads surface before
// started is signaled, so the orchestrator may fall through to the next
// backend.
type RemoteBackend struct {
	synth  Synthesizer
	player Player
}

// NewRemoteBackend wires the remote synthesis path.
func NewRemoteBackend(synth Synthesizer, player Player) (*RemoteBackend, error) {
	if synth == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if player == nil {
		return nil, fmt.Errorf("player is required")
	}
	return &RemoteBackend{synth: synth, player: player}, nil
}

// Kind identifies the backend in capability queries.
func (b *RemoteBackend) Kind() oracle.ProviderKind {
	return oracle.ProviderRemoteTTS
}

// Speak synthesizes then plays the narration audio.
func (b *RemoteBackend) Speak(ctx context.Context, req Request, started func()) error {
	audio, err := b.synth.Synthesize(ctx, req.Text, req.Profile)
	if err != nil {
		return fmt.Errorf("remote synthesis: %w", err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("remote synthesis returned empty audio payload")
	}
	if err := b.player.Play(ctx, audio, started); err != nil {
		return fmt.Errorf("remote playback: %w", err)
	}
	return nil
}

// EngineBackend adapts a platform speech engine into the fallback chain.
type EngineBackend struct {
	kind   oracle.ProviderKind
	engine Engine
}

// NewEngineBackend wraps a native or web speech engine.
func NewEngineBackend(kind oracle.ProviderKind, engine Engine) (*EngineBackend, error) {
	if kind != oracle.ProviderNativeTTS && kind != oracle.ProviderWebTTS {
		return nil, fmt.Errorf("engine backend kind must be %s or %s, got %s",
			oracle.ProviderNativeTTS, oracle.ProviderWebTTS, kind)
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	return &EngineBackend{kind: kind, engine: engine}, nil
}

// Kind identifies the backend in capability queries.
func (b *EngineBackend) Kind() oracle.ProviderKind {
	return b.kind
}

// Speak delegates to the platform engine with the derived parameters.
func (b *EngineBackend) Speak(ctx context.Context, req Request, started func()) error {
	if err := req.Params.Validate(); err != nil {
		return fmt.Errorf("engine params: %w", err)
	}
	if err := b.engine.Speak(ctx, req.Text, req.Params, started); err != nil {
		return fmt.Errorf("%s engine: %w", b.kind, err)
	}
	return nil
}

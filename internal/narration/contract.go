// Package narration implements one-shot oracle speech with an ordered
// backend fallback chain: remote synthesis, then the native platform engine,
// then the web engine.
package narration

import (
	"context"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
)

// Request carries one narration attempt through the backend chain.
type Request struct {
	Text    string
	Profile oracle.VoiceProfile
	Params  oracle.EngineParams
}

// Callbacks are the per-call lifecycle hooks. OnStart fires once audible
// playback begins; exactly one of OnEnd/OnError fires per speak call. An
// explicit stop resolves the in-flight call with OnEnd. A later speak
// supersedes the call instead, and no further callbacks fire for it.
type Callbacks struct {
	OnStart func()
	OnEnd   func()
	OnError func(error)
}

// Backend is one speech strategy in the fallback chain. Speak blocks until
// playback completes or fails and must invoke started exactly once as soon
// as audio is audible. An error returned before started was signaled counts
// as an up-front failure and permits fallback; after started it does not.
type Backend interface {
	Kind() oracle.ProviderKind
	Speak(ctx context.Context, req Request, started func()) error
}

// Synthesizer converts text into an audio payload using the remote provider.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, profile oracle.VoiceProfile) ([]byte, error)
}

// Player renders a synthesized audio payload. started is invoked when the
// first audio is audible.
type Player interface {
	Play(ctx context.Context, audio []byte, started func()) error
}

// Engine is a platform speech engine (native or web). Implementations speak
// the utterance with the derived rate/pitch/volume parameters and block until
// completion.
type Engine interface {
	Speak(ctx context.Context, text string, params oracle.EngineParams, started func()) error
}

// Availability gates backend selection; satisfied by the capability detector.
type Availability interface {
	IsAvailable(kind oracle.ProviderKind) bool
}

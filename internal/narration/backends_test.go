package narration

import (
	"context"
	"errors"
	"testing"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
)

type fakeSynth struct {
	audio []byte
	err   error
}

func (s fakeSynth) Synthesize(_ context.Context, _ string, _ oracle.VoiceProfile) ([]byte, error) {
	return s.audio, s.err
}

type fakePlayer struct {
	err    error
	played []byte
}

func (p *fakePlayer) Play(_ context.Context, audio []byte, started func()) error {
	p.played = audio
	started()
	return p.err
}

type fakeEngine struct {
	err    error
	params oracle.EngineParams
}

func (e *fakeEngine) Speak(_ context.Context, _ string, params oracle.EngineParams, started func()) error {
	e.params = params
	if e.err != nil {
		return e.err
	}
	started()
	return nil
}

func TestRemoteBackendPlaysSynthesizedAudio(t *testing.T) {
	t.Parallel()

	player := &fakePlayer{}
	backend, err := NewRemoteBackend(fakeSynth{audio: []byte("mp3")}, player)
	if err != nil {
		t.Fatalf("new remote backend: %v", err)
	}

	startedFired := false
	if err := backend.Speak(context.Background(), Request{Text: "hi"}, func() { startedFired = true }); err != nil {
		t.Fatalf("speak: %v", err)
	}
	if !startedFired || string(player.played) != "mp3" {
		t.Fatalf("playback path broken: started=%t played=%q", startedFired, player.played)
	}
}

func TestRemoteBackendEmptyPayloadFailsBeforeStart(t *testing.T) {
	t.Parallel()

	backend, err := NewRemoteBackend(fakeSynth{audio: nil}, &fakePlayer{})
	if err != nil {
		t.Fatalf("new remote backend: %v", err)
	}
	startedFired := false
	if err := backend.Speak(context.Background(), Request{Text: "hi"}, func() { startedFired = true }); err == nil {
		t.Fatalf("empty payload accepted")
	}
	if startedFired {
		t.Fatalf("started must not fire for empty payload")
	}
}

func TestRemoteBackendWrapsSynthesisError(t *testing.T) {
	t.Parallel()

	cause := errors.New("503 from vendor")
	backend, err := NewRemoteBackend(fakeSynth{err: cause}, &fakePlayer{})
	if err != nil {
		t.Fatalf("new remote backend: %v", err)
	}
	if err := backend.Speak(context.Background(), Request{Text: "hi"}, func() {}); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped synthesis error, got %v", err)
	}
}

func TestEngineBackendValidatesKindAndParams(t *testing.T) {
	t.Parallel()

	if _, err := NewEngineBackend(oracle.ProviderRemoteTTS, &fakeEngine{}); err == nil {
		t.Fatalf("remote kind accepted for engine backend")
	}
	backend, err := NewEngineBackend(oracle.ProviderNativeTTS, &fakeEngine{})
	if err != nil {
		t.Fatalf("new engine backend: %v", err)
	}
	bad := Request{Text: "hi", Params: oracle.EngineParams{Rate: 5, Pitch: 1, Volume: 1}}
	if err := backend.Speak(context.Background(), bad, func() {}); err == nil {
		t.Fatalf("out-of-range params accepted")
	}
}

func TestEngineBackendPassesParamsThrough(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	backend, err := NewEngineBackend(oracle.ProviderWebTTS, engine)
	if err != nil {
		t.Fatalf("new engine backend: %v", err)
	}
	params := oracle.EngineParams{Rate: 0.85, Pitch: 1.07, Volume: 1}
	if err := backend.Speak(context.Background(), Request{Text: "hi", Params: params}, func() {}); err != nil {
		t.Fatalf("speak: %v", err)
	}
	if engine.params != params {
		t.Fatalf("params not forwarded, got %+v", engine.params)
	}
}

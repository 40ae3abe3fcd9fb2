package narration

import (
	"context"
	"fmt"
	"sync"

	"github.com/tiger/oracle-voice-sessions/internal/persona"
)

// Orchestrator owns the single live narration per instance. Starting a new
// narration always stops and awaits the previous one first, so two audio
// sources never overlap and a superseded call's callbacks never fire after
// the next call has started.
type Orchestrator struct {
	registry persona.Registry
	avail    Availability
	backends []Backend

	// speakMu serializes Speak and Stop so a superseding call always
	// registers its generation before another caller can slip in between
	// the stop-wait and the registration.
	speakMu sync.Mutex

	mu         sync.Mutex
	generation int
	playing    bool
	stopNotify bool
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewOrchestrator builds an orchestrator over an ordered backend chain.
// Backends are tried in slice order; the availability gate is consulted per
// speak call, never cached across calls.
func NewOrchestrator(registry persona.Registry, avail Availability, backends []Backend) (*Orchestrator, error) {
	if avail == nil {
		return nil, fmt.Errorf("availability gate is required")
	}
	for i, backend := range backends {
		if backend == nil {
			return nil, fmt.Errorf("backend %d is nil", i)
		}
	}
	return &Orchestrator{
		registry: registry,
		avail:    avail,
		backends: append([]Backend(nil), backends...),
	}, nil
}

// Speak starts a narration for the persona's voice. Fire-and-forget: all
// results are reported through cb, never returned.
func (o *Orchestrator) Speak(text string, personaID string, cb Callbacks) {
	o.speakMu.Lock()
	defer o.speakMu.Unlock()
	o.stop(false)

	profile, _ := o.registry.VoiceProfile(personaID)
	req := Request{
		Text:    text,
		Profile: profile,
		Params:  DeriveEngineParams(profile),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.cancel = cancel
	o.done = done
	o.mu.Unlock()

	go o.run(ctx, gen, req, cb, done)
}

// Stop cancels any in-flight narration and waits for it to wind down,
// resolving the stopped call with its OnEnd. Idempotent; safe when nothing
// is playing.
func (o *Orchestrator) Stop() {
	o.speakMu.Lock()
	defer o.speakMu.Unlock()
	o.stop(true)
}

// stop tears the in-flight narration down. With notifyEnd the stopped call's
// OnEnd fires before stop returns; without it the call winds down silently,
// which is how a superseding speak orphans its predecessor.
func (o *Orchestrator) stop(notifyEnd bool) {
	o.mu.Lock()
	cancel := o.cancel
	done := o.done
	if cancel != nil {
		o.stopNotify = notifyEnd
	}
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	o.mu.Lock()
	o.stopNotify = false
	o.mu.Unlock()
}

// IsPlaying reflects the orchestrator's own playback flag, not a live
// provider query.
func (o *Orchestrator) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.playing
}

func (o *Orchestrator) run(ctx context.Context, gen int, req Request, cb Callbacks, done chan struct{}) {
	defer func() {
		o.mu.Lock()
		if o.generation == gen {
			o.playing = false
			o.cancel = nil
			o.done = nil
		}
		o.mu.Unlock()
		close(done)
	}()

	if req.Text == "" {
		o.emitError(gen, cb, fmt.Errorf("narration text is empty"))
		return
	}

	var lastErr error
	attempted := 0
	for _, backend := range o.backends {
		if ctx.Err() != nil {
			o.emitCancelled(gen, cb)
			return
		}
		if !o.avail.IsAvailable(backend.Kind()) {
			continue
		}
		attempted++

		startedFired := false
		started := func() {
			startedFired = true
			o.markStarted(gen, cb)
		}

		err := backend.Speak(ctx, req, started)
		if ctx.Err() != nil {
			// An explicit stop resolves the call with OnEnd; supersession by
			// a newer speak winds down silently.
			o.emitCancelled(gen, cb)
			return
		}
		if err == nil {
			o.emitEnd(gen, cb)
			return
		}
		if startedFired {
			// Audio was audible; retrying on another backend would
			// double-speak. Report and halt the chain.
			o.emitError(gen, cb, err)
			return
		}
		lastErr = err
	}

	switch {
	case attempted == 0:
		o.emitError(gen, cb, fmt.Errorf("no speech backend available"))
	default:
		o.emitError(gen, cb, fmt.Errorf("all speech backends failed: %w", lastErr))
	}
}

func (o *Orchestrator) markStarted(gen int, cb Callbacks) {
	o.mu.Lock()
	current := o.generation == gen
	if current {
		o.playing = true
	}
	o.mu.Unlock()
	if current && cb.OnStart != nil {
		cb.OnStart()
	}
}

func (o *Orchestrator) emitEnd(gen int, cb Callbacks) {
	o.mu.Lock()
	current := o.generation == gen
	if current {
		o.playing = false
	}
	o.mu.Unlock()
	if current && cb.OnEnd != nil {
		cb.OnEnd()
	}
}

func (o *Orchestrator) emitCancelled(gen int, cb Callbacks) {
	o.mu.Lock()
	notify := o.stopNotify && o.generation == gen
	o.stopNotify = false
	if o.generation == gen {
		o.playing = false
	}
	o.mu.Unlock()
	if notify && cb.OnEnd != nil {
		cb.OnEnd()
	}
}

func (o *Orchestrator) emitError(gen int, cb Callbacks, err error) {
	o.mu.Lock()
	current := o.generation == gen
	if current {
		o.playing = false
	}
	o.mu.Unlock()
	if current && cb.OnError != nil {
		cb.OnError(err)
	}
}

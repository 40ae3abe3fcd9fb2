package capability

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
)

// Credentials are the configuration inputs the detector rules on. Presence and
// shape only; the detector never performs a network check.
type Credentials struct {
	RemoteTTSAPIKey   string
	RealtimeURL       string
	RealtimeAPIKey    string
	RealtimeAPISecret string
	VideoAPIKey       string
}

// minCredentialLength is the shape heuristic below which a credential counts
// as not configured rather than malformed.
const minCredentialLength = 12

// Detector answers "can this provider be used right now" from platform, build
// type, and credential shape. Platform- and build-derived answers are memoized
// for the process lifetime; credential-dependent kinds are re-evaluated per
// call since credentials can be injected late.
type Detector struct {
	platform oracle.Platform
	build    oracle.BuildType
	creds    func() Credentials

	mu     sync.Mutex
	static map[oracle.ProviderKind]bool
}

// NewDetector constructs a detector for one platform/build pair. The creds
// function is consulted on every credential-dependent query.
func NewDetector(platform oracle.Platform, build oracle.BuildType, creds func() Credentials) (*Detector, error) {
	if err := platform.Validate(); err != nil {
		return nil, err
	}
	if err := build.Validate(); err != nil {
		return nil, err
	}
	if creds == nil {
		creds = func() Credentials { return Credentials{} }
	}
	return &Detector{
		platform: platform,
		build:    build,
		creds:    creds,
		static:   map[oracle.ProviderKind]bool{},
	}, nil
}

// Platform returns the detector's platform scope.
func (d *Detector) Platform() oracle.Platform {
	return d.platform
}

// IsAvailable reports whether the provider kind is usable. Unknown kinds and
// missing or too-short credentials route to unavailable, never to an error.
func (d *Detector) IsAvailable(kind oracle.ProviderKind) bool {
	if err := kind.Validate(); err != nil {
		return false
	}
	if !kind.CredentialDependent() {
		return d.staticAvailability(kind)
	}

	creds := d.creds()
	switch kind {
	case oracle.ProviderRemoteTTS:
		return credentialConfigured(creds.RemoteTTSAPIKey)
	case oracle.ProviderRealtimeVoice:
		if d.platform.Native() && d.build != oracle.BuildCustom {
			return false
		}
		return strings.TrimSpace(creds.RealtimeURL) != "" &&
			credentialConfigured(creds.RealtimeAPIKey) &&
			credentialConfigured(creds.RealtimeAPISecret)
	case oracle.ProviderVideoAvatar:
		return credentialConfigured(creds.VideoAPIKey)
	default:
		return false
	}
}

// Freeze captures current availability of every provider kind as a snapshot.
func (d *Detector) Freeze(ref string, capturedAtMS int64) (Snapshot, error) {
	kinds := map[oracle.ProviderKind]bool{}
	for _, kind := range AllKinds() {
		kinds[kind] = d.IsAvailable(kind)
	}
	return FreezeSnapshot(FreezeInput{SnapshotRef: ref, CapturedAtMS: capturedAtMS, Kinds: kinds})
}

func (d *Detector) staticAvailability(kind oracle.ProviderKind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if answer, ok := d.static[kind]; ok {
		return answer
	}
	var answer bool
	switch kind {
	case oracle.ProviderNativeTTS:
		answer = d.platform.Native()
	case oracle.ProviderWebTTS:
		answer = d.platform == oracle.PlatformWeb
	}
	d.static[kind] = answer
	return answer
}

// AllKinds returns every provider kind in deterministic order.
func AllKinds() []oracle.ProviderKind {
	return []oracle.ProviderKind{
		oracle.ProviderRemoteTTS,
		oracle.ProviderNativeTTS,
		oracle.ProviderWebTTS,
		oracle.ProviderRealtimeVoice,
		oracle.ProviderVideoAvatar,
	}
}

func credentialConfigured(raw string) bool {
	return len(strings.TrimSpace(raw)) >= minCredentialLength
}

// CredentialsFromValues builds detector credentials from explicit values,
// erroring only on kinds that can never resolve (nothing configured is legal).
func CredentialsFromValues(remoteTTSKey, realtimeURL, realtimeKey, realtimeSecret, videoKey string) (Credentials, error) {
	creds := Credentials{
		RemoteTTSAPIKey:   strings.TrimSpace(remoteTTSKey),
		RealtimeURL:       strings.TrimSpace(realtimeURL),
		RealtimeAPIKey:    strings.TrimSpace(realtimeKey),
		RealtimeAPISecret: strings.TrimSpace(realtimeSecret),
		VideoAPIKey:       strings.TrimSpace(videoKey),
	}
	if creds.RealtimeURL != "" && !strings.HasPrefix(creds.RealtimeURL, "ws") && !strings.HasPrefix(creds.RealtimeURL, "http") {
		return Credentials{}, fmt.Errorf("realtime url must be a ws(s) or http(s) endpoint, got %q", creds.RealtimeURL)
	}
	return creds, nil
}

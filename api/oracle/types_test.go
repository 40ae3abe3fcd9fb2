package oracle

import "testing"

func TestVideoSessionStatusTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to VideoSessionStatus
		allowed  bool
	}{
		{VideoConnecting, VideoConnected, true},
		{VideoConnecting, VideoEnded, true},
		{VideoConnecting, VideoError, true},
		{VideoConnected, VideoEnded, true},
		{VideoConnected, VideoError, true},
		{VideoConnected, VideoConnecting, false},
		{VideoEnded, VideoConnected, false},
		{VideoEnded, VideoError, false},
		{VideoError, VideoEnded, false},
		{VideoError, VideoConnected, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Fatalf("transition %s -> %s: got %t, want %t", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestVideoSessionStatusActiveTerminal(t *testing.T) {
	t.Parallel()

	if !VideoConnecting.Active() || !VideoConnected.Active() {
		t.Fatalf("connecting and connected must count as active")
	}
	if VideoEnded.Active() || VideoError.Active() {
		t.Fatalf("ended and error must not count as active")
	}
	if !VideoEnded.Terminal() || !VideoError.Terminal() {
		t.Fatalf("ended and error must be terminal")
	}
	if VideoConnecting.Terminal() || VideoConnected.Terminal() {
		t.Fatalf("connecting and connected must not be terminal")
	}
}

func TestVoiceProfileValidate(t *testing.T) {
	t.Parallel()

	valid := VoiceProfile{VoiceID: "v-1", Stability: 0.7, Similarity: 0.85, Style: 0.2, SpeakerBoost: true}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}

	invalid := []VoiceProfile{
		{VoiceID: "", Stability: 0.5, Similarity: 0.5},
		{VoiceID: "v-1", Stability: -0.1, Similarity: 0.5},
		{VoiceID: "v-1", Stability: 0.5, Similarity: 1.1},
		{VoiceID: "v-1", Stability: 0.5, Similarity: 0.5, Style: 2},
	}
	for i, profile := range invalid {
		if err := profile.Validate(); err == nil {
			t.Fatalf("invalid profile %d accepted: %+v", i, profile)
		}
	}
}

func TestEngineParamsValidateRanges(t *testing.T) {
	t.Parallel()

	if err := (EngineParams{Rate: 0.85, Pitch: 1.07, Volume: 1}).Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
	if err := (EngineParams{Rate: 0.6, Pitch: 1.0, Volume: 1}).Validate(); err == nil {
		t.Fatalf("rate below range accepted")
	}
	if err := (EngineParams{Rate: 1.0, Pitch: 1.2, Volume: 1}).Validate(); err == nil {
		t.Fatalf("pitch above range accepted")
	}
}

func TestProviderKindCredentialDependence(t *testing.T) {
	t.Parallel()

	for _, kind := range []ProviderKind{ProviderRemoteTTS, ProviderRealtimeVoice, ProviderVideoAvatar} {
		if !kind.CredentialDependent() {
			t.Fatalf("%s should be credential dependent", kind)
		}
	}
	for _, kind := range []ProviderKind{ProviderNativeTTS, ProviderWebTTS} {
		if kind.CredentialDependent() {
			t.Fatalf("%s should not be credential dependent", kind)
		}
	}
	if err := ProviderKind("tts-flux").Validate(); err == nil {
		t.Fatalf("unknown provider kind accepted")
	}
}

func TestPlatformValidateAndNative(t *testing.T) {
	t.Parallel()

	if err := PlatformWeb.Validate(); err != nil {
		t.Fatalf("web platform rejected: %v", err)
	}
	if PlatformWeb.Native() {
		t.Fatalf("web must not be native")
	}
	if !PlatformIOS.Native() || !PlatformAndroid.Native() {
		t.Fatalf("ios/android must be native")
	}
	if err := Platform("desktop").Validate(); err == nil {
		t.Fatalf("unknown platform accepted")
	}
}

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
	"github.com/tiger/oracle-voice-sessions/internal/persona"
)

func TestBuildCapabilityReportWebDefaults(t *testing.T) {
	t.Setenv("ORACLE_ELEVENLABS_API_KEY", "sk-elevenlabs-test-key")
	t.Setenv("ORACLE_LIVEKIT_URL", "")
	t.Setenv("ORACLE_LIVEKIT_API_KEY", "")
	t.Setenv("ORACLE_LIVEKIT_API_SECRET", "")
	t.Setenv("ORACLE_TAVUS_API_KEY", "")

	report, err := buildCapabilityReport(oracle.PlatformWeb, oracle.BuildManaged, time.UnixMilli(1750000000000))
	if err != nil {
		t.Fatalf("buildCapabilityReport: %v", err)
	}
	if report.Platform != "web" || report.Build != "managed" {
		t.Fatalf("report scope = %s/%s", report.Platform, report.Build)
	}
	if !report.Kinds["tts-remote"] {
		t.Fatalf("remote tts must be available with a configured key")
	}
	if !report.Kinds["tts-web"] {
		t.Fatalf("web tts must be available on web")
	}
	if report.Kinds["tts-native"] {
		t.Fatalf("native tts must be unavailable on web")
	}
	if report.Kinds["realtime-voice"] || report.Kinds["video-avatar"] {
		t.Fatalf("unconfigured kinds must be unavailable: %v", report.Kinds)
	}
	if report.Fingerprint == "" {
		t.Fatalf("fingerprint missing")
	}
}

func TestBuildPersonaReport(t *testing.T) {
	t.Parallel()

	report := buildPersonaReport(persona.Builtin())
	if len(report) != 4 {
		t.Fatalf("personas = %d, want 4", len(report))
	}
	byID := map[string]personaSummary{}
	defaults := 0
	for _, p := range report {
		byID[p.PersonaID] = p
		if p.Default {
			defaults++
		}
	}
	if defaults != 1 {
		t.Fatalf("default personas = %d, want exactly 1", defaults)
	}
	if !byID["cosmic-sage"].Default {
		t.Fatalf("cosmic-sage must be the default persona")
	}
	if byID["shadow-weaver"].ReplicaAvailable {
		t.Fatalf("shadow-weaver replica must be flagged unavailable")
	}
	if byID["crystal-prophet"].Stability != 0.7 {
		t.Fatalf("crystal-prophet stability = %v", byID["crystal-prophet"].Stability)
	}
}

func TestBuildNarrationPlan(t *testing.T) {
	t.Parallel()

	plan, err := buildNarrationPlan(persona.Builtin(), "crystal-prophet", "The mists part before you.")
	if err != nil {
		t.Fatalf("buildNarrationPlan: %v", err)
	}
	if !plan.KnownPersona {
		t.Fatalf("crystal-prophet must be known")
	}
	if diff := plan.Rate - 0.85; diff < -0.001 || diff > 0.001 {
		t.Fatalf("rate = %v, want 0.85", plan.Rate)
	}
	if diff := plan.Pitch - 1.07; diff < -0.001 || diff > 0.001 {
		t.Fatalf("pitch = %v, want 1.07", plan.Pitch)
	}
	if !strings.Contains(plan.SSMLPreview, "The mists part before you.") {
		t.Fatalf("ssml preview = %q", plan.SSMLPreview)
	}
}

func TestBuildNarrationPlanUnknownPersonaFallsBack(t *testing.T) {
	t.Parallel()

	plan, err := buildNarrationPlan(persona.Builtin(), "mystery-guest", "hello")
	if err != nil {
		t.Fatalf("buildNarrationPlan: %v", err)
	}
	if plan.KnownPersona {
		t.Fatalf("unknown persona must be reported as unknown")
	}
	if plan.VoiceID == "" {
		t.Fatalf("fallback voice missing")
	}
}

func TestBuildNarrationPlanRejectsEmptyText(t *testing.T) {
	t.Parallel()

	if _, err := buildNarrationPlan(persona.Builtin(), "cosmic-sage", ""); err == nil {
		t.Fatalf("empty text must be rejected")
	}
}

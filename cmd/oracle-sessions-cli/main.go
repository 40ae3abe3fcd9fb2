package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
	"github.com/tiger/oracle-voice-sessions/internal/capability"
	"github.com/tiger/oracle-voice-sessions/internal/narration"
	"github.com/tiger/oracle-voice-sessions/internal/persona"
	"github.com/tiger/oracle-voice-sessions/internal/videosession"
	"github.com/tiger/oracle-voice-sessions/providers/speech/polly"
	"github.com/tiger/oracle-voice-sessions/providers/video/tavus"
	"github.com/tiger/oracle-voice-sessions/transports/livekit"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	switch os.Args[1] {
	case "capabilities":
		platform := oracle.PlatformWeb
		build := oracle.BuildManaged
		if len(os.Args) >= 3 {
			platform = oracle.Platform(os.Args[2])
		}
		if len(os.Args) >= 4 {
			build = oracle.BuildType(os.Args[3])
		}
		report, err := buildCapabilityReport(platform, build, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "capability report failed: %v\n", err)
			os.Exit(1)
		}
		printJSON(report)
	case "personas":
		registry := persona.Builtin()
		if len(os.Args) >= 3 {
			loaded, err := persona.LoadFile(os.Args[2], defaultSchemaPath())
			if err != nil {
				fmt.Fprintf(os.Stderr, "load persona registry: %v\n", err)
				os.Exit(1)
			}
			registry = loaded
		}
		printJSON(buildPersonaReport(registry))
	case "narrate":
		if len(os.Args) < 4 {
			printUsage()
			os.Exit(2)
		}
		plan, err := buildNarrationPlan(persona.Builtin(), os.Args[2], os.Args[3])
		if err != nil {
			fmt.Fprintf(os.Stderr, "narration plan failed: %v\n", err)
			os.Exit(1)
		}
		printJSON(plan)
	case "token":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(2)
		}
		cfg, err := livekit.ConfigFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "realtime config: %v\n", err)
			os.Exit(1)
		}
		issuer, err := livekit.NewTokenIssuer(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "token issuer: %v\n", err)
			os.Exit(1)
		}
		room := ""
		if len(os.Args) >= 4 {
			room = os.Args[3]
		}
		token, err := issuer.IssueToken(os.Args[2], room)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
	case "video-session":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(2)
		}
		if err := runVideoSession(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "video session failed: %v\n", err)
			os.Exit(1)
		}
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Println("oracle-sessions-cli usage:")
	fmt.Println("  oracle-sessions-cli capabilities [platform] [build]")
	fmt.Println("  oracle-sessions-cli personas [registry_file]")
	fmt.Println("  oracle-sessions-cli narrate <persona_id> <text>")
	fmt.Println("  oracle-sessions-cli token <identity> [room]")
	fmt.Println("  oracle-sessions-cli video-session <persona_id>")
}

// runVideoSession creates a conversation, polls it once, and tears it down.
func runVideoSession(personaID string) error {
	client, err := tavus.NewClient(tavus.ConfigFromEnv())
	if err != nil {
		return err
	}
	manager, err := videosession.NewManager(videosession.Config{}, client, persona.Builtin())
	if err != nil {
		return err
	}
	defer manager.Close()

	ctx := context.Background()
	snap, err := manager.CreateSession(ctx, personaID, "oracle-sessions-cli")
	if err != nil {
		return err
	}
	fmt.Printf("session %s created: %s\n", snap.SessionID, snap.ConversationURL)

	refreshed, err := manager.RefreshStatus(ctx, snap.SessionID)
	if err != nil {
		return err
	}
	fmt.Printf("session %s status: %s\n", refreshed.SessionID, refreshed.Status)

	ended, err := manager.EndSession(ctx, snap.SessionID)
	if err != nil {
		return err
	}
	fmt.Printf("session %s ended: %s", ended.SessionID, ended.Status)
	if ended.LastError != "" {
		fmt.Printf(" (%s)", ended.LastError)
	}
	fmt.Println()
	return nil
}

func defaultSchemaPath() string {
	return filepath.Join("docs", "PersonaRegistry.schema.json")
}

type capabilityReport struct {
	Platform     string          `json:"platform"`
	Build        string          `json:"build"`
	CapturedAtMS int64           `json:"captured_at_ms"`
	Fingerprint  string          `json:"fingerprint"`
	Kinds        map[string]bool `json:"kinds"`
}

func envCredentials() (capability.Credentials, error) {
	return capability.CredentialsFromValues(
		os.Getenv("ORACLE_ELEVENLABS_API_KEY"),
		os.Getenv(livekit.EnvURL),
		os.Getenv(livekit.EnvAPIKey),
		os.Getenv(livekit.EnvAPISecret),
		os.Getenv("ORACLE_TAVUS_API_KEY"),
	)
}

func buildCapabilityReport(platform oracle.Platform, build oracle.BuildType, now time.Time) (capabilityReport, error) {
	creds, err := envCredentials()
	if err != nil {
		return capabilityReport{}, err
	}
	detector, err := capability.NewDetector(platform, build, func() capability.Credentials { return creds })
	if err != nil {
		return capabilityReport{}, err
	}
	snapshot, err := detector.Freeze("provider-availability/cli", now.UnixMilli())
	if err != nil {
		return capabilityReport{}, err
	}
	fingerprint, err := snapshot.Fingerprint()
	if err != nil {
		return capabilityReport{}, err
	}

	kinds := make(map[string]bool, len(snapshot.Kinds))
	for kind, available := range snapshot.Kinds {
		kinds[string(kind)] = available
	}
	return capabilityReport{
		Platform:     string(platform),
		Build:        string(build),
		CapturedAtMS: snapshot.CapturedAtMS,
		Fingerprint:  fingerprint,
		Kinds:        kinds,
	}, nil
}

type personaSummary struct {
	PersonaID        string  `json:"persona_id"`
	Default          bool    `json:"default"`
	VoiceID          string  `json:"voice_id"`
	Stability        float64 `json:"stability"`
	Similarity       float64 `json:"similarity"`
	ReplicaID        string  `json:"replica_id,omitempty"`
	ReplicaAvailable bool    `json:"replica_available"`
}

func buildPersonaReport(registry persona.Registry) []personaSummary {
	ids := registry.PersonaIDs()
	out := make([]personaSummary, 0, len(ids))
	for _, id := range ids {
		voice, _ := registry.VoiceProfile(id)
		summary := personaSummary{
			PersonaID:  id,
			Default:    id == registry.DefaultPersona(),
			VoiceID:    voice.VoiceID,
			Stability:  voice.Stability,
			Similarity: voice.Similarity,
		}
		if replica, ok := registry.ReplicaMapping(id); ok {
			summary.ReplicaID = replica.ReplicaID
			summary.ReplicaAvailable = replica.Available
		}
		out = append(out, summary)
	}
	return out
}

type narrationPlan struct {
	PersonaID    string  `json:"persona_id"`
	KnownPersona bool    `json:"known_persona"`
	Text         string  `json:"text"`
	VoiceID      string  `json:"voice_id"`
	Rate         float64 `json:"rate"`
	Pitch        float64 `json:"pitch"`
	Volume       float64 `json:"volume"`
	SSMLPreview  string  `json:"ssml_preview"`
}

func buildNarrationPlan(registry persona.Registry, personaID string, text string) (narrationPlan, error) {
	if text == "" {
		return narrationPlan{}, fmt.Errorf("narration text is empty")
	}
	profile, known := registry.VoiceProfile(personaID)
	params := narration.DeriveEngineParams(profile)
	if err := params.Validate(); err != nil {
		return narrationPlan{}, err
	}
	return narrationPlan{
		PersonaID:    personaID,
		KnownPersona: known,
		Text:         text,
		VoiceID:      profile.VoiceID,
		Rate:         params.Rate,
		Pitch:        params.Pitch,
		Volume:       params.Volume,
		SSMLPreview:  polly.BuildSSML(text, params),
	}, nil
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		os.Exit(1)
	}
}

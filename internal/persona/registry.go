package persona

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tiger/oracle-voice-sessions/api/oracle"
)

// DefaultPersonaID is the fallback persona used for unknown lookups.
const DefaultPersonaID = "cosmic-sage"

// Entry binds one persona's authored voice profile and replica mapping.
type Entry struct {
	Voice   oracle.VoiceProfile    `json:"voice"`
	Replica *oracle.ReplicaMapping `json:"replica,omitempty"`
}

// Registry is an immutable persona table with fallback-to-default lookups.
type Registry struct {
	defaultID string
	entries   map[string]Entry
}

// registryFile is the on-disk override format.
type registryFile struct {
	DefaultPersona string           `json:"default_persona"`
	Personas       map[string]Entry `json:"personas"`
}

// Builtin returns the compiled-in persona table.
func Builtin() Registry {
	entries := map[string]Entry{
		"cosmic-sage": {
			Voice: oracle.VoiceProfile{VoiceID: "pNInz6obpgDQGcFmaJgB", Stability: 0.55, Similarity: 0.8, Style: 0.3, SpeakerBoost: true},
			Replica: &oracle.ReplicaMapping{
				ReplicaID:   "r79e1c033f",
				DisplayName: "The Cosmic Sage",
				Description: "Elder stargazer reading celestial currents.",
				Available:   true,
			},
		},
		"mystical-librarian": {
			Voice: oracle.VoiceProfile{VoiceID: "EXAVITQu4vr4xnSDxMaL", Stability: 0.65, Similarity: 0.75, Style: 0.2},
			Replica: &oracle.ReplicaMapping{
				ReplicaID:   "r4d9b2c71a",
				DisplayName: "The Mystical Librarian",
				Description: "Keeper of the infinite archive.",
				Available:   true,
			},
		},
		"crystal-prophet": {
			Voice: oracle.VoiceProfile{VoiceID: "ThT5KcBeYPX3keUQqHPh", Stability: 0.7, Similarity: 0.85, Style: 0.4, SpeakerBoost: true},
			Replica: &oracle.ReplicaMapping{
				ReplicaID:   "rb67ff1e20",
				DisplayName: "The Crystal Prophet",
				Description: "Sees tomorrow refracted through living crystal.",
				Available:   true,
			},
		},
		"shadow-weaver": {
			Voice: oracle.VoiceProfile{VoiceID: "onwK4e9ZLuTAKqWW03F9", Stability: 0.45, Similarity: 0.9, Style: 0.6},
			Replica: &oracle.ReplicaMapping{
				ReplicaID:   "rc01aa8d45",
				DisplayName: "The Shadow Weaver",
				Description: "Retired while the replica is re-trained.",
				Available:   false,
			},
		},
	}
	registry, err := New(DefaultPersonaID, entries)
	if err != nil {
		// Builtin data is authored alongside this function; a failure here is
		// a programming error, not runtime input.
		panic(fmt.Sprintf("builtin persona registry invalid: %v", err))
	}
	return registry
}

// New constructs a validated immutable registry.
func New(defaultID string, entries map[string]Entry) (Registry, error) {
	if defaultID == "" {
		return Registry{}, fmt.Errorf("default persona id is required")
	}
	if len(entries) == 0 {
		return Registry{}, fmt.Errorf("at least one persona entry is required")
	}
	cloned := make(map[string]Entry, len(entries))
	for id, entry := range entries {
		if id == "" {
			return Registry{}, fmt.Errorf("persona id cannot be empty")
		}
		if err := entry.Voice.Validate(); err != nil {
			return Registry{}, fmt.Errorf("persona %s voice: %w", id, err)
		}
		if entry.Replica != nil {
			if err := entry.Replica.Validate(); err != nil {
				return Registry{}, fmt.Errorf("persona %s replica: %w", id, err)
			}
			replica := *entry.Replica
			entry.Replica = &replica
		}
		cloned[id] = entry
	}
	if _, ok := cloned[defaultID]; !ok {
		return Registry{}, fmt.Errorf("default persona %q is not present in entries", defaultID)
	}
	return Registry{defaultID: defaultID, entries: cloned}, nil
}

// LoadFile reads an authored persona table, validates it against the JSON
// schema at schemaPath, and returns the resulting registry.
func LoadFile(path string, schemaPath string) (Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Registry{}, fmt.Errorf("read persona registry %s: %w", path, err)
	}
	if err := validateAgainstSchema(schemaPath, raw); err != nil {
		return Registry{}, fmt.Errorf("persona registry %s: %w", path, err)
	}

	var file registryFile
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return Registry{}, fmt.Errorf("decode persona registry %s: %w", path, err)
	}
	if file.DefaultPersona == "" {
		file.DefaultPersona = DefaultPersonaID
	}
	return New(file.DefaultPersona, file.Personas)
}

// DefaultPersona returns the fallback persona id.
func (r Registry) DefaultPersona() string {
	return r.defaultID
}

// PersonaIDs returns all known persona ids in deterministic order.
func (r Registry) PersonaIDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// VoiceProfile returns the persona's voice profile, falling back to the
// default persona's profile for unknown ids. The second result reports
// whether the persona itself was known.
func (r Registry) VoiceProfile(personaID string) (oracle.VoiceProfile, bool) {
	if entry, ok := r.entries[personaID]; ok {
		return entry.Voice, true
	}
	return r.entries[r.defaultID].Voice, false
}

// ReplicaMapping returns the persona's replica mapping, falling back to the
// default persona's mapping. Personas without an authored replica resolve to
// an empty mapping with ok=false on the mapping presence.
func (r Registry) ReplicaMapping(personaID string) (oracle.ReplicaMapping, bool) {
	entry, known := r.entries[personaID]
	if !known {
		entry = r.entries[r.defaultID]
	}
	if entry.Replica == nil {
		return oracle.ReplicaMapping{}, false
	}
	return *entry.Replica, true
}

func validateAgainstSchema(schemaPath string, raw []byte) error {
	absSchemaPath, err := filepath.Abs(schemaPath)
	if err != nil {
		return fmt.Errorf("resolve schema path: %w", err)
	}
	if _, err := os.Stat(absSchemaPath); err != nil {
		return fmt.Errorf("schema file unavailable at %s: %w", absSchemaPath, err)
	}

	compiler := jsonschema.NewCompiler()
	f, err := os.Open(absSchemaPath)
	if err != nil {
		return fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()
	if err := compiler.AddResource(absSchemaPath, f); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(absSchemaPath)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse registry json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

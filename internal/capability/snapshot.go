package capability

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
)

const defaultSnapshotRef = "provider-availability/default"

// Snapshot freezes provider availability answers at one instant so callers can
// correlate later session behavior with what the detector reported.
type Snapshot struct {
	SnapshotRef  string
	CapturedAtMS int64
	Kinds        map[oracle.ProviderKind]bool
}

// FreezeInput captures availability state before freezing.
type FreezeInput struct {
	SnapshotRef  string
	CapturedAtMS int64
	Kinds        map[oracle.ProviderKind]bool
}

// FreezeSnapshot creates a validated immutable availability snapshot.
func FreezeSnapshot(in FreezeInput) (Snapshot, error) {
	snapshot := Snapshot{
		SnapshotRef:  in.SnapshotRef,
		CapturedAtMS: in.CapturedAtMS,
		Kinds:        cloneKinds(in.Kinds),
	}
	if snapshot.SnapshotRef == "" {
		snapshot.SnapshotRef = defaultSnapshotRef
	}
	if err := snapshot.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// Validate enforces snapshot shape invariants.
func (s Snapshot) Validate() error {
	if s.SnapshotRef == "" {
		return fmt.Errorf("snapshot_ref is required")
	}
	if s.CapturedAtMS < 0 {
		return fmt.Errorf("captured_at_ms must be >=0")
	}
	for kind := range s.Kinds {
		if err := kind.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Available returns availability for a kind and whether it is known.
func (s Snapshot) Available(kind oracle.ProviderKind) (bool, bool) {
	answer, ok := s.Kinds[kind]
	return answer, ok
}

// Fingerprint returns a deterministic digest for debug correlation.
func (s Snapshot) Fingerprint() (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	kinds := make([]kindFingerprintEntry, 0, len(s.Kinds))
	for kind, available := range s.Kinds {
		kinds = append(kinds, kindFingerprintEntry{Kind: string(kind), Available: available})
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Kind < kinds[j].Kind })
	payload := struct {
		SnapshotRef  string
		CapturedAtMS int64
		Kinds        []kindFingerprintEntry
	}{
		SnapshotRef:  s.SnapshotRef,
		CapturedAtMS: s.CapturedAtMS,
		Kinds:        kinds,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func cloneKinds(in map[oracle.ProviderKind]bool) map[oracle.ProviderKind]bool {
	if len(in) == 0 {
		return map[oracle.ProviderKind]bool{}
	}
	out := make(map[oracle.ProviderKind]bool, len(in))
	for kind, available := range in {
		out[kind] = available
	}
	return out
}

type kindFingerprintEntry struct {
	Kind      string
	Available bool
}

package videosession

import (
	"testing"
	"time"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
)

func TestReconcilePromotesConnectingOnActive(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	local := oracle.VideoSessionSnapshot{
		SessionID:      "s-1",
		ConversationID: "c-1",
		PersonaID:      "cosmic-sage",
		Status:         oracle.VideoConnecting,
		StartedAt:      now.Add(-10 * time.Second),
	}

	got := Reconcile(local, oracle.ConversationActive, now)
	if got.Status != oracle.VideoConnected {
		t.Fatalf("status = %s, want %s", got.Status, oracle.VideoConnected)
	}
	if !got.EndedAt.IsZero() {
		t.Fatalf("active reconcile must not stamp an end time, got %v", got.EndedAt)
	}
}

func TestReconcileActiveKeepsConnected(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	local := oracle.VideoSessionSnapshot{SessionID: "s-1", Status: oracle.VideoConnected}

	got := Reconcile(local, oracle.ConversationActive, now)
	if got.Status != oracle.VideoConnected {
		t.Fatalf("status = %s, want connected unchanged", got.Status)
	}
}

func TestReconcileEndedTerminatesBothActiveStates(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	for _, status := range []oracle.VideoSessionStatus{oracle.VideoConnecting, oracle.VideoConnected} {
		local := oracle.VideoSessionSnapshot{SessionID: "s-1", Status: status}
		got := Reconcile(local, oracle.ConversationEnded, now)
		if got.Status != oracle.VideoEnded {
			t.Fatalf("from %s: status = %s, want %s", status, got.Status, oracle.VideoEnded)
		}
		if !got.EndedAt.Equal(now) {
			t.Fatalf("from %s: EndedAt = %v, want %v", status, got.EndedAt, now)
		}
	}
}

func TestReconcileFailedRecordsError(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	local := oracle.VideoSessionSnapshot{SessionID: "s-1", Status: oracle.VideoConnected}

	got := Reconcile(local, oracle.ConversationFailed, now)
	if got.Status != oracle.VideoError {
		t.Fatalf("status = %s, want %s", got.Status, oracle.VideoError)
	}
	if got.LastError == "" {
		t.Fatalf("failed reconcile must record a last error")
	}
	if !got.EndedAt.Equal(now) {
		t.Fatalf("EndedAt = %v, want %v", got.EndedAt, now)
	}
}

func TestReconcileTerminalLocalIsImmutable(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	endedAt := now.Add(-time.Minute)
	for _, status := range []oracle.VideoSessionStatus{oracle.VideoEnded, oracle.VideoError} {
		local := oracle.VideoSessionSnapshot{SessionID: "s-1", Status: status, EndedAt: endedAt}
		for _, remote := range []oracle.ConversationStatus{oracle.ConversationActive, oracle.ConversationEnded, oracle.ConversationFailed} {
			got := Reconcile(local, remote, now)
			if got.Status != status {
				t.Fatalf("terminal %s with remote %s: status = %s, want unchanged", status, remote, got.Status)
			}
			if !got.EndedAt.Equal(endedAt) {
				t.Fatalf("terminal %s with remote %s: EndedAt changed to %v", status, remote, got.EndedAt)
			}
		}
	}
}

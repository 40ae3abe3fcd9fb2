package videosession

import (
	"time"

	"github.com/tiger/oracle-voice-sessions/api/oracle"
)

// Reconcile merges an authoritative remote conversation status into a local
// session snapshot. Remote always wins over the local optimistic heuristic:
// active promotes connecting to connected, ended and failed terminate the
// session from any non-terminal state. Terminal local states never move.
func Reconcile(local oracle.VideoSessionSnapshot, remote oracle.ConversationStatus, now time.Time) oracle.VideoSessionSnapshot {
	if local.Status.Terminal() {
		return local
	}
	switch remote {
	case oracle.ConversationActive:
		if local.Status == oracle.VideoConnecting {
			local.Status = oracle.VideoConnected
		}
	case oracle.ConversationEnded:
		local.Status = oracle.VideoEnded
		local.EndedAt = now
	case oracle.ConversationFailed:
		local.Status = oracle.VideoError
		local.LastError = "remote conversation reported failed"
		local.EndedAt = now
	}
	return local
}

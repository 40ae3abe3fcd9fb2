package narration

import "github.com/tiger/oracle-voice-sessions/api/oracle"

// DeriveEngineParams remaps authored remote-voice parameters onto platform
// engine rate/pitch so persona differentiation survives the fallback path.
// Rate decreases with stability over [0.7,1.2]; pitch increases with
// similarity over [0.9,1.1]. Volume is always full scale.
func DeriveEngineParams(profile oracle.VoiceProfile) oracle.EngineParams {
	return oracle.EngineParams{
		Rate:   1.2 - 0.5*clampUnit(profile.Stability),
		Pitch:  0.9 + 0.2*clampUnit(profile.Similarity),
		Volume: 1.0,
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

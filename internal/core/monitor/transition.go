package monitor

import (
	"mullvad_monitor/internal/shared/globalstate"
	"mullvad_monitor/internal/shared/types"
)

// Detect compares a freshly probed status with the previous observation.
// Only the connectivity flag participates: country or server churn while the
// flag holds steady is not a transition.
func Detect(previous globalstate.Observation, current types.Status) types.Transition {
	t := types.Transition{Current: current.Connected, Changed: true}

	prev, ok := previous.Get()
	if !ok {
		return t
	}
	prevConnected := prev.Connected
	t.Previous = &prevConnected
	t.Changed = prevConnected != current.Connected
	return t
}

package types

// IndicatorState is the iconographic state shown by the tray and window icons.
type IndicatorState int

const (
	IndicatorUnknown IndicatorState = iota // Default value
	IndicatorConnected
	IndicatorDisconnected
)

// IndicatorFor maps the binary connectivity flag onto an indicator state.
func IndicatorFor(connected bool) IndicatorState {
	if connected {
		return IndicatorConnected
	}
	return IndicatorDisconnected
}

func (s IndicatorState) String() string {
	switch s {
	case IndicatorConnected:
		return "connected"
	case IndicatorDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// IconName returns the icon file used for this state.
func (s IndicatorState) IconName() string {
	return "tray-" + s.String() + ".png"
}

// Transition classifies a probe result relative to the previously stored one.
// It is computed per cycle and discarded after dispatch.
type Transition struct {
	Previous *bool // nil when nothing had been observed before
	Current  bool
	Changed  bool
}

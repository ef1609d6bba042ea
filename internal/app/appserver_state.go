package app

import (
	"context"

	"mullvad_monitor/internal/shared/types"
)

// CurrentStatus returns the last committed status or monitor.ErrNotAvailable.
func (s *AppServer) CurrentStatus() (types.Status, error) {
	return s.monitor.CurrentStatus()
}

// CheckNow runs an out-of-band probe cycle and returns its status.
func (s *AppServer) CheckNow(ctx context.Context) (types.Status, error) {
	res := s.monitor.TriggerCheck(ctx)
	if res.Err != nil {
		return types.Status{}, res.Err
	}
	return res.Status, nil
}

// MenuLabels returns the tray menu labels for the active locale.
func (s *AppServer) MenuLabels() (showStatus, quit string) {
	return s.dispatcher.MenuLabels()
}

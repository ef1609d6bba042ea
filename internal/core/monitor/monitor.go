package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"mullvad_monitor/internal/shared/globalstate"
	"mullvad_monitor/internal/shared/logger"
	"mullvad_monitor/internal/shared/metrics"
	"mullvad_monitor/internal/shared/types"
)

// ErrNotAvailable is returned by CurrentStatus before the first successful probe.
var ErrNotAvailable = errors.New("status not available yet")

// Dispatcher receives every committed status together with its transition.
type Dispatcher interface {
	Dispatch(ctx context.Context, status types.Status, transition types.Transition)
}

// Config is the runtime config the monitor needs.
type Config struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
	// ProbeImmediately runs the first cycle at start instead of after one interval.
	ProbeImmediately bool
}

// CycleResult describes the outcome of one probe → detect → commit → dispatch cycle.
type CycleResult struct {
	Status     types.Status
	Transition types.Transition
	Err        error // non-nil means the probe failed and nothing was committed
}

// Monitor 是一个由时钟驱动的轮询器：每个周期探测一次，提交状态，然后分发。
// 周期之间不会重叠，失败不会终止循环。
type Monitor struct {
	cfg        Config
	probe      types.StatusProbe
	cell       *globalstate.StatusCell
	dispatcher Dispatcher

	cycleMu sync.Mutex // serializes cycles between the loop and TriggerCheck

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a monitor. The cell is owned by the caller so other components can share it.
func New(cfg Config, probe types.StatusProbe, cell *globalstate.StatusCell, dispatcher Dispatcher) (*Monitor, error) {
	if probe == nil {
		return nil, errors.New("monitor: probe required")
	}
	if dispatcher == nil {
		return nil, errors.New("monitor: dispatcher required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("monitor: interval must be > 0")
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = cfg.Interval
	}
	if cell == nil {
		cell = globalstate.NewStatusCell()
	}
	return &Monitor{
		cfg:        cfg,
		probe:      probe,
		cell:       cell,
		dispatcher: dispatcher,
		stopCh:     make(chan struct{}),
	}, nil
}

// Start runs the loop in the background until ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.Run(ctx)
	}()
}

// Run is the ticker loop. It returns ctx.Err() on cancellation and nil after Stop.
func (m *Monitor) Run(ctx context.Context) error {
	l := logger.WithComponent("Monitor")
	l.Info().Dur("interval", m.cfg.Interval).Msg("Status monitor started.")

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	if m.cfg.ProbeImmediately && !m.stopped() {
		m.RunCycle(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("Context cancelled, status monitor exiting.")
			return ctx.Err()
		case <-m.stopCh:
			l.Info().Msg("Stop signal received, status monitor exiting.")
			return nil
		case <-ticker.C:
		}

		// The stop signal wins over a tick that fired at the same time.
		if m.stopped() {
			return nil
		}
		m.RunCycle(ctx)
	}
}

// Stop signals the loop to exit before its next cycle. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// Wait blocks until a loop launched by Start has returned.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

func (m *Monitor) stopped() bool {
	select {
	case <-m.stopCh:
		return true
	default:
		return false
	}
}

// RunCycle performs exactly one cycle.
// On probe failure nothing is written and nothing is dispatched.
func (m *Monitor) RunCycle(ctx context.Context) CycleResult {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	l := logger.WithComponent("Monitor")

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	start := time.Now()
	status, err := m.probe.Probe(probeCtx)
	cancel()
	metrics.ObserveProbe(time.Since(start).Seconds(), err)

	if err != nil {
		l.Warn().Err(err).Msg("Failed to check VPN status.")
		return CycleResult{Err: err}
	}

	previous := m.cell.Write(status)
	transition := Detect(previous, status)

	metrics.SetConnected(status.Connected)
	if transition.Changed {
		metrics.ObserveTransition(status.Connected)
		l.Info().Bool("connected", status.Connected).Str("country", status.Country).Msg("VPN status changed.")
	}

	m.dispatcher.Dispatch(ctx, status, transition)

	return CycleResult{Status: status, Transition: transition}
}

// TriggerCheck runs an out-of-band cycle, serialized with the loop.
func (m *Monitor) TriggerCheck(ctx context.Context) CycleResult {
	return m.RunCycle(ctx)
}

// CurrentStatus returns the latest committed status, or ErrNotAvailable before the first success.
func (m *Monitor) CurrentStatus() (types.Status, error) {
	s, ok := m.cell.Read().Get()
	if !ok {
		return types.Status{}, ErrNotAvailable
	}
	return s, nil
}

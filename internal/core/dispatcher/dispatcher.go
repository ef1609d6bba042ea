package dispatcher

import (
	"context"
	"sync"

	"mullvad_monitor/internal/i18n"
	"mullvad_monitor/internal/shared/logger"
	"mullvad_monitor/internal/shared/metrics"
	"mullvad_monitor/internal/shared/types"
)

// Resolver is the text lookup the dispatcher renders copy with.
type Resolver interface {
	Resolve(key string) string
	ResolveWithSubstitution(key, value string) string
}

// NotificationGate lets runtime settings mute notifications without touching the indicators.
type NotificationGate interface {
	NotificationsEnabled() bool
}

// Dispatcher 将每个周期的结果扇出到各个展示面：
// 指示器和事件每个周期都会更新，通知只在状态变化时触发。
type Dispatcher struct {
	resolver    Resolver
	placeholder string

	mu         sync.RWMutex // 保护 sink 列表
	indicators []types.IndicatorSink
	notifiers  []types.NotificationSink
	events     []types.EventSink
	gate       NotificationGate
}

// New creates a dispatcher. placeholder replaces the country in the
// connected notification when the probe did not report one.
func New(resolver Resolver, placeholder string) *Dispatcher {
	return &Dispatcher{
		resolver:    resolver,
		placeholder: placeholder,
	}
}

// AddIndicator registers an indicator surface (tray icon, window icon, ...).
func (d *Dispatcher) AddIndicator(sink types.IndicatorSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.indicators = append(d.indicators, sink)
}

// AddNotifier registers a notification surface.
func (d *Dispatcher) AddNotifier(sink types.NotificationSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers = append(d.notifiers, sink)
}

// AddEventSink registers an event consumer.
func (d *Dispatcher) AddEventSink(sink types.EventSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, sink)
}

// SetNotificationGate installs a runtime mute switch.
func (d *Dispatcher) SetNotificationGate(gate NotificationGate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gate = gate
}

// Initialize puts every indicator into the unknown state with the initial tooltip.
func (d *Dispatcher) Initialize() {
	d.applyIndicator(types.IndicatorUnknown, d.resolver.Resolve(i18n.KeyTrayInitialTooltip))
}

// MenuLabels resolves the tray menu entries for the active locale.
func (d *Dispatcher) MenuLabels() (showStatus, quit string) {
	return d.resolver.Resolve(i18n.KeyTrayShowStatus), d.resolver.Resolve(i18n.KeyTrayQuit)
}

// Tooltip returns the indicator tooltip for a connectivity flag.
func (d *Dispatcher) Tooltip(connected bool) string {
	if connected {
		return d.resolver.Resolve(i18n.KeyTrayConnected)
	}
	return d.resolver.Resolve(i18n.KeyTrayDisconnected)
}

// RenderNotification returns the localized title and body for a status.
func (d *Dispatcher) RenderNotification(status types.Status) (title, body string) {
	title = d.resolver.Resolve(i18n.KeyNotificationTitle)
	if !status.Connected {
		return title, d.resolver.Resolve(i18n.KeyNotificationDisconnected)
	}
	country := status.Country
	if country == "" {
		country = d.placeholder
	}
	return title, d.resolver.ResolveWithSubstitution(i18n.KeyNotificationConnected, country)
}

// Dispatch fans one committed status out to every surface.
// Sink failures are logged and never reach the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, status types.Status, transition types.Transition) {
	d.applyIndicator(types.IndicatorFor(status.Connected), d.Tooltip(status.Connected))

	l := logger.WithComponent("Dispatcher")

	d.mu.RLock()
	events := d.events
	notifiers := d.notifiers
	gate := d.gate
	d.mu.RUnlock()

	for _, sink := range events {
		if err := sink.Emit(types.EventStatusChanged, status); err != nil {
			l.Warn().Err(err).Msg("Failed to emit status event.")
		}
	}

	if !transition.Changed {
		return
	}
	if gate != nil && !gate.NotificationsEnabled() {
		l.Debug().Msg("Notifications disabled, skipping.")
		return
	}

	title, body := d.RenderNotification(status)
	for _, sink := range notifiers {
		err := sink.Notify(ctx, title, body)
		metrics.ObserveNotification(err)
		if err != nil {
			l.Warn().Err(err).Msg("Failed to deliver notification.")
		}
	}
}

func (d *Dispatcher) applyIndicator(state types.IndicatorState, tooltip string) {
	d.mu.RLock()
	indicators := d.indicators
	d.mu.RUnlock()

	for _, sink := range indicators {
		if err := sink.SetIndicator(state, tooltip); err != nil {
			logger.Warn().Err(err).Str("state", state.String()).Msg("Failed to update indicator.")
		}
	}
}

package types

import (
	"context"
	"time"
)

// Status 是一次成功探测得到的连接状态快照。
// 构造后不再修改：每次探测都会产生一个新的值。
type Status struct {
	Connected  bool      `json:"connected"`
	IP         string    `json:"ip,omitempty"`
	Country    string    `json:"country,omitempty"`
	City       string    `json:"city,omitempty"`
	Hostname   string    `json:"hostname,omitempty"`
	ServerType string    `json:"server_type,omitempty"`
	ProbedAt   time.Time `json:"probed_at"`
}

// StatusProbe performs a single connectivity check against the external service.
type StatusProbe interface {
	Probe(ctx context.Context) (Status, error)
}

// IndicatorSink 接收托盘/窗口图标的状态与提示文本。
type IndicatorSink interface {
	SetIndicator(state IndicatorState, tooltip string) error
}

// NotificationSink delivers interruption-style notifications (desktop, push).
type NotificationSink interface {
	Notify(ctx context.Context, title, body string) error
}

// EventSink publishes a named event carrying the full status to UI subscribers.
type EventSink interface {
	Emit(name string, status Status) error
}

// EventStatusChanged is the event name emitted after every completed cycle.
const EventStatusChanged = "vpn-status-changed"

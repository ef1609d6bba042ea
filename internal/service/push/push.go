// Package push delivers status notifications to a mobile device through
// Firebase Cloud Messaging.
package push

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"mullvad_monitor/internal/shared/logger"
	"mullvad_monitor/internal/shared/types"
)

// ErrNotConfigured is returned when the [push] section lacks credentials or a device token.
var ErrNotConfigured = errors.New("push: not configured")

// Sender is the part of *messaging.Client the notifier needs.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier implements types.NotificationSink for a single device token.
type FCMNotifier struct {
	sender Sender
	token  string
}

var _ types.NotificationSink = (*FCMNotifier)(nil)

// NewFCM builds a notifier from the [push] config section.
func NewFCM(ctx context.Context, conf types.PushConf) (*FCMNotifier, error) {
	if strings.TrimSpace(conf.CredentialsFile) == "" || strings.TrimSpace(conf.DeviceToken) == "" {
		return nil, ErrNotConfigured
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(conf.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return NewWithSender(client, conf.DeviceToken)
}

// NewWithSender builds a notifier over an existing sender.
func NewWithSender(sender Sender, token string) (*FCMNotifier, error) {
	if sender == nil || strings.TrimSpace(token) == "" {
		return nil, ErrNotConfigured
	}
	return &FCMNotifier{sender: sender, token: token}, nil
}

// Notify sends one notification message to the configured device.
func (n *FCMNotifier) Notify(ctx context.Context, title, body string) error {
	msg := &messaging.Message{
		Token: n.token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{"type": types.EventStatusChanged},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	id, err := n.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	l := logger.WithComponent("Push")
	l.Debug().Str("message_id", id).Msg("Push notification sent.")
	return nil
}

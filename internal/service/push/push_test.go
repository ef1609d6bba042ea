package push

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mullvad_monitor/internal/shared/types"
)

type fakeSender struct {
	messages []*messaging.Message
	err      error
}

func (f *fakeSender) Send(ctx context.Context, message *messaging.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.messages = append(f.messages, message)
	return "projects/test/messages/1", nil
}

func TestNewFCM_NotConfigured(t *testing.T) {
	_, err := NewFCM(context.Background(), types.PushConf{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewFCM(context.Background(), types.PushConf{CredentialsFile: "sa.json"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewWithSender_RequiresToken(t *testing.T) {
	_, err := NewWithSender(&fakeSender{}, " ")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNotify_BuildsMessage(t *testing.T) {
	sender := &fakeSender{}
	n, err := NewWithSender(sender, "device-token")
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), "Mullvad VPN Status", "Connected to Sweden"))

	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, "device-token", msg.Token)
	assert.Equal(t, "Mullvad VPN Status", msg.Notification.Title)
	assert.Equal(t, "Connected to Sweden", msg.Notification.Body)
	assert.Equal(t, "high", msg.Android.Priority)
}

func TestNotify_WrapsSendError(t *testing.T) {
	sendErr := errors.New("unavailable")
	n, err := NewWithSender(&fakeSender{err: sendErr}, "device-token")
	require.NoError(t, err)

	err = n.Notify(context.Background(), "t", "b")
	assert.ErrorIs(t, err, sendErr)
}

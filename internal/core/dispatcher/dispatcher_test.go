package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mullvad_monitor/internal/i18n"
	"mullvad_monitor/internal/shared/types"
)

// --- fakes ---

type indicatorCall struct {
	state   types.IndicatorState
	tooltip string
}

type fakeIndicator struct {
	calls []indicatorCall
	err   error
}

func (f *fakeIndicator) SetIndicator(state types.IndicatorState, tooltip string) error {
	f.calls = append(f.calls, indicatorCall{state, tooltip})
	return f.err
}

type notification struct{ title, body string }

type fakeNotifier struct {
	sent []notification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, title, body string) error {
	f.sent = append(f.sent, notification{title, body})
	return f.err
}

type fakeEvents struct {
	names    []string
	statuses []types.Status
}

func (f *fakeEvents) Emit(name string, status types.Status) error {
	f.names = append(f.names, name)
	f.statuses = append(f.statuses, status)
	return nil
}

type fakeGate struct{ enabled bool }

func (g fakeGate) NotificationsEnabled() bool { return g.enabled }

func setupTestDispatcher(lang string) (*Dispatcher, *fakeIndicator, *fakeIndicator, *fakeNotifier, *fakeEvents) {
	resolver := i18n.NewResolver(i18n.DefaultTable(), i18n.NewLocale(lang))
	d := New(resolver, "Mullvad")
	tray, window := &fakeIndicator{}, &fakeIndicator{}
	notifier, events := &fakeNotifier{}, &fakeEvents{}
	d.AddIndicator(tray)
	d.AddIndicator(window)
	d.AddNotifier(notifier)
	d.AddEventSink(events)
	return d, tray, window, notifier, events
}

func changed(current bool) types.Transition {
	return types.Transition{Current: current, Changed: true}
}

func unchanged(current bool) types.Transition {
	prev := current
	return types.Transition{Previous: &prev, Current: current}
}

// --- Test Cases ---

func TestDispatch_ChangedConnected_NotifiesWithCountry(t *testing.T) {
	d, tray, window, notifier, events := setupTestDispatcher("en")

	status := types.Status{Connected: true, Country: "Sweden"}
	d.Dispatch(context.Background(), status, changed(true))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "Mullvad VPN Status", notifier.sent[0].title)
	assert.Equal(t, "Connected to Sweden", notifier.sent[0].body)

	for _, ind := range []*fakeIndicator{tray, window} {
		require.Len(t, ind.calls, 1)
		assert.Equal(t, types.IndicatorConnected, ind.calls[0].state)
		assert.Equal(t, "Mullvad VPN: Connected", ind.calls[0].tooltip)
	}

	require.Len(t, events.names, 1)
	assert.Equal(t, types.EventStatusChanged, events.names[0])
	assert.Equal(t, status, events.statuses[0])
}

func TestDispatch_ChangedConnected_NoCountryUsesPlaceholder(t *testing.T) {
	d, _, _, notifier, _ := setupTestDispatcher("en")

	d.Dispatch(context.Background(), types.Status{Connected: true}, changed(true))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "Connected to Mullvad", notifier.sent[0].body)
}

func TestDispatch_ChangedDisconnected(t *testing.T) {
	d, tray, _, notifier, _ := setupTestDispatcher("de")

	d.Dispatch(context.Background(), types.Status{Connected: false, Country: "Sweden"}, changed(false))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "VPN-Verbindung getrennt!", notifier.sent[0].body)
	assert.Equal(t, types.IndicatorDisconnected, tray.calls[0].state)
	assert.Equal(t, "Mullvad VPN: Getrennt", tray.calls[0].tooltip)
}

func TestDispatch_Unchanged_RefreshesIndicatorAndEventOnly(t *testing.T) {
	d, tray, window, notifier, events := setupTestDispatcher("en")

	d.Dispatch(context.Background(), types.Status{Connected: true, Country: "Norway"}, unchanged(true))

	assert.Empty(t, notifier.sent)
	assert.Len(t, tray.calls, 1)
	assert.Len(t, window.calls, 1)
	assert.Len(t, events.names, 1)
}

func TestDispatch_GateMutesNotificationsOnly(t *testing.T) {
	d, tray, _, notifier, events := setupTestDispatcher("en")
	d.SetNotificationGate(fakeGate{enabled: false})

	d.Dispatch(context.Background(), types.Status{Connected: true}, changed(true))

	assert.Empty(t, notifier.sent)
	assert.Len(t, tray.calls, 1)
	assert.Len(t, events.names, 1)
}

func TestDispatch_SinkErrorsAreSwallowed(t *testing.T) {
	d, tray, window, notifier, _ := setupTestDispatcher("en")
	tray.err = errors.New("tray gone")
	notifier.err = errors.New("push failed")

	d.Dispatch(context.Background(), types.Status{Connected: false}, changed(false))

	assert.Len(t, window.calls, 1, "a failing tray must not prevent the window icon update")
	assert.Len(t, notifier.sent, 1)
}

func TestInitialize_SetsUnknownState(t *testing.T) {
	d, tray, window, _, _ := setupTestDispatcher("fr")

	d.Initialize()

	for _, ind := range []*fakeIndicator{tray, window} {
		require.Len(t, ind.calls, 1)
		assert.Equal(t, types.IndicatorUnknown, ind.calls[0].state)
		assert.Equal(t, "Mullvad VPN : Vérification...", ind.calls[0].tooltip)
	}
}

func TestMenuLabels_FollowLocale(t *testing.T) {
	locale := i18n.NewLocale("en")
	d := New(i18n.NewResolver(i18n.DefaultTable(), locale), "Mullvad")

	show, quit := d.MenuLabels()
	assert.Equal(t, "Show Status", show)
	assert.Equal(t, "Quit", quit)

	_, err := locale.Set("es")
	require.NoError(t, err)
	show, quit = d.MenuLabels()
	assert.Equal(t, "Mostrar estado", show)
	assert.Equal(t, "Salir", quit)
}

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mullvad_monitor/internal/core/monitor"
	"mullvad_monitor/internal/shared/settings"
	"mullvad_monitor/internal/shared/types"
)

type fakeController struct {
	mu       sync.Mutex
	status   types.Status
	ready    bool
	checks   int
	checkErr error // context error seen by CheckNow
	language string
}

func (f *fakeController) CurrentStatus() (types.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		return types.Status{}, monitor.ErrNotAvailable
	}
	return f.status, nil
}

func (f *fakeController) CheckNow(ctx context.Context) (types.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	f.checkErr = ctx.Err()
	f.ready = true
	return f.status, nil
}

func (f *fakeController) Language() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.language
}

func (f *fakeController) Languages() []string { return []string{"de", "en", "es", "fr"} }

func (f *fakeController) SetLanguage(code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.language = code
	return "Language set to: " + code, nil
}

func newTestServer(t *testing.T, cfg *types.Config, ctrl MonitorController) (*httptest.Server, *Hub, *settings.SettingsManager) {
	t.Helper()
	sm, err := settings.NewSettingsManager("", "en")
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Close)

	router, err := NewRouter(cfg, sm, ctrl, hub)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, hub, sm
}

func TestStatus_UnavailableBeforeFirstProbe(t *testing.T) {
	srv, _, _ := newTestServer(t, &types.Config{}, &fakeController{})

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", resp.StatusCode)
	}
	var body errorResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Error != "status not available yet" {
		t.Errorf("Unexpected error body: %q", body.Error)
	}
}

func TestCheck_ThenStatus(t *testing.T) {
	ctrl := &fakeController{status: types.Status{Connected: true, Country: "Sweden", Hostname: "se-got-wg-001"}}
	srv, _, _ := newTestServer(t, &types.Config{}, ctrl)

	resp, err := http.Post(srv.URL+"/api/check", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	ctrl.mu.Lock()
	checks := ctrl.checks
	ctrl.mu.Unlock()
	if resp.StatusCode != http.StatusOK || checks != 1 {
		t.Fatalf("Expected a successful check, got %d (checks=%d)", resp.StatusCode, checks)
	}

	resp, err = http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&got)
	if got["connected"] != true || got["country"] != "Sweden" || got["hostname"] != "se-got-wg-001" {
		t.Errorf("Unexpected status payload: %v", got)
	}
}

func TestLanguage_SetAndGet(t *testing.T) {
	ctrl := &fakeController{language: "en"}
	srv, _, _ := newTestServer(t, &types.Config{}, ctrl)

	resp, err := http.Post(srv.URL+"/api/language", "application/json", strings.NewReader(`{"language":"de"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body languageResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Message != "Language set to: de" || body.Language != "de" {
		t.Errorf("Unexpected language response: %+v", body)
	}
}

func TestSettings_UnknownModule(t *testing.T) {
	srv, _, _ := newTestServer(t, &types.Config{}, &fakeController{})

	resp, err := http.Post(srv.URL+"/api/settings/routing", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestSettings_DisableNotifications(t *testing.T) {
	srv, _, sm := newTestServer(t, &types.Config{}, &fakeController{})

	resp, err := http.Post(srv.URL+"/api/settings/notifications", "application/json", strings.NewReader(`{"enabled":false}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if sm.NotificationsEnabled() {
		t.Error("Expected notifications to be disabled")
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := &types.Config{LocalConf: types.LocalConf{WebUser: "admin", WebPassword: "secret"}}
	srv, _, _ := newTestServer(t, cfg, &fakeController{language: "en"})

	resp, err := http.Get(srv.URL + "/api/language")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/language", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with credentials, got %d", resp.StatusCode)
	}

	// status stays public
	resp, err = http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		t.Error("Expected /api/status to be public")
	}
}

func TestHub_BroadcastsAndReplaysSnapshots(t *testing.T) {
	srv, hub, _ := newTestServer(t, &types.Config{}, &fakeController{})

	// Published before any client connects: replayed on connect.
	if err := hub.Indicator("tray").SetIndicator(types.IndicatorConnected, "Mullvad VPN: Connected"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(hub.broadcast) == 0 })

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := readMessage(t, conn)
	if msg.Type != MessageIndicator || msg.ID == "" {
		t.Fatalf("Expected replayed indicator message, got %+v", msg)
	}
	data := msg.Data.(map[string]interface{})
	if data["surface"] != "tray" || data["state"] != "connected" || data["icon"] != "tray-connected.png" {
		t.Errorf("Unexpected indicator payload: %v", data)
	}

	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	if err := hub.Emit(types.EventStatusChanged, types.Status{Connected: true, Country: "Sweden"}); err != nil {
		t.Fatal(err)
	}
	msg = readMessage(t, conn)
	if msg.Type != types.EventStatusChanged {
		t.Fatalf("Expected status event, got %+v", msg)
	}
	if msg.Data.(map[string]interface{})["country"] != "Sweden" {
		t.Errorf("Unexpected event payload: %v", msg.Data)
	}

	if err := hub.Notify(context.Background(), "Mullvad VPN Status", "Connected to Sweden"); err != nil {
		t.Fatal(err)
	}
	msg = readMessage(t, conn)
	if msg.Type != MessageNotification || msg.Data.(map[string]interface{})["body"] != "Connected to Sweden" {
		t.Errorf("Unexpected notification: %+v", msg)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) WebSocketMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WebSocketMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSettings_RejectsBlankLanguage(t *testing.T) {
	srv, _, sm := newTestServer(t, &types.Config{}, &fakeController{})

	resp, err := http.Post(srv.URL+"/api/settings/general", "application/json", strings.NewReader(`{"language":"   "}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
	if got := sm.Get().General.Language; got != "en" {
		t.Errorf("Expected stored language to stay 'en', got %q", got)
	}
}

func TestCheck_SurvivesClientDisconnect(t *testing.T) {
	ctrl := &fakeController{status: types.Status{Connected: true}}
	sm, _ := settings.NewSettingsManager("", "en")
	handler := NewHandler(&types.Config{}, sm, ctrl)

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/check", nil).WithContext(reqCtx)
	rec := httptest.NewRecorder()
	handler.HandleCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ctrl.checkErr != nil {
		t.Errorf("Expected the check context to outlive the request, got %v", ctrl.checkErr)
	}
}

func TestHub_DropsWhenBroadcastFull(t *testing.T) {
	hub := NewHub() // Run not started, nothing drains the channel

	for i := 0; i < cap(hub.broadcast)+5; i++ {
		if err := hub.Emit(types.EventStatusChanged, types.Status{Connected: i%2 == 0}); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	if len(hub.broadcast) != cap(hub.broadcast) {
		t.Errorf("Expected a full channel, got %d/%d", len(hub.broadcast), cap(hub.broadcast))
	}
	if len(hub.snapshotList()) != 1 {
		t.Errorf("Expected one snapshot for the event, got %d", len(hub.snapshotList()))
	}
}

func TestShutdownServer(t *testing.T) {
	ShutdownServer(nil, time.Second)

	srv := &http.Server{Handler: http.NotFoundHandler()}
	ln := httptest.NewUnstartedServer(nil).Listener
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	ShutdownServer(srv, time.Second)
	select {
	case err := <-done:
		if err != http.ErrServerClosed {
			t.Errorf("Expected ErrServerClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
}

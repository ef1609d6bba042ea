package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"mullvad_monitor/internal/core/monitor"
	"mullvad_monitor/internal/shared/logger"
	"mullvad_monitor/internal/shared/settings"
	"mullvad_monitor/internal/shared/types"
)

// MonitorController defines the interface that the web handler uses to interact with the AppServer.
// This decouples the web package from the app package.
type MonitorController interface {
	CurrentStatus() (types.Status, error)
	CheckNow(ctx context.Context) (types.Status, error)
	Language() string
	Languages() []string
	SetLanguage(code string) (string, error)
}

type Handler struct {
	settingsManager *settings.SettingsManager
	controller      MonitorController
	checkTimeout    time.Duration
}

func NewHandler(
	cfg *types.Config,
	settingsManager *settings.SettingsManager,
	controller MonitorController,
) *Handler {
	timeout := time.Duration(cfg.MonitorConf.ProbeTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{
		settingsManager: settingsManager,
		controller:      controller,
		checkTimeout:    timeout,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeStatusError(w http.ResponseWriter, err error) {
	if errors.Is(err, monitor.ErrNotAvailable) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
}

// HandleStatus 处理 GET /api/status 请求，返回最近一次成功探测的状态。
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status, err := h.controller.CurrentStatus()
	if err != nil {
		writeStatusError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleCheck 处理 POST /api/check 请求，立即执行一次额外的探测。
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logger.Info().Msg("[Handler] Received request to check VPN status now.")

	// 客户端断开不应取消本次周期触发的通知
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.checkTimeout+time.Second)
	defer cancel()
	status, err := h.controller.CheckNow(ctx)
	if err != nil {
		writeStatusError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type languageResponse struct {
	Language  string   `json:"language"`
	Available []string `json:"available"`
	Message   string   `json:"message,omitempty"`
}

// HandleLanguage 处理 GET/POST /api/language 请求
func (h *Handler) HandleLanguage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, languageResponse{
			Language:  h.controller.Language(),
			Available: h.controller.Languages(),
		})
	case http.MethodPost:
		var req struct {
			Language string `json:"language"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
		msg, err := h.controller.SetLanguage(req.Language)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, languageResponse{
			Language:  h.controller.Language(),
			Available: h.controller.Languages(),
			Message:   msg,
		})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGetSettings 处理 GET /api/settings 请求
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.settingsManager.Get())
}

// HandleUpdateSettings 处理 POST /api/settings/{module} 请求
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	moduleKey := strings.TrimPrefix(r.URL.Path, "/api/settings/")
	if moduleKey == "" {
		http.Error(w, "Module key is missing in URL path", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}

	if err := h.settingsManager.Update(moduleKey, body); err != nil {
		switch {
		case errors.Is(err, settings.ErrUnknownModule):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, settings.ErrInvalidPayload):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "Settings updated successfully"}`))
}

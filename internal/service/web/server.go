package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mullvad_monitor/internal/shared/logger"
	"mullvad_monitor/internal/shared/settings"
	"mullvad_monitor/internal/shared/types"
)

//go:embed all:static
var staticFiles embed.FS

// loggingListener logs accepted connections at debug level.
type loggingListener struct {
	net.Listener
}

func (l loggingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err == nil {
		logger.Debug().Msgf("[WebServer] Connection accepted from: %s", conn.RemoteAddr())
	}
	return conn, err
}

// basicAuthMiddleware 检查 web_user 和 web_password 是否已配置。
// 如果配置了，它将强制执行 HTTP Basic Authentication。
func basicAuthMiddleware(next http.Handler, user, pass string) http.Handler {
	// 如果用户名或密码未设置，则不启用认证，直接返回原始处理器
	if user == "" || pass == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized.\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter builds the HTTP routes of the web UI.
func NewRouter(
	cfg *types.Config,
	settingsManager *settings.SettingsManager,
	controller MonitorController,
	hub *Hub,
) (http.Handler, error) {
	handler := NewHandler(cfg, settingsManager, controller)
	mux := http.NewServeMux()

	webUser := cfg.LocalConf.WebUser
	webPassword := cfg.LocalConf.WebPassword
	auth := func(h http.HandlerFunc) http.Handler {
		return basicAuthMiddleware(h, webUser, webPassword)
	}

	// --- 认证保护的 API ---
	mux.Handle("/api/check", auth(handler.HandleCheck))
	mux.Handle("/api/language", auth(handler.HandleLanguage))
	mux.Handle("/api/settings", auth(handler.HandleGetSettings))
	mux.Handle("/api/settings/", auth(handler.HandleUpdateSettings)) // 捕获 /api/settings/{module}

	// --- 公开端点 ---
	mux.HandleFunc("/api/status", handler.HandleStatus)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	})
	mux.Handle("/metrics", promhttp.Handler())

	// --- 静态文件和主页 ---
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create sub filesystem for static assets: %w", err)
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	rootHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		index, err := staticFiles.ReadFile("static/index.html")
		if err != nil {
			http.Error(w, "Could not load index.html", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(index)
	})
	mux.Handle("/", basicAuthMiddleware(rootHandler, webUser, webPassword))

	return mux, nil
}

// StartServer starts the web UI in the background. It returns nil when the
// web UI is disabled (web_port is 0) or could not bind.
func StartServer(
	wg *sync.WaitGroup,
	cfg *types.Config,
	settingsManager *settings.SettingsManager,
	controller MonitorController,
	hub *Hub,
) *http.Server {
	l := logger.WithComponent("WebServer")
	if cfg.LocalConf.WebPort <= 0 {
		l.Info().Msg("Web UI is disabled (web_port is 0 or not set).")
		return nil
	}

	router, err := NewRouter(cfg, settingsManager, controller, hub)
	if err != nil {
		l.Error().Err(err).Msg("Failed to build web routes.")
		return nil
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.LocalConf.WebPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		l.Error().Err(err).Str("addr", addr).Msg("FAILED to start Web UI.")
		return nil
	}

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	l.Info().Msgf("SUCCESS: Web UI is listening on http://%s", addr)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(loggingListener{Listener: listener}); err != nil && err != http.ErrServerClosed {
			l.Error().Err(err).Msg("Web server error.")
		}
		l.Info().Msg("Web server stopped.")
	}()
	return srv
}

// ShutdownServer stops srv gracefully. A nil server is ignored.
func ShutdownServer(srv *http.Server, timeout time.Duration) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		l := logger.WithComponent("WebServer")
		l.Warn().Err(err).Msg("Web server shutdown error.")
	}
}

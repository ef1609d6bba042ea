package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"mullvad_monitor/internal/core/dispatcher"
	"mullvad_monitor/internal/core/health"
	"mullvad_monitor/internal/core/monitor"
	"mullvad_monitor/internal/i18n"
	"mullvad_monitor/internal/service/push"
	"mullvad_monitor/internal/service/web"
	"mullvad_monitor/internal/shared/globalstate"
	"mullvad_monitor/internal/shared/logger"
	"mullvad_monitor/internal/shared/settings"
	"mullvad_monitor/internal/shared/types"
)

// AppServer is the application's main struct. It owns the status cell and
// wires the poller, the dispatcher and every presentation surface together.
type AppServer struct {
	cfg     *types.Config
	iniPath string

	settingsManager *settings.SettingsManager
	resolver        *i18n.Resolver
	cell            *globalstate.StatusCell

	hub        *web.Hub
	dispatcher *dispatcher.Dispatcher
	monitor    *monitor.Monitor
	webServer  *http.Server

	isMobileMode bool // 标记是否为移动模式

	ctx       context.Context
	cancel    context.CancelFunc
	waitGroup sync.WaitGroup
	stopOnce  sync.Once
}

// AppServer must implement the web controller interface
var _ web.MonitorController = (*AppServer)(nil)

// NewForPC creates a new AppServer instance for PC/file-based mode.
// settings.json lives next to the ini file.
func NewForPC(cfg *types.Config, iniPath string) (*AppServer, error) {
	probe, err := newProbe(cfg)
	if err != nil {
		return nil, err
	}
	settingsPath := filepath.Join(filepath.Dir(iniPath), "settings.json")
	s, err := newAppServer(cfg, settingsPath, probe)
	if err != nil {
		return nil, err
	}
	s.iniPath = iniPath
	return s, nil
}

// NewForMobile creates a new AppServer instance for mobile/in-memory mode.
func NewForMobile(cfg *types.Config) (*AppServer, error) {
	probe, err := newProbe(cfg)
	if err != nil {
		return nil, err
	}
	s, err := newAppServer(cfg, "", probe)
	if err != nil {
		return nil, err
	}
	s.isMobileMode = true
	return s, nil
}

func newProbe(cfg *types.Config) (*health.Checker, error) {
	checker, err := health.New(health.Options{
		URL:        cfg.ProbeURL,
		Timeout:    time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
		Socks5Addr: cfg.ProbeSocks5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create status probe: %w", err)
	}
	return checker, nil
}

func newAppServer(cfg *types.Config, settingsPath string, probe types.StatusProbe) (*AppServer, error) {
	sm, err := settings.NewSettingsManager(settingsPath, cfg.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize settings manager: %w", err)
	}

	table := i18n.DefaultTable()
	if cfg.TranslationsFile != "" {
		table, err = i18n.LoadTableFile(cfg.TranslationsFile)
		if err != nil {
			return nil, err
		}
	}

	// 语言以 settings.json 中的持久化值为准
	locale := i18n.NewLocale(sm.Get().General.GetLanguage())
	sm.Register(settings.ModuleGeneral, locale)
	resolver := i18n.NewResolver(table, locale)

	ctx, cancel := context.WithCancel(context.Background())
	s := &AppServer{
		cfg:             cfg,
		settingsManager: sm,
		resolver:        resolver,
		cell:            globalstate.NewStatusCell(),
		hub:             web.NewHub(),
		ctx:             ctx,
		cancel:          cancel,
	}

	disp := dispatcher.New(resolver, cfg.CountryPlaceholder)
	disp.AddIndicator(s.hub.Indicator("tray"))
	disp.AddIndicator(s.hub.Indicator("window"))
	disp.AddEventSink(s.hub)
	disp.AddNotifier(s.hub)
	disp.SetNotificationGate(sm)
	s.attachPush(ctx, disp)
	s.dispatcher = disp

	mon, err := monitor.New(monitor.Config{
		Interval:         time.Duration(cfg.PollIntervalSeconds) * time.Second,
		ProbeTimeout:     time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
		ProbeImmediately: true,
	}, probe, s.cell, disp)
	if err != nil {
		cancel()
		return nil, err
	}
	s.monitor = mon

	return s, nil
}

// attachPush registers the FCM sink when the [push] section is filled in.
func (s *AppServer) attachPush(ctx context.Context, disp *dispatcher.Dispatcher) {
	notifier, err := push.NewFCM(ctx, s.cfg.PushConf)
	switch {
	case errors.Is(err, push.ErrNotConfigured):
		logger.Debug().Msg("Push notifications are disabled (no credentials or device token).")
	case err != nil:
		logger.Warn().Err(err).Msg("Push notifications unavailable.")
	default:
		disp.AddNotifier(notifier)
		logger.Info().Msg("Push notifications enabled.")
	}
}

// Start launches the hub and the monitor loop without blocking.
func (s *AppServer) Start() {
	if s.isMobileMode {
		logger.Info().Msg("Starting monitor in 'mobile' mode...")
	} else {
		logger.Info().Str("config", s.iniPath).Msg("Starting monitor in 'local' mode...")
	}

	s.waitGroup.Add(1)
	go func() {
		defer s.waitGroup.Done()
		s.hub.Run()
	}()

	logger.Info().
		Int("poll_interval_seconds", s.cfg.PollIntervalSeconds).
		Int("probe_timeout_seconds", s.cfg.ProbeTimeoutSeconds).
		Msg("Monitor configured.")

	s.dispatcher.Initialize()
	s.monitor.Start(s.ctx)

	// Do NOT start the web UI in mobile mode
	if !s.isMobileMode {
		s.webServer = web.StartServer(&s.waitGroup, s.cfg, s.settingsManager, s, s.hub)
	}
}

// Run is the server's entry point for PC mode. It blocks until Stop is called.
func (s *AppServer) Run() {
	s.Start()
	s.Wait()
}

// Stop gracefully shuts down the server. Safe to call more than once.
func (s *AppServer) Stop() {
	s.stopOnce.Do(func() {
		logger.Info().Msg("Stopping monitor...")
		s.monitor.Stop()
		s.cancel()
		web.ShutdownServer(s.webServer, 5*time.Second)
		s.hub.Close()
	})
}

// Wait blocks until every background goroutine has returned.
func (s *AppServer) Wait() {
	s.monitor.Wait()
	s.waitGroup.Wait()
}


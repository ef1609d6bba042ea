package mobile

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	"mullvad_monitor/internal/app"
	"mullvad_monitor/internal/shared/config"
	"mullvad_monitor/internal/shared/logger"
	"mullvad_monitor/internal/shared/types"
)

var (
	// 全局变量，用于持有当前为移动端运行的唯一 AppServer 实例
	activeAppServer *app.AppServer
	instanceMutex   sync.Mutex
)

// StartMonitor is the main entry point for mobile clients.
// It starts the Go core in-memory, without any file I/O for configuration.
// iniContent: A string containing the content of a monitor.ini file.
func StartMonitor(iniContent string) (err error) {
	// Defer a panic handler to convert panics into errors, which is safer for CGo boundaries.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("go core panic: %v\n\n%s", r, debug.Stack())
		}
	}()

	instanceMutex.Lock()
	defer instanceMutex.Unlock()

	if activeAppServer != nil {
		return fmt.Errorf("monitor is already running")
	}

	// 1. 解析 ini 内容
	cfg := new(types.Config)
	if err := config.LoadIniBytes(cfg, []byte(iniContent)); err != nil {
		return fmt.Errorf("failed to parse ini content: %w", err)
	}

	// 2. 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Debug().Msg("Configuring and starting Go core for mobile (in-memory)...")

	// 3. 创建并启动
	appServer, err := app.NewForMobile(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create monitor in mobile mode")
		return err
	}
	appServer.Start()

	activeAppServer = appServer
	logger.Debug().Msg("Go core started successfully.")
	return nil
}

// StopMonitor stops the Go core.
func StopMonitor() {
	instanceMutex.Lock()
	defer instanceMutex.Unlock()

	if activeAppServer != nil {
		logger.Debug().Msg("Stopping Go core for mobile...")
		activeAppServer.Stop()
		activeAppServer.Wait()
		activeAppServer = nil
	}
}

// QueryStatus returns the last known VPN status as a JSON object string.
// It fails with "status not available yet" until the first probe succeeded.
func QueryStatus() (statusJson string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("go core panic in QueryStatus: %v\n\n%s", r, debug.Stack())
			statusJson = ""
		}
	}()

	instanceMutex.Lock()
	defer instanceMutex.Unlock()

	if activeAppServer == nil {
		return "", fmt.Errorf("monitor is not running")
	}

	status, err := activeAppServer.CurrentStatus()
	if err != nil {
		return "", err
	}

	statusBytes, err := json.Marshal(status)
	if err != nil {
		return "", fmt.Errorf("failed to marshal status: %w", err)
	}
	return string(statusBytes), nil
}

// SetLanguage switches the display language and returns a confirmation message.
func SetLanguage(code string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("go core panic in SetLanguage: %v", r)
			reply = ""
		}
	}()

	instanceMutex.Lock()
	defer instanceMutex.Unlock()

	if activeAppServer == nil {
		return "", fmt.Errorf("monitor is not running")
	}
	return activeAppServer.SetLanguage(code)
}

package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/ini.v1"
	"mullvad_monitor/internal/shared/types"
)

const (
	DefaultPollIntervalSeconds = 15
	DefaultProbeTimeoutSeconds = 10
	DefaultProbeURL            = "https://am.i.mullvad.net/json"
	DefaultCountryPlaceholder  = "Mullvad"
	DefaultLanguage            = "en"
	DefaultLogLevel            = "info"
)

// LoadIni 加载 monitor.ini 行为配置文件。
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return err
	}
	return mapAndNormalize(cfg, iniFile)
}

// LoadIniBytes 从内存中的 ini 内容加载配置 (移动端使用)。
func LoadIniBytes(cfg *types.Config, content []byte) error {
	iniFile, err := ini.Load(content)
	if err != nil {
		return fmt.Errorf("failed to parse ini content: %w", err)
	}
	return mapAndNormalize(cfg, iniFile)
}

func mapAndNormalize(cfg *types.Config, iniFile *ini.File) error {
	if err := iniFile.MapTo(cfg); err != nil {
		return fmt.Errorf("failed to map ini content to config struct: %w", err)
	}
	overrideFromEnvInt(&cfg.MonitorConf.PollIntervalSeconds, "MONITOR_POLL_INTERVAL")
	overrideFromEnvInt(&cfg.LocalConf.WebPort, "MONITOR_WEB_PORT")
	ApplyDefaults(cfg)
	return nil
}

// ApplyDefaults fills every zero-valued setting with its default.
func ApplyDefaults(cfg *types.Config) {
	if cfg.PollIntervalSeconds <= 0 {
		cfg.PollIntervalSeconds = DefaultPollIntervalSeconds
	}
	if cfg.ProbeTimeoutSeconds <= 0 {
		cfg.ProbeTimeoutSeconds = DefaultProbeTimeoutSeconds
	}
	if cfg.ProbeURL == "" {
		cfg.ProbeURL = DefaultProbeURL
	}
	if cfg.CountryPlaceholder == "" {
		cfg.CountryPlaceholder = DefaultCountryPlaceholder
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = DefaultLanguage
	}
	if cfg.Level == "" {
		cfg.Level = DefaultLogLevel
	}
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

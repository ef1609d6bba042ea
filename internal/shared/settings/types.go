package settings

import (
	"errors"
	"strings"
)

// ConfigurableModule 是所有希望其配置能被在线管理的模块必须实现的接口。
// 当相关配置发生变更时，SettingsManager 会调用此方法。
type ConfigurableModule interface {
	// OnSettingsUpdate 在配置变更时被 SettingsManager 调用。
	// moduleKey: 告知是哪个模块的配置发生了变化 (e.g., "general", "notifications")。
	// newSettings: 是对应模块的、已经解析好的新配置结构体指针 (e.g., *GeneralSettings)。
	OnSettingsUpdate(moduleKey string, newSettings interface{}) error
}

const (
	ModuleGeneral       = "general"
	ModuleNotifications = "notifications"
)

// RuntimeSettings 是 settings.json 文件的顶层结构。
// 使用指针类型确保了当JSON文件中缺少某个模块时，对应的字段为nil，而不是一个空的结构体。
type RuntimeSettings struct {
	General       *GeneralSettings      `json:"general"`
	Notifications *NotificationSettings `json:"notifications"`
}

// GeneralSettings 对应 settings.json 中的 "general" 模块。
type GeneralSettings struct {
	Language string `json:"language"` // e.g., "en", "de"
}

// GetLanguage returns the persisted language code.
func (g *GeneralSettings) GetLanguage() string {
	if g == nil {
		return ""
	}
	return g.Language
}

func (g *GeneralSettings) normalize() error {
	g.Language = strings.TrimSpace(g.Language)
	if g.Language == "" {
		return errors.New("language code must not be empty")
	}
	return nil
}

// NotificationSettings 对应 settings.json 中的 "notifications" 模块。
type NotificationSettings struct {
	Enabled bool `json:"enabled"`
}

func createDefaultSettings(language string) *RuntimeSettings {
	return &RuntimeSettings{
		General:       &GeneralSettings{Language: language},
		Notifications: &NotificationSettings{Enabled: true},
	}
}

func ensureDefaultModules(s *RuntimeSettings, language string) {
	if s.General == nil {
		s.General = &GeneralSettings{Language: language}
	}
	if s.Notifications == nil {
		s.Notifications = &NotificationSettings{Enabled: true}
	}
}

// normalizeModule 在持久化之前校验并规整模块配置。
func normalizeModule(moduleKey string, module interface{}) error {
	if moduleKey == ModuleGeneral {
		return module.(*GeneralSettings).normalize()
	}
	return nil
}

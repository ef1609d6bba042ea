package types

// MonitorConf 包含轮询与探测相关的配置
type MonitorConf struct {
	PollIntervalSeconds int    `ini:"poll_interval_seconds"`
	ProbeTimeoutSeconds int    `ini:"probe_timeout_seconds"`
	ProbeURL            string `ini:"probe_url"`
	ProbeSocks5         string `ini:"probe_socks5"` // 可选: 通过本地 SOCKS5 代理发起探测, e.g. "127.0.0.1:1080"
	CountryPlaceholder  string `ini:"country_placeholder"`
}

// LocalConf 包含本地 Web UI 的配置
type LocalConf struct {
	WebPort     int    `ini:"web_port"`
	WebUser     string `ini:"web_user"`
	WebPassword string `ini:"web_password"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// PushConf configures the optional Firebase Cloud Messaging sink.
type PushConf struct {
	CredentialsFile string `ini:"credentials_file"`
	DeviceToken     string `ini:"device_token"`
}

// I18nConf 包含语言相关的配置
type I18nConf struct {
	DefaultLanguage  string `ini:"default_language"`
	TranslationsFile string `ini:"translations_file"` // 为空时使用内置翻译表
}

// Config 是 monitor.ini 的统一配置结构体
type Config struct {
	MonitorConf `ini:"monitor"`
	LocalConf   `ini:"local"`
	LogConf     `ini:"log"`
	PushConf    `ini:"push"`
	I18nConf    `ini:"i18n"`
}

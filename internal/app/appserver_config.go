package app

import (
	"encoding/json"

	"mullvad_monitor/internal/shared/logger"
	"mullvad_monitor/internal/shared/settings"
)

// Language returns the active language code.
func (s *AppServer) Language() string {
	return s.resolver.Locale().Get()
}

// Languages returns the language codes the translation table carries.
func (s *AppServer) Languages() []string {
	return s.resolver.Languages()
}

// SetLanguage switches the active locale and persists it to settings.json.
// The switch takes effect on the next dispatched update.
func (s *AppServer) SetLanguage(code string) (string, error) {
	msg, err := s.resolver.SetLocale(code)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(settings.GeneralSettings{Language: s.Language()})
	if err == nil {
		err = s.settingsManager.Update(settings.ModuleGeneral, payload)
	}
	if err != nil {
		// 内存中的语言已经切换，持久化失败只记录日志
		logger.Warn().Err(err).Msg("Failed to persist language setting.")
	}
	return msg, nil
}

package notify

import (
	"github.com/v4vapp/bridge/internal/usecase"
)

// DispatcherConfig collects everything needed to assemble the C9
// notification dispatcher from process configuration.
type DispatcherConfig struct {
	TelegramToken   string
	TelegramChatID  string
	ExtraBotTokens  map[string]string // name -> token, for additional chat targets
	DefaultChat     string
	SilenceList     []string
	ConsoleFallback bool // dev-mode: echo to stdout instead of/alongside chat bots
}

// BuildDispatcher wires the configured transports into a
// usecase.NotificationUseCase, grounded on
// original_source/src/telegram_bot_setup.py's single-bot setup generalized
// to the multi-bot fan-out spec §4.9 describes.
func BuildDispatcher(cfg DispatcherConfig) (*usecase.NotificationUseCase, error) {
	var transports []usecase.NotificationTransport

	if cfg.TelegramToken != "" {
		primary, err := NewTelegramTransport(cfg.TelegramChatID, cfg.TelegramToken)
		if err != nil {
			return nil, err
		}
		transports = append(transports, primary)
	}

	for name, token := range cfg.ExtraBotTokens {
		extra, err := NewTelegramTransport(name, token)
		if err != nil {
			return nil, err
		}
		transports = append(transports, extra)
	}

	if cfg.ConsoleFallback || len(transports) == 0 {
		transports = append(transports, NewConsoleTransport("console"))
	}

	defaultChat := cfg.DefaultChat
	if defaultChat == "" {
		defaultChat = cfg.TelegramChatID
	}
	if defaultChat == "" {
		defaultChat = "console"
	}

	return usecase.NewNotificationUseCase(transports, defaultChat, cfg.SilenceList), nil
}

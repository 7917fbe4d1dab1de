package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/v4vapp/bridge/internal/infrastructure/runtime"
	"github.com/v4vapp/bridge/internal/usecase"
)

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console

	// LogFilePath, when set, routes all output through a rotating file
	// writer instead of stdout, whatever the format. Empty disables
	// rotation.
	LogFilePath string
	MaxSizeMB   int // default 100
	MaxBackups  int // default 5
	MaxAgeDays  int // default 28

	// NotifyHandle, when set, backs a Hook that forwards every Warn+ event
	// to whatever usecase.Notifier the handle currently holds. The handle
	// is deliberately allowed to be empty at construction time: cmd/*
	// entrypoints build the logger before the C9 dispatcher exists, then
	// call NotifyHandle.Set once it's running (spec §5 rebind contract).
	NotifyHandle *runtime.Handle[usecase.Notifier]
}

// New creates a new zerolog logger based on config.
func New(cfg Config) zerolog.Logger {
	var output io.Writer = os.Stdout

	if cfg.LogFilePath != "" {
		output = &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   true,
		}
	} else if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	level := parseLevel(cfg.Level)

	builder := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Caller()

	if cfg.NotifyHandle != nil {
		return builder.Logger().Hook(notifyHook{handle: cfg.NotifyHandle})
	}

	return builder.Logger()
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// notifyHook forwards Warn-and-above events to the C9 dispatcher.
//
// zerolog's Hook.Run fires before the event's fields are serialized, so a
// hook has no way to read back an already-set "notify" field on the event
// being built; the spec's "explicit notify=true field" half of the
// notification contract is instead satisfied directly by call sites that
// hold a usecase.Notifier (rebalance_usecase.go, eventpublisher.publishEvent)
// or set the Notify flag on outbox events (ledger_usecase.go), not by this
// hook. This hook only covers the level-triggered half: any Warn or Error
// log line gets pushed too, on a goroutine of its own so the log call never
// waits on a transport.
type notifyHook struct {
	handle *runtime.Handle[usecase.Notifier]
}

func (h notifyHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level < zerolog.WarnLevel {
		return
	}
	notifier := h.handle.Get()
	if notifier == nil {
		return
	}
	severity := "WARN"
	if level >= zerolog.ErrorLevel {
		severity = "ERROR"
	}
	go notifier.Notify(context.Background(), usecase.NotificationMessage{
		Text:      msg,
		Severity:  severity,
		Component: "logger",
		Notify:    true,
	})
}

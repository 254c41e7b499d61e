package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures structured JSON logging for the given service and returns
// the root logger. The returned logger is also installed as the slog default
// so library code logging through the default logger stays structured.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	logger := slog.New(handler).With(slog.String("service", strings.TrimSpace(service)))
	if env = strings.TrimSpace(env); env != "" {
		logger = logger.With(slog.String("env", env))
	}
	slog.SetDefault(logger)
	return logger
}

package logger

import (
	"strings"

	"cryptoSignalBot/internal/ports"
)

// New returns the zap JSON logger for format "json" and the text logger otherwise.
func New(format string, level LogLevel) ports.Logger {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return NewZapLogger(level)
	}
	return NewStdLogger(level)
}

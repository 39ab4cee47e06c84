package utils

import (
	"io"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2/log"
)

// SetupLogger configures the fiber default logger. Output goes to stderr and,
// when logFile is set, is teed into that file. The returned closer releases
// the file handle.
func SetupLogger(level, logFile string) (io.Closer, error) {
	log.SetLevel(ParseLogLevel(level))

	if logFile == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, file))
	return file, nil
}

// ParseLogLevel maps a LOG_LEVEL value onto a fiber log level, defaulting to info
func ParseLogLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.LevelTrace
	case "debug":
		return log.LevelDebug
	case "warn", "warning":
		return log.LevelWarn
	case "error":
		return log.LevelError
	case "fatal":
		return log.LevelFatal
	case "panic":
		return log.LevelPanic
	default:
		return log.LevelInfo
	}
}

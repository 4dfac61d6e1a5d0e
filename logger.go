package sandwich

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger from the logging configuration. The
// returned closer flushes the rotating log file, if any.
func NewLogger(configuration *Configuration) (zerolog.Logger, io.Closer) {
	var writers []io.Writer

	if configuration.Logging.Console || !configuration.Logging.File.Enabled {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.Stamp,
		})
	}

	var closer io.Closer = nopCloser{}

	if configuration.Logging.File.Enabled {
		rotator := &lumberjack.Logger{
			Filename:   configuration.Logging.File.Filename,
			MaxSize:    configuration.Logging.File.MaxSize,
			MaxBackups: configuration.Logging.File.MaxBackups,
			MaxAge:     configuration.Logging.File.MaxAge,
			Compress:   configuration.Logging.File.Compress,
		}

		writers = append(writers, rotator)
		closer = rotator
	}

	level, err := zerolog.ParseLevel(strings.ToLower(configuration.Logging.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().
		Logger()

	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

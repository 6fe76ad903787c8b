// Package logging настраивает zerolog для процесса
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup настраивает глобальный логгер и возвращает его
func Setup(development bool, level string) zerolog.Logger {
	return SetupWithWriter(development, level, os.Stdout)
}

// SetupWithWriter в разработке пишет читаемый вывод, иначе JSON
func SetupWithWriter(development bool, level string, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	def := zerolog.InfoLevel
	if development {
		def = zerolog.DebugLevel
	}
	lvl := ParseLevel(level, def)

	writer := out
	if development {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(lvl)
	log.Logger = logger
	return logger
}

// ParseLevel разбирает уровень логирования, при ошибке возвращает def
func ParseLevel(level string, def zerolog.Level) zerolog.Level {
	s := strings.ToLower(strings.TrimSpace(level))
	if s == "" {
		return def
	}
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return def
	}
	return lvl
}

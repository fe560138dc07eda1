// Package logging builds the logrus logger shared by the CLI, server and UI.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/annotate/internal/config"
)

// New creates a logger from cfg writing to console. When cfg.File is set the
// output also goes to a size-rotated file. The returned closer releases the file.
func New(cfg config.LogConfig, console io.Writer) (*logrus.Logger, io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "log level %q", cfg.Level)
	}

	log := logrus.New()
	log.SetLevel(level)
	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var closer io.Closer = nopCloser{}
	out := console
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, errors.Wrapf(err, "create log dir for %s", cfg.File)
		}
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		closer = rotated
		if console == nil {
			out = rotated
		} else {
			out = io.MultiWriter(console, rotated)
		}
	}
	if out == nil {
		out = io.Discard
	}
	log.SetOutput(out)
	return log, closer, nil
}

// Discard returns a logger that drops everything, for tests and the TUI
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

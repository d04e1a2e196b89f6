// Package logging builds the logrus logger shared by the pipeline and server.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/credence/internal/model"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr with the configured level and format
func New(config model.LogConfig) (*logrus.Logger, error) {
	return NewWithOutput(config, os.Stderr)
}

// NewWithOutput is New with an explicit destination
func NewWithOutput(config model.LogConfig, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	level := config.Level
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(parsed)

	switch strings.ToLower(config.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q (use text or json)", config.Format)
	}

	return logger, nil
}

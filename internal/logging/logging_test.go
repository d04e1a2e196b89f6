package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ppiankov/credence/internal/model"
	"github.com/sirupsen/logrus"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput(model.LogConfig{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	logger.WithField("validation_id", "abc").Debug("started")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["validation_id"] != "abc" {
		t.Errorf("Expected validation_id field, got %v", entry["validation_id"])
	}
	if entry["level"] != "debug" {
		t.Errorf("Expected debug level, got %v", entry["level"])
	}
}

func TestNewWithOutput_Defaults(t *testing.T) {
	logger, err := NewWithOutput(model.LogConfig{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("Expected info level, got %v", logger.GetLevel())
	}
}

func TestNewWithOutput_Invalid(t *testing.T) {
	if _, err := NewWithOutput(model.LogConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for unknown level")
	}
	if _, err := NewWithOutput(model.LogConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for unknown format")
	}
}

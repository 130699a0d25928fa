package cmd

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-apikeys/config"
)

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
	})

	if err := configureLogging(config.LogConfig{Level: "debug", Format: "text"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logrus.GetLevel())
	}
	if _, ok := logrus.StandardLogger().Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected text formatter")
	}

	if err := configureLogging(config.LogConfig{Level: "info", Format: "json"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected json formatter")
	}

	if err := configureLogging(config.LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if err := configureLogging(config.LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

package logger

import (
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("retriever")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "retriever" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestWithFieldsChaining(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("reconciler").WithFields(Fields{"pairs": 3})
	if v, ok := entry.Entry.Data["pairs"]; !ok || v != 3 {
		t.Fatalf("chained field missing: %v", entry.Entry.Data)
	}
	if v, ok := entry.Entry.Data["component"]; !ok || v != "reconciler" {
		t.Fatalf("component lost during chaining: %v", entry.Entry.Data)
	}
}

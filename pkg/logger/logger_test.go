package logger

import "testing"

func TestInitAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if err := Init(level); err != nil {
			t.Fatalf("init with level %q: %v", level, err)
		}
		if Logger() == nil {
			t.Fatalf("expected logger after init with level %q", level)
		}
	}
}

func TestInitFallsBackOnUnknownLevel(t *testing.T) {
	if err := Init("chatty"); err != nil {
		t.Fatalf("unexpected error for unknown level: %v", err)
	}
}

func TestWithModuleReturnsChild(t *testing.T) {
	if WithModule("issuer") == nil {
		t.Fatal("expected module logger")
	}
}

package shared

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes to the given writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("hello", "key", "value")

		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("expected log output to contain message, got %q", buf.String())
		}
	})

	t.Run("SetLogLevel", func(t *testing.T) {
		logger := NewLogger(&bytes.Buffer{})

		SetLogLevel(logger, "DEBUG")
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", logger.GetLevel())
		}

		SetLogLevel(logger, "nonsense")
		if logger.GetLevel() != log.InfoLevel {
			t.Errorf("expected unknown level to fall back to info, got %v", logger.GetLevel())
		}
	})

	t.Run("NopLogger discards", func(t *testing.T) {
		NopLogger().Error("dropped")
	})

	t.Run("ComponentLogger tags entries", func(t *testing.T) {
		var buf bytes.Buffer
		ComponentLogger(NewLogger(&buf), "catalog").Info("searching")

		if !strings.Contains(buf.String(), "component=catalog") {
			t.Errorf("expected component key, got %q", buf.String())
		}
	})

	t.Run("ComponentLogger with nil logger", func(t *testing.T) {
		if ComponentLogger(nil, "auth") == nil {
			t.Error("expected a logger")
		}
	})
}

func TestNewState(t *testing.T) {
	a, b := NewState(), NewState()
	if a == b {
		t.Error("expected distinct states")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string of length 36, got %d", len(a))
	}
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("declined and timeout are abandonment", func(t *testing.T) {
		if !errors.Is(ErrUserDeclined, ErrInteractiveAuthAbandoned) {
			t.Error("ErrUserDeclined should wrap ErrInteractiveAuthAbandoned")
		}
		if !errors.Is(ErrTimeout, ErrInteractiveAuthAbandoned) {
			t.Error("ErrTimeout should wrap ErrInteractiveAuthAbandoned")
		}
	})

	t.Run("no match is not an auth failure", func(t *testing.T) {
		if errors.Is(ErrNoMatch, ErrAuthExpired) {
			t.Error("ErrNoMatch must not match ErrAuthExpired")
		}
	})
}

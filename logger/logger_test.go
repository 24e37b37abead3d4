package logger_test

import (
	"errors"
	"testing"

	"github.com/evdnx/gosignal/logger"
	"github.com/evdnx/gosignal/testutils"
)

func TestMockLogger(t *testing.T) {
	l := testutils.NewMockLogger()
	l.Info("hello", logger.String("k", "v"))
	if got := l.LastMessage(); got != "hello" {
		t.Fatalf("expected last message 'hello', got %q", got)
	}
}

func TestNewZapLoggerRejectsBadLevel(t *testing.T) {
	if _, err := logger.NewZapLogger("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNopLoggerAcceptsFields(t *testing.T) {
	l := logger.NewNop()
	l.Debug("d", logger.Int("n", 1))
	l.Error("e", logger.Err(errors.New("boom")), logger.Float64("x", 1.5))
}

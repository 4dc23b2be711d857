package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_LevelFollowsVerbose(t *testing.T) {
	quiet, err := New(false)
	if err != nil {
		t.Fatalf("New(false): %v", err)
	}
	if quiet.Core().Enabled(zapcore.DebugLevel) {
		t.Error("quiet logger should not enable debug")
	}

	loud, err := New(true)
	if err != nil {
		t.Fatalf("New(true): %v", err)
	}
	if !loud.Core().Enabled(zapcore.DebugLevel) {
		t.Error("verbose logger should enable debug")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l, _ := New(false)
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger")
	}
}

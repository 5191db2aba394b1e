package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want *zapcore.Level
	}{
		{"debug", levelPtr(zapcore.DebugLevel)},
		{"WARN", levelPtr(zapcore.WarnLevel)},
		{"error", levelPtr(zapcore.ErrorLevel)},
		{"fatal", nil},
		{"loud", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := parseLevel(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parseLevel(%q) = %v, want nil", tt.in, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, *tt.want)
		}
	}
}

func levelPtr(l zapcore.Level) *zapcore.Level { return &l }

func TestLoggersAcceptFields(t *testing.T) {
	for _, l := range []Logger{New("error", false), New("debug", true), Nop()} {
		child := l.With(Component("test"), String("k", "v"))
		child.Debug("debug", Int("n", 1), Bool("b", true))
		child.Info("info", Error(errors.New("boom")))
		child.Warnf("warn %d", 2)
		_ = child.Sync()
	}
}

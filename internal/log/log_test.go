package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := parseLevel(tc.in); got != tc.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNewLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(Options{Level: "info"}, &buf)

	l.WithFields(Fields{"session_id": "abc123"}).Info("camera opened")
	l.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "camera opened") {
		t.Errorf("missing message in %q", out)
	}
	if !strings.Contains(out, "abc123") {
		t.Errorf("missing field value in %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %q", out)
	}
}

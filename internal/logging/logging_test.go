package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"Warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("warn", &buf)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "[DEBUG]")
	assert.NotContains(t, out, "[INFO]")
	assert.Contains(t, out, "[WARN] warn 3")
	assert.Contains(t, out, "[ERROR] error 4")
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown", Level(42).String())
}

func TestLogger_Named(t *testing.T) {
	var buf bytes.Buffer
	root := NewWithWriter("info", &buf)
	assert.Same(t, root, root.Named(""))

	sim := root.Named("hexane")
	sim.Infof("step %d", 10)
	sim.Named("cbmc").Warnf("zero weight")
	sim.Debugf("hidden")
	root.Infof("plain")

	assert.Equal(t, "[INFO] hexane: step 10\n[WARN] hexane/cbmc: zero weight\n[INFO] plain\n", buf.String())
	assert.Equal(t, LevelInfo, sim.Level())
}

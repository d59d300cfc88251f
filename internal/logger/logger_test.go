package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		want  log.Level
		valid bool
	}{
		{"debug", log.DebugLevel, true},
		{"INFO", log.InfoLevel, true},
		{"warning", log.WarnLevel, true},
		{" error ", log.ErrorLevel, true},
		{"", log.InfoLevel, false},
		{"verbose", log.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.name)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetLevelKeepsCurrentOnUnknown(t *testing.T) {
	prev := Logger.GetLevel()
	defer Logger.SetLevel(prev)

	assert.True(t, SetLevel("error"))
	assert.False(t, SetLevel("nonsense"))
	assert.Equal(t, log.ErrorLevel, Logger.GetLevel())
}

func TestSetOutput(t *testing.T) {
	prev := Logger.GetLevel()
	defer func() {
		Logger.SetLevel(prev)
		SetOutput(os.Stderr)
	}()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("info")

	Info("dispatched", "method", "getActiveMode")
	assert.Contains(t, buf.String(), "dispatched")
	assert.Contains(t, buf.String(), "method=getActiveMode")
}

package system

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/telekom/bulkmail/pkg/apperrors"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"info", zapcore.InfoLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConfig))
}

func TestNewLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bulkmail.log")
	log, err := NewLogger("info", path)
	require.NoError(t, err)

	log.Debugw("hidden at info level")
	log.Infow("Mail sent", "recipient", "a@x.com")
	_ = log.Sync()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"Mail sent"`)
	assert.Contains(t, string(content), `"recipient":"a@x.com"`)
	assert.NotContains(t, string(content), "hidden at info level")
}

func TestNewLogger_DebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	log, err := NewLogger("debug", path)
	require.NoError(t, err)

	log.Debugw("Reconnecting", "host", "smtp.example.com")
	_ = log.Sync()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Reconnecting")
	assert.Contains(t, string(content), "smtp.example.com")
}

func TestNewLogger_Errors(t *testing.T) {
	_, err := NewLogger("loud", "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConfig))

	_, err = NewLogger("info", filepath.Join(t.TempDir(), "missing-dir", "x.log"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConfig))
}

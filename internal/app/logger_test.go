package app

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerFormatSelection(t *testing.T) {
	require.IsType(t, &slog.JSONHandler{}, NewLogger(&Config{AppEnv: "production"}).Handler())
	require.IsType(t, &slog.JSONHandler{}, NewLogger(&Config{LogFormat: "json"}).Handler())
	require.IsType(t, &slog.TextHandler{}, NewLogger(&Config{LogFormat: "pretty"}).Handler())
	require.IsType(t, &slog.TextHandler{}, NewLogger(nil).Handler())
}

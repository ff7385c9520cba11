package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProdUsesJSON(t *testing.T) {
	var buf bytes.Buffer
	l, closer, err := New(Options{Mode: "prod", Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	l.Info("telegram: started", "bot", "summy")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "telegram: started", record["msg"])
	assert.Equal(t, "summy", record["bot"])
}

func TestNew_DevUsesTextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l, closer, err := New(Options{Mode: "dev", Level: slog.LevelWarn, Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	l.Info("hidden")
	l.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "k=v")
}

func TestNew_TeesToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "bot_summy.log")

	l, closer, err := New(Options{Mode: "dev", Output: &buf, File: path})
	require.NoError(t, err)
	l.Info("written twice")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written twice")
	assert.Contains(t, buf.String(), "written twice")
}

func TestNew_BadFile(t *testing.T) {
	_, _, err := New(Options{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ToContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestWithInteraction(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := ToContext(context.Background(), base)

	ctx, l := WithInteraction(ctx, "summ", 42)
	assert.Same(t, l, FromContext(ctx))

	l.Info("handling")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "summ", record["command"])
	assert.Equal(t, float64(42), record["user_id"])

	id, ok := record["request_id"].(string)
	require.True(t, ok)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestNewRequestID_Unique(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	assert.NotEqual(t, a, b)
	assert.False(t, strings.Contains(a, " "))
}

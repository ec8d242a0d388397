package logging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cardbridge.log")
	var console bytes.Buffer

	log, closer, err := New(Options{Path: path, Level: "debug", Console: &console})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("kind", "invalid_card").Info("Invalid card")
	require.NoError(t, closer.Close())

	assert.Contains(t, console.String(), "Invalid card")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind=invalid_card")
}

func TestNew_SilentConsole(t *testing.T) {
	log, closer, err := New(Options{Console: io.Discard})
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Options{Level: "chatty"})
	assert.Error(t, err)
}

package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/cardbridge/internal/config"
	"github.com/five82/cardbridge/internal/metrics"
	"github.com/five82/cardbridge/internal/outcome"
	"github.com/five82/cardbridge/internal/state"
)

func TestRun_InvalidConfigReportsAndFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`target_reader = "ACS"`+"\n"), 0o600))

	var stderr bytes.Buffer
	err := Run(context.Background(), Options{ConfigPath: path, Stderr: &stderr})

	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalid))
	assert.Contains(t, stderr.String(), "config_invalid")
	assert.Contains(t, stderr.String(), "field 'url' is missing")
}

func TestNewNotifier_Modes(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := &state.Store{}
	m := metrics.New(prometheus.NewRegistry())

	tests := []struct {
		name      string
		mode      string
		dashboard bool
		wantLen   int
	}{
		{"desktop", config.NotifyDesktop, false, 4},
		{"console", config.NotifyConsole, false, 4},
		{"console under dashboard", config.NotifyConsole, true, 3},
		{"none", config.NotifyNone, false, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Config{NotifyMode: tt.mode}
			fanout := newNotifier(cfg, logger, store, m, tt.dashboard, &bytes.Buffer{})
			assert.Len(t, fanout, tt.wantLen)
		})
	}
}

func TestNewNotifier_ConsoleBannerAndStore(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := &state.Store{}
	m := metrics.New(prometheus.NewRegistry())
	var out bytes.Buffer

	fanout := newNotifier(config.Config{NotifyMode: config.NotifyConsole}, logger, store, m, false, &out)
	fanout.Notify(outcome.New(outcome.InvalidCard, "Invalid card", nil))

	assert.Contains(t, out.String(), "Invalid card")
	assert.Contains(t, out.String(), outcome.AppTitle)
	assert.Equal(t, 1, store.Snapshot().Failed)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Invalid card", hook.LastEntry().Message)
}

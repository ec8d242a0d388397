package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/cardbridge/internal/metrics"
	"github.com/five82/cardbridge/internal/outcome"
	"github.com/five82/cardbridge/internal/state"
)

func newTestServer(t *testing.T) (*httptest.Server, *state.Store, *metrics.Metrics) {
	t.Helper()
	store := &state.Store{}
	store.SetReader("ACS ACR39U ICC Reader 0")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	srv := httptest.NewServer(Handler(store, reg))
	t.Cleanup(srv.Close)
	return srv, store, m
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestStatus_ServesSnapshot(t *testing.T) {
	srv, store, _ := newTestServer(t)
	store.ReaderSeen()
	store.SetCardInserted(true)
	store.SetCapturing(true)
	store.Notify(outcome.New(outcome.SubmissionSucceeded, "Customer: SITI AMINAH (C123)", nil))

	resp, body := get(t, srv.URL+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var snap state.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, "ACS ACR39U ICC Reader 0", snap.Reader)
	assert.True(t, snap.CardInserted)
	assert.True(t, snap.Capturing)
	assert.Equal(t, 1, snap.Succeeded)
	require.Len(t, snap.Recent, 1)
	assert.Equal(t, outcome.SubmissionSucceeded, snap.Recent[0].Kind)
}

func TestHealthz_ReportsReaderError(t *testing.T) {
	srv, store, _ := newTestServer(t)

	resp, _ := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	store.Notify(outcome.New(outcome.ReaderTransportError, "Error in the reader X: gone", nil))
	resp, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "degraded")

	store.ReaderSeen()
	resp, _ = get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetrics_ExposesCounters(t *testing.T) {
	srv, _, m := newTestServer(t)
	m.Notify(outcome.New(outcome.InvalidCard, "Invalid card", nil))
	m.Insertion()

	resp, body := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `cardbridge_outcomes_total{kind="invalid_card"} 1`)
	assert.Contains(t, string(body), "cardbridge_insertions_total 1")
}

func TestUnknownRouteIs404(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, _ := get(t, srv.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := New(addr, &state.Store{}, prometheus.NewRegistry(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

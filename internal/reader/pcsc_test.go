package reader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ebfe/scard"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnplugged = errors.New("reader unplugged")

var mykadATR = []byte{0x3B, 0x67, 0x00, 0x00, 0x73, 0x20, 0x00, 0x6C, 0x68, 0x90, 0x00}

func TestCalculateBackoff(t *testing.T) {
	base := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second},
		{"many failures capped", 10, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateBackoff(tt.failures, base))
		})
	}
}

func TestStatusFromFlags(t *testing.T) {
	present := StatusFromFlags(scard.StatePresent|scard.StateChanged, mykadATR)
	assert.True(t, present.Present)
	assert.False(t, present.Empty)
	assert.True(t, present.Valid())

	empty := StatusFromFlags(scard.StateEmpty, nil)
	assert.False(t, empty.Present)
	assert.True(t, empty.Empty)
	assert.False(t, empty.Valid())
}

func TestStatus_ValidRejectsZeroATR(t *testing.T) {
	assert.False(t, Status{Present: true, ATR: []byte{0, 0, 0}}.Valid())
	assert.False(t, Status{Present: true}.Valid())
	assert.True(t, Status{Present: true, ATR: []byte{0, 0x3B}}.Valid())
}

// fakeContext replays scripted status changes, then fails with errAfter.
type fakeContext struct {
	readers  []string
	script   []scard.ReaderState
	errAfter error
	released bool
}

func (f *fakeContext) ListReaders() ([]string, error) { return f.readers, nil }

func (f *fakeContext) GetStatusChange(states []scard.ReaderState, _ time.Duration) error {
	if len(f.script) == 0 {
		return f.errAfter
	}
	next := f.script[0]
	f.script = f.script[1:]
	states[0].EventState = next.EventState
	states[0].Atr = next.Atr
	return nil
}

func (f *fakeContext) Release() error {
	f.released = true
	return nil
}

func newTestSource(ctxs ...*fakeContext) *PCSC {
	logger, _ := test.NewNullLogger()
	p := NewPCSC("ACS ACR39U", logger)
	p.retry = time.Millisecond
	p.establish = func() (cardContext, error) {
		if len(ctxs) == 0 {
			return nil, errors.New("no service")
		}
		c := ctxs[0]
		ctxs = ctxs[1:]
		return c, nil
	}
	return p
}

func TestPCSC_DeliversChangesThenReconnects(t *testing.T) {
	fc := &fakeContext{
		readers: []string{"Windows Hello", "ACS ACR39U"},
		script: []scard.ReaderState{
			{EventState: scard.StatePresent | scard.StateChanged, Atr: mykadATR},
			{EventState: scard.StatePresent},
			{EventState: scard.StateEmpty | scard.StateChanged},
		},
		errAfter: errUnplugged,
	}
	p := newTestSource(fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan Event)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, out) }()

	first := <-out
	require.NoError(t, first.Err)
	assert.Equal(t, "ACS ACR39U", first.Reader)
	assert.True(t, first.Status.Present)
	assert.Equal(t, mykadATR, first.Status.ATR)

	second := <-out
	require.NoError(t, second.Err)
	assert.True(t, second.Status.Empty)

	third := <-out
	require.Error(t, third.Err)
	assert.ErrorIs(t, third.Err, errUnplugged)
	assert.True(t, fc.released)
	assert.True(t, p.ignored["Windows Hello"])

	// The second connection attempt fails to establish a context.
	fourth := <-out
	require.Error(t, fourth.Err)
	assert.Contains(t, fourth.Err.Error(), "establish context")

	cancel()
	for {
		select {
		case err := <-done:
			assert.NoError(t, err)
			return
		case <-out:
		}
	}
}

func TestPCSC_MissingTargetIsAnError(t *testing.T) {
	p := newTestSource(&fakeContext{readers: []string{"Other"}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan Event, 4)
	go func() { _ = p.Run(ctx, out) }()

	ev := <-out
	require.Error(t, ev.Err)
	assert.Contains(t, ev.Err.Error(), `reader "ACS ACR39U" not found`)
}

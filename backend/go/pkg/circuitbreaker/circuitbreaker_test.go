package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream failed")

func fail() (interface{}, error) { return nil, errUpstream }
func ok() (interface{}, error)   { return "ok", nil }

type transitions struct {
	mu  sync.Mutex
	got []string
}

func (tr *transitions) record(from, to State) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.got = append(tr.got, from.String()+"->"+to.String())
}

func TestBreaker_TripsAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := &transitions{}
	cb := New(2, 2, 10*time.Second, WithStateChange(tr.record), withClock(func() time.Time { return now }))

	_, err := cb.Execute(fail)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, Closed, cb.State())

	_, err = cb.Execute(fail)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, Open, cb.State())

	called := false
	_, err = cb.Execute(func() (interface{}, error) { called = true; return nil, nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open circuit must not call through")

	now = now.Add(11 * time.Second)
	res, err := cb.Execute(ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, HalfOpen, cb.State())

	_, err = cb.Execute(ok)
	require.NoError(t, err)
	assert.Equal(t, Closed, cb.State())

	assert.Equal(t, []string{"Closed->Open", "Open->Half-Open", "Half-Open->Closed"}, tr.got)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := New(1, 1, time.Second, withClock(func() time.Time { return now }))

	_, _ = cb.Execute(fail)
	require.Equal(t, Open, cb.State())

	now = now.Add(2 * time.Second)
	_, err := cb.Execute(fail)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, Open, cb.State())

	_, err = cb.Execute(ok)
	assert.ErrorIs(t, err, ErrCircuitOpen, "timeout restarts from the new trip")
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New(2, 1, time.Minute)

	_, _ = cb.Execute(fail)
	_, _ = cb.Execute(ok)
	_, _ = cb.Execute(fail)
	assert.Equal(t, Closed, cb.State(), "failures were not consecutive")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Half-Open", HalfOpen.String())
	assert.Equal(t, "Unknown", State(42).String())
}

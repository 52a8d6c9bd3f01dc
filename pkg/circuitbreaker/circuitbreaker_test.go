package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func failing() (interface{}, error) { return nil, errUpstream }

func succeeding() (interface{}, error) { return "ok", nil }

func TestOpensAfterThreshold(t *testing.T) {
	cb := New(3, 1, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(failing)
		assert.ErrorIs(t, err, errUpstream)
	}
	assert.Equal(t, Open, cb.State())

	_, err := cb.Execute(succeeding)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(2, 1, time.Minute)

	_, _ = cb.Execute(failing)
	_, err := cb.Execute(succeeding)
	require.NoError(t, err)
	_, _ = cb.Execute(failing)

	assert.Equal(t, Closed, cb.State())
}

func TestHalfOpenRecovery(t *testing.T) {
	cb := New(1, 2, 10*time.Millisecond)

	_, _ = cb.Execute(failing)
	require.Equal(t, Open, cb.State())

	time.Sleep(20 * time.Millisecond)

	// First trial succeeds but one success is not enough to close.
	res, err := cb.Execute(succeeding)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, HalfOpen, cb.State())

	_, err = cb.Execute(succeeding)
	require.NoError(t, err)
	assert.Equal(t, Closed, cb.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(1, 1, 10*time.Millisecond)

	_, _ = cb.Execute(failing)
	time.Sleep(20 * time.Millisecond)

	_, err := cb.Execute(failing)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, Open, cb.State())
}

func TestStateChangeCallback(t *testing.T) {
	var transitions []string
	cb := New(1, 1, 10*time.Millisecond, WithStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+">"+to.String())
	}))

	_, _ = cb.Execute(failing)
	time.Sleep(20 * time.Millisecond)
	_, _ = cb.Execute(succeeding)

	assert.Equal(t, []string{"Closed>Open", "Open>Half-Open", "Half-Open>Closed"}, transitions)
}

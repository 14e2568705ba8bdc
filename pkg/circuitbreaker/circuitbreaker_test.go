package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []gobreaker.State
	cb := NewCircuitBreaker(Settings{
		Name:             "geolocation",
		Timeout:          time.Minute,
		FailureThreshold: 2,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	})

	boom := errors.New("provider down")
	calls := 0
	fail := func() error {
		calls++
		return boom
	}

	assert.ErrorIs(t, cb.Execute(fail), boom)
	assert.ErrorIs(t, cb.Execute(fail), boom)
	assert.ErrorIs(t, cb.Execute(fail), ErrOpen)

	assert.Equal(t, 2, calls)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "geolocation", FailureThreshold: 2})

	boom := errors.New("provider down")
	assert.Error(t, cb.Execute(func() error { return boom }))
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Error(t, cb.Execute(func() error { return boom }))

	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, "geolocation", cb.Name())
}

func TestCircuitBreaker_IgnoresUncountedErrors(t *testing.T) {
	rejected := errors.New("rejected")
	cb := NewCircuitBreaker(Settings{
		Name:             "geolocation",
		FailureThreshold: 2,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, rejected)
		},
	})

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return rejected }), rejected)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

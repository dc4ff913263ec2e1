package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	s := DefaultSettings("test")
	s.ConsecutiveFailures = 2
	s.Timeout = time.Hour
	cb := New[int](s, nil)

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, boom })
		assert.ErrorIs(t, err, boom)
	}

	calls := 0
	_, err := cb.Execute(func() (int, error) {
		calls++
		return 1, nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 0, calls)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestBreaker_PassesResults(t *testing.T) {
	cb := New[string](DefaultSettings("ok"), nil)

	v, err := cb.Execute(func() (string, error) { return "fine", nil })
	assert.NoError(t, err)
	assert.Equal(t, "fine", v)
}

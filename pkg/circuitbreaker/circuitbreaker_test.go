package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/nalgeon/be"
)

var errBoom = errors.New("boom")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(clock *fakeClock, transitions *[]string) *CircuitBreaker {
	cb := NewCircuitBreaker(Config{
		Name:                "test",
		FailureThreshold:    2,
		SuccessThreshold:    2,
		Timeout:             10 * time.Second,
		HalfOpenMaxRequests: 1,
		OnStateChange: func(name string, from, to State) {
			*transitions = append(*transitions, from.String()+"->"+to.String())
		},
	})
	cb.now = clock.now
	return cb
}

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)

	be.Err(t, cb.Execute(fail), errBoom)
	be.Equal(t, cb.GetState(), StateClosed)
	be.Err(t, cb.Execute(fail), errBoom)
	be.Equal(t, cb.GetState(), StateOpen)

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	be.Err(t, err, ErrCircuitBreakerOpen)
	be.Equal(t, called, false)
	be.Equal(t, transitions, []string{"closed->open"})
}

func TestSuccessResetsFailureCount(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)

	be.Err(t, cb.Execute(fail), errBoom)
	be.Err(t, cb.Execute(succeed), nil)
	be.Err(t, cb.Execute(fail), errBoom)
	be.Equal(t, cb.GetState(), StateClosed)
}

func TestHalfOpenRecovers(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	clock.t = clock.t.Add(11 * time.Second)

	be.Err(t, cb.Execute(succeed), nil)
	be.Equal(t, cb.GetState(), StateHalfOpen)
	be.Err(t, cb.Execute(succeed), nil)
	be.Equal(t, cb.GetState(), StateClosed)
	be.Equal(t, transitions, []string{"closed->open", "open->half-open", "half-open->closed"})
}

func TestHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	clock.t = clock.t.Add(11 * time.Second)

	be.Err(t, cb.Execute(fail), errBoom)
	be.Equal(t, cb.GetState(), StateOpen)
	be.Err(t, cb.Execute(succeed), ErrCircuitBreakerOpen)
}

func TestReset(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, &transitions)

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	cb.Reset()
	be.Equal(t, cb.GetState(), StateClosed)
	be.Err(t, cb.Execute(succeed), nil)
}

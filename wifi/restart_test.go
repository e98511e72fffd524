package wifi

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRestartFiresAfterDelay(t *testing.T) {
	fired := make(chan struct{})
	s := NewRestartScheduler(10*time.Millisecond, RestarterFunc(func() {
		close(fired)
	}), zerolog.Nop())

	s.Schedule("credentials saved")

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("restart never fired")
	}
}

func TestRestartNotImmediate(t *testing.T) {
	fired := make(chan struct{}, 1)
	s := NewRestartScheduler(50*time.Millisecond, RestarterFunc(func() {
		fired <- struct{}{}
	}), zerolog.Nop())

	s.Schedule("reset")
	select {
	case <-fired:
		t.Fatal("restart fired before the delay elapsed")
	case <-time.After(10 * time.Millisecond):
	}

	assert.Eventually(t, func() bool {
		select {
		case <-fired:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

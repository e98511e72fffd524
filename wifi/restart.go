package wifi

import (
	"time"

	"github.com/rs/zerolog"
)

// Restarter triggers the hardware reset.
type Restarter interface {
	Restart()
}

// RestarterFunc adapts a function to Restarter.
type RestarterFunc func()

func (f RestarterFunc) Restart() { f() }

// RestartScheduler fires a restart after a fixed delay. Endpoints that
// save or clear credentials schedule through it so their success response
// reaches the client before the connection drops. A scheduled restart
// cannot be cancelled; that is the documented contract.
type RestartScheduler struct {
	delay     time.Duration
	restarter Restarter
	log       zerolog.Logger
}

func NewRestartScheduler(delay time.Duration, restarter Restarter, log zerolog.Logger) *RestartScheduler {
	return &RestartScheduler{
		delay:     delay,
		restarter: restarter,
		log:       log.With().Str("component", "restart").Logger(),
	}
}

// Schedule arms the restart timer. Repeated calls arm additional timers;
// the first to fire wins and the rest are moot.
func (s *RestartScheduler) Schedule(reason string) {
	s.log.Info().Str("reason", reason).Dur("delay", s.delay).Msg("restart scheduled")
	time.AfterFunc(s.delay, s.restarter.Restart)
}

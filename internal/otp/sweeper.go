package otp

import (
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSweepSpec runs the expiry sweep once a minute.
const DefaultSweepSpec = "@every 1m"

// Sweeper periodically drops expired codes so abandoned resets do not
// accumulate. Expired codes are already unusable; sweeping only frees memory.
type Sweeper struct {
	cron  *cron.Cron
	codes *Store
	now   func() time.Time
	log   *zap.SugaredLogger
}

// SweepSpecFromEnv reads OTP_SWEEP_SPEC, falling back to DefaultSweepSpec.
func SweepSpecFromEnv() string {
	if v := os.Getenv("OTP_SWEEP_SPEC"); v != "" {
		return v
	}
	return DefaultSweepSpec
}

func NewSweeper(codes *Store, spec string, logger *zap.SugaredLogger) (*Sweeper, error) {
	s := &Sweeper{
		cron:  cron.New(),
		codes: codes,
		now:   time.Now,
		log:   logger,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) run() {
	if n := s.codes.Sweep(s.now()); n > 0 {
		s.log.Debugw("expired otp records swept", "count", n)
	}
}

func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

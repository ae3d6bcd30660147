// Package sweep periodically promotes requirements whose delivery date is
// close.
package sweep

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"gopkg.in/tomb.v2"
)

var logger = loggo.GetLogger("sweep")

// DefaultInterval is how often the sweep runs after the first pass.
const DefaultInterval = time.Hour

// Sweeper applies one urgency pass and reports how many requirements it
// promoted.
type Sweeper interface {
	SweepUrgency(ctx context.Context) (int, error)
}

type WorkerConfig struct {
	Target   Sweeper
	Clock    clock.Clock
	Interval time.Duration
}

func (c WorkerConfig) Validate() error {
	if c.Target == nil {
		return errors.NotValidf("missing Target")
	}
	if c.Clock == nil {
		return errors.NotValidf("missing Clock")
	}
	if c.Interval <= 0 {
		return errors.NotValidf("non-positive Interval")
	}
	return nil
}

// Worker sweeps once on start and then every Interval until killed.
type Worker struct {
	tomb tomb.Tomb
	cfg  WorkerConfig
}

func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &Worker{cfg: cfg}
	w.tomb.Go(w.loop)
	return w, nil
}

func (w *Worker) Kill() {
	w.tomb.Kill(nil)
}

func (w *Worker) Wait() error {
	return w.tomb.Wait()
}

func (w *Worker) loop() error {
	w.sweep()

	timer := w.cfg.Clock.NewTimer(w.cfg.Interval)
	defer timer.Stop()
	for {
		select {
		case <-w.tomb.Dying():
			return tomb.ErrDying
		case <-timer.Chan():
			w.sweep()
			timer.Reset(w.cfg.Interval)
		}
	}
}

// sweep never stops the worker; failed sessions are retried next round.
func (w *Worker) sweep() {
	ctx := w.tomb.Context(context.Background())
	promoted, err := w.cfg.Target.SweepUrgency(ctx)
	if err != nil {
		logger.Errorf("urgency sweep: %v", err)
	}
	if promoted > 0 {
		logger.Infof("urgency sweep promoted %d requirement(s)", promoted)
	}
}

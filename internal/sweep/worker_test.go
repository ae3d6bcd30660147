package sweep_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"

	"refractory-tracker/internal/sweep"
)

const longWait = 10 * time.Second

type fakeSweeper struct {
	calls chan struct{}
	err   error
}

func (f *fakeSweeper) SweepUrgency(ctx context.Context) (int, error) {
	f.calls <- struct{}{}
	return 1, f.err
}

func waitCall(c *qt.C, calls chan struct{}) {
	select {
	case <-calls:
	case <-time.After(longWait):
		c.Fatalf("timed out waiting for sweep")
	}
}

func TestWorkerSweepsOnStartAndEveryInterval(t *testing.T) {
	c := qt.New(t)
	clk := testclock.NewClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	target := &fakeSweeper{calls: make(chan struct{}, 1)}

	w, err := sweep.NewWorker(sweep.WorkerConfig{Target: target, Clock: clk, Interval: time.Hour})
	c.Assert(err, qt.IsNil)
	defer func() {
		w.Kill()
		c.Assert(w.Wait(), qt.IsNil)
	}()

	waitCall(c, target.calls)
	for i := 0; i < 2; i++ {
		c.Assert(clk.WaitAdvance(time.Hour, longWait, 1), qt.IsNil)
		waitCall(c, target.calls)
	}
}

func TestWorkerKeepsRunningAfterErrors(t *testing.T) {
	c := qt.New(t)
	clk := testclock.NewClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	target := &fakeSweeper{calls: make(chan struct{}, 1), err: stderrors.New("store down")}

	w, err := sweep.NewWorker(sweep.WorkerConfig{Target: target, Clock: clk, Interval: time.Minute})
	c.Assert(err, qt.IsNil)
	waitCall(c, target.calls)
	c.Assert(clk.WaitAdvance(time.Minute, longWait, 1), qt.IsNil)
	waitCall(c, target.calls)

	w.Kill()
	c.Assert(w.Wait(), qt.IsNil)
}

func TestWorkerConfigValidation(t *testing.T) {
	c := qt.New(t)
	clk := testclock.NewClock(time.Now())
	_, err := sweep.NewWorker(sweep.WorkerConfig{Clock: clk, Interval: time.Hour})
	c.Assert(err, qt.ErrorMatches, "missing Target not valid")
	_, err = sweep.NewWorker(sweep.WorkerConfig{Target: &fakeSweeper{}, Clock: clk})
	c.Assert(err, qt.ErrorMatches, "non-positive Interval not valid")
}

package tracker

import (
	"context"

	"github.com/juju/errors"
)

// SweepUrgency rebuilds every requirement's supplied quantities from the
// ledger, promotes open requirements whose delivery is due soon and returns
// how many were promoted. Running it twice in a row promotes nothing the
// second time.
func (c *Coordinator) SweepUrgency(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	repaired, promoted, err := c.reconcileAll(ctx, c.reqs, c.ledger)
	if repaired > 0 || promoted > 0 {
		c.notify()
	}
	if repaired > 0 {
		logger.Infof("repaired %d requirement(s) from supply history for %s", repaired, c.ownerID)
	}
	if promoted > 0 {
		logger.Infof("promoted %d requirement(s) to Urgent for %s", promoted, c.ownerID)
	}
	if err != nil {
		return promoted, errors.Trace(err)
	}
	return promoted, nil
}

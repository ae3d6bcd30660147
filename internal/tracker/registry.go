package tracker

import (
	"context"
	"sort"
	"sync"

	"github.com/juju/errors"
)

// Registry hands out one loaded Coordinator per owner.
type Registry struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Coordinator
}

func NewRegistry(cfg Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Registry{cfg: cfg, sessions: make(map[string]*Coordinator)}, nil
}

// Session returns the owner's coordinator, loading it on first use. A
// failed load is retried by the next call.
func (r *Registry) Session(ctx context.Context, ownerID string) (*Coordinator, error) {
	r.mu.Lock()
	c, ok := r.sessions[ownerID]
	if !ok {
		var err error
		if c, err = NewCoordinator(ownerID, r.cfg); err != nil {
			r.mu.Unlock()
			return nil, errors.Trace(err)
		}
		r.sessions[ownerID] = c
	}
	r.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return nil, errors.Annotatef(err, "loading session for %s", ownerID)
	}
	return c, nil
}

// Sessions lists coordinators that have loaded, ordered by owner id.
func (r *Registry) Sessions() []*Coordinator {
	r.mu.Lock()
	all := make([]*Coordinator, 0, len(r.sessions))
	for _, c := range r.sessions {
		all = append(all, c)
	}
	r.mu.Unlock()

	out := all[:0]
	for _, c := range all {
		c.mu.Lock()
		loaded := c.loaded
		c.mu.Unlock()
		if loaded {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ownerID < out[j].ownerID })
	return out
}

// SweepUrgency runs the urgency pass on every loaded session. A failing
// session does not stop the others; the last error is returned.
func (r *Registry) SweepUrgency(ctx context.Context) (int, error) {
	var (
		total   int
		lastErr error
	)
	for _, c := range r.Sessions() {
		n, err := c.SweepUrgency(ctx)
		total += n
		if err != nil {
			logger.Errorf("urgency sweep for %s: %v", c.OwnerID(), err)
			lastErr = errors.Annotatef(err, "urgency sweep for %s", c.OwnerID())
		}
	}
	return total, lastErr
}

// Package tracker owns the in-memory snapshot of one owner's purchase
// orders, requirements and supply ledger, and applies every mutation to the
// entity store and the snapshot in a fixed order.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"refractory-tracker/internal/audit"
	"refractory-tracker/internal/blob"
	"refractory-tracker/internal/models"
	"refractory-tracker/internal/reconcile"
	"refractory-tracker/internal/store"
)

var logger = loggo.GetLogger("tracker.coordinator")

// AuditSink receives one entry per successful mutation.
type AuditSink interface {
	WriteLog(ctx context.Context, opts audit.LogOptions) error
}

type Config struct {
	Store store.EntityStore
	Clock clock.Clock

	// Blobs holds PO documents. Document operations fail with NotSupported
	// when it is nil.
	Blobs blob.Store

	// Audit and OnChange are optional.
	Audit    AuditSink
	OnChange func(ownerID string)

	UrgentThresholdDays int
}

func (cfg Config) Validate() error {
	if cfg.Store == nil {
		return errors.NotValidf("nil Store")
	}
	if cfg.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if cfg.UrgentThresholdDays < 0 {
		return errors.NotValidf("negative UrgentThresholdDays")
	}
	return nil
}

// Coordinator is one owner's session. It is the only writer of its
// snapshot; all methods are safe for concurrent use and run one at a time.
type Coordinator struct {
	ownerID string
	cfg     Config

	mu     sync.Mutex
	loaded bool
	pos    []models.PurchaseOrder
	reqs   []models.Requirement
	ledger []models.SupplyEvent
}

func NewCoordinator(ownerID string, cfg Config) (*Coordinator, error) {
	if ownerID == "" {
		return nil, errors.NotValidf("empty owner id")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Coordinator{ownerID: ownerID, cfg: cfg}, nil
}

func (c *Coordinator) OwnerID() string { return c.ownerID }

// Load replaces the snapshot with the owner's stored entities, rebuilds
// every requirement's supplied quantities from the ledger and applies one
// urgency pass. Requirements that change are written back.
func (c *Coordinator) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

func (c *Coordinator) ensureLoaded(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}
	return c.load(ctx)
}

func (c *Coordinator) load(ctx context.Context) error {
	poRecs, err := c.cfg.Store.QueryByOwner(ctx, store.PurchaseOrders, c.ownerID)
	if err != nil {
		return errors.Annotate(err, "loading purchase orders")
	}
	reqRecs, err := c.cfg.Store.QueryByOwner(ctx, store.Requirements, c.ownerID)
	if err != nil {
		return errors.Annotate(err, "loading requirements")
	}
	ledgerRecs, err := c.cfg.Store.QueryByOwner(ctx, store.SupplyHistory, c.ownerID)
	if err != nil {
		return errors.Annotate(err, "loading supply history")
	}

	pos := make([]models.PurchaseOrder, 0, len(poRecs))
	for _, rec := range poRecs {
		po, err := store.PurchaseOrderFromRecord(rec)
		if err != nil {
			logger.Warningf("skipping unreadable purchase order for %s: %v", c.ownerID, err)
			continue
		}
		pos = append(pos, po)
	}
	reqs := make([]models.Requirement, 0, len(reqRecs))
	for _, rec := range reqRecs {
		r, err := store.RequirementFromRecord(rec)
		if err != nil {
			logger.Warningf("skipping unreadable requirement for %s: %v", c.ownerID, err)
			continue
		}
		reqs = append(reqs, r)
	}
	ledger := make([]models.SupplyEvent, 0, len(ledgerRecs))
	for _, rec := range ledgerRecs {
		e, err := store.SupplyEventFromRecord(rec)
		if err != nil {
			logger.Warningf("skipping unreadable supply event for %s: %v", c.ownerID, err)
			continue
		}
		ledger = append(ledger, e)
	}

	// The snapshot is installed only once every repair write succeeded, so a
	// failed load leaves the session unloaded and the next call retries.
	repaired, _, err := c.reconcileAll(ctx, reqs, ledger)
	if err != nil {
		return errors.Trace(err)
	}
	c.pos, c.reqs, c.ledger = pos, reqs, ledger
	c.loaded = true
	if repaired > 0 {
		logger.Infof("repaired %d requirement(s) for %s on load", repaired, c.ownerID)
	}
	logger.Debugf("loaded %d purchase orders, %d requirements, %d supply events for %s",
		len(c.pos), len(c.reqs), len(c.ledger), c.ownerID)
	return nil
}

// reconcileAll rebuilds every requirement in reqs from the ledger and
// applies one urgency pass, writing back the ones that changed. reqs is
// updated in place as each write succeeds. It reports how many cached
// quantities were repaired and how many requirements were promoted.
func (c *Coordinator) reconcileAll(ctx context.Context, reqs []models.Requirement, ledger []models.SupplyEvent) (repaired, promoted int, err error) {
	now := c.now()
	for i, r := range reqs {
		next := reconcile.ApplyLedger(r, ledger)
		next = reconcile.ApplyUrgencyPromotion(next, c.cfg.UrgentThresholdDays, now)
		if !requirementChanged(r, next) {
			continue
		}
		next.UpdatedAt = now
		patch := store.RequirementToRecord(next).Pick(
			store.ColSelectedItems, store.ColStatus, store.ColPriority, store.ColUpdatedAt)
		if err := c.cfg.Store.Update(ctx, store.Requirements, r.ID, patch); err != nil {
			logger.Errorf("reconciling requirement %s: %v", r.ID, err)
			return repaired, promoted, errors.Annotatef(err, "reconciling requirement %s", r.ID)
		}
		reqs[i] = next
		if r.Status != next.Status || !reconcile.SameItems(r.SelectedItems, next.SelectedItems) {
			repaired++
			c.audit(ctx, audit.EntityRequirement, r.ID, models.AuditActionUpdate,
				fmt.Sprintf("Supplied quantities of %s rebuilt from supply history", r.PONumber), r, next)
		}
		if r.Priority != next.Priority {
			promoted++
			c.audit(ctx, audit.EntityRequirement, r.ID, models.AuditActionUpdate,
				fmt.Sprintf("Priority of %s raised from %s to Urgent, delivery %s", r.PONumber, r.Priority, r.DeliveryDate),
				r, next)
		}
	}
	return repaired, promoted, nil
}

// now is truncated to what every supported database can store.
func (c *Coordinator) now() time.Time {
	return c.cfg.Clock.Now().UTC().Truncate(time.Microsecond)
}

func (c *Coordinator) notify() {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(c.ownerID)
	}
}

func (c *Coordinator) audit(ctx context.Context, entityType, entityID string, action models.AuditAction, description string, before, after any) {
	if c.cfg.Audit == nil {
		return
	}
	err := c.cfg.Audit.WriteLog(ctx, audit.LogOptions{
		UserID:      c.ownerID,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Description: description,
		Before:      before,
		After:       after,
	})
	if err != nil {
		logger.Warningf("audit for %s %s: %v", entityType, entityID, err)
	}
}

func (c *Coordinator) poIndex(id string) int {
	for i := range c.pos {
		if c.pos[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Coordinator) poIndexByNumber(number string) int {
	for i := range c.pos {
		if c.pos[i].PONumber == number {
			return i
		}
	}
	return -1
}

func (c *Coordinator) reqIndex(id string) int {
	for i := range c.reqs {
		if c.reqs[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Coordinator) ledgerIndex(id string) int {
	for i := range c.ledger {
		if c.ledger[i].ID == id {
			return i
		}
	}
	return -1
}

func requirementChanged(a, b models.Requirement) bool {
	return a.Status != b.Status || a.Priority != b.Priority || !reconcile.SameItems(a.SelectedItems, b.SelectedItems)
}

// saveRequirementDerived persists the ledger-derived columns of the
// requirement at index i and updates the snapshot on success.
func (c *Coordinator) saveRequirementDerived(ctx context.Context, i int, next models.Requirement) error {
	next.UpdatedAt = c.now()
	patch := store.RequirementToRecord(next).Pick(
		store.ColSelectedItems, store.ColStatus, store.ColUpdatedAt)
	if err := c.cfg.Store.Update(ctx, store.Requirements, next.ID, patch); err != nil {
		logger.Errorf("updating requirement %s: %v", next.ID, err)
		return errors.Annotatef(err, "updating requirement %s", next.ID)
	}
	c.reqs[i] = next
	return nil
}

// recompute rebuilds a requirement from the ledger and persists it when
// anything changed. Unknown requirement ids are ignored.
func (c *Coordinator) recompute(ctx context.Context, requirementID string) error {
	i := c.reqIndex(requirementID)
	if i < 0 {
		return nil
	}
	next := reconcile.ApplyLedger(c.reqs[i], c.ledger)
	if !requirementChanged(c.reqs[i], next) {
		return nil
	}
	return c.saveRequirementDerived(ctx, i, next)
}

package tracker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"
	"github.com/juju/errors"

	"refractory-tracker/internal/audit"
	"refractory-tracker/internal/models"
	"refractory-tracker/internal/reconcile"
	"refractory-tracker/internal/store"
	"refractory-tracker/internal/tracker"
)

const owner = "user-1"

var t0 = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.LogOptions
}

func (a *recordingAudit) WriteLog(_ context.Context, opts audit.LogOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, opts)
	return nil
}

func (a *recordingAudit) actions() []models.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.AuditAction
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	ctx     context.Context
	store   *store.MemoryStore
	clock   *testclock.Clock
	audit   *recordingAudit
	changes int
	cfg     tracker.Config
	coord   *tracker.Coordinator
}

func newFixture(c *qt.C) *fixture {
	f := &fixture{
		ctx:   context.Background(),
		store: store.NewMemoryStore(),
		clock: testclock.NewClock(t0),
		audit: &recordingAudit{},
	}
	f.cfg = tracker.Config{
		Store:               f.store,
		Clock:               f.clock,
		Audit:               f.audit,
		OnChange:            func(string) { f.changes++ },
		UrgentThresholdDays: reconcile.DefaultUrgentThresholdDays,
	}
	coord, err := tracker.NewCoordinator(owner, f.cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(coord.Load(f.ctx), qt.IsNil)
	f.coord = coord
	return f
}

// reload builds a fresh session over the same store.
func (f *fixture) reload(c *qt.C) *tracker.Coordinator {
	coord, err := tracker.NewCoordinator(owner, f.cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(coord.Load(f.ctx), qt.IsNil)
	return coord
}

func (f *fixture) createPO(c *qt.C, number string, items ...models.POItem) models.PurchaseOrder {
	po, err := f.coord.CreatePO(f.ctx, tracker.POInput{
		PONumber:          number,
		PODate:            models.NewDate(2024, time.February, 20),
		AreaOfApplication: "Ladle",
		Items:             items,
	})
	c.Assert(err, qt.IsNil)
	return po
}

func (f *fixture) createRequirement(c *qt.C, number string, sel ...tracker.SelectionInput) models.Requirement {
	req, err := f.coord.CreateRequirement(f.ctx, tracker.RequirementInput{
		PONumber:      number,
		DeliveryDate:  models.NewDate(2024, time.April, 30),
		Priority:      models.PriorityMedium,
		SelectedItems: sel,
	})
	c.Assert(err, qt.IsNil)
	return req
}

func poItem(name string, qty int) models.POItem {
	return models.POItem{MaterialName: name, Quantity: qty, Unit: models.UnitPcs}
}

func pick(name string, qty int) tracker.SelectionInput {
	return tracker.SelectionInput{MaterialName: name, QuantityRequired: qty}
}

func intp(n int) *int { return &n }

// assertLedgerSums checks every cached supplied quantity against the ledger.
func assertLedgerSums(c *qt.C, coord *tracker.Coordinator) {
	snap := coord.Snapshot()
	for _, r := range snap.Requirements {
		for _, item := range r.SelectedItems {
			c.Assert(item.QuantitySupplied, qt.Equals, reconcile.LedgerSum(snap.Ledger, r.ID, item.MaterialName),
				qt.Commentf("requirement %s material %s", r.ID, item.MaterialName))
		}
		c.Assert(r.Status, qt.Equals, reconcile.DeriveRequirementStatus(r.SelectedItems))
	}
}

func TestNewCoordinatorValidatesConfig(t *testing.T) {
	c := qt.New(t)
	_, err := tracker.NewCoordinator(owner, tracker.Config{Clock: testclock.NewClock(t0)})
	c.Assert(err, qt.ErrorMatches, "nil Store not valid")
	_, err = tracker.NewCoordinator("", tracker.Config{Store: store.NewMemoryStore(), Clock: testclock.NewClock(t0)})
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
}

func TestEndToEnd(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	po := f.createPO(c, "PO-100", poItem("Brick A", 100))
	c.Assert(po.Items[0].BalanceQty, qt.Equals, 100)

	req := f.createRequirement(c, "PO-100", pick("Brick A", 40))
	c.Assert(req.Status, qt.Equals, models.StatusPending)
	c.Assert(req.SelectedItems[0].QuantitySupplied, qt.Equals, 0)
	c.Assert(req.SelectedItems[0].Unit, qt.Equals, models.UnitPcs)
	c.Assert(req.AreaOfApplication, qt.Equals, "Ladle")

	_, err := f.coord.CreateRequirement(f.ctx, tracker.RequirementInput{
		PONumber:      "PO-100",
		DeliveryDate:  models.NewDate(2024, time.April, 30),
		SelectedItems: []tracker.SelectionInput{pick("Brick A", 150)},
	})
	c.Assert(err, qt.ErrorIs, reconcile.ErrExceedsAvailable)
	c.Assert(f.coord.Requirements(), qt.HasLen, 1)

	event, err := f.coord.RecordSupply(f.ctx, tracker.SupplyInput{
		RequirementID: req.ID,
		MaterialName:  "Brick A",
		Quantity:      40,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(event.Date, qt.Equals, models.NewDate(2024, time.March, 1))
	c.Assert(event.PONumber, qt.Equals, "PO-100")
	c.Assert(f.coord.Ledger(), qt.HasLen, 1)

	got, err := f.coord.Requirement(req.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.SelectedItems[0].QuantitySupplied, qt.Equals, 40)
	c.Assert(got.Status, qt.Equals, models.StatusCompleted)
	gotPO, err := f.coord.PurchaseOrder(po.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(gotPO.Items[0].BalanceQty, qt.Equals, 60)

	_, err = f.coord.RecordSupply(f.ctx, tracker.SupplyInput{RequirementID: req.ID, MaterialName: "Brick A", Quantity: 10})
	c.Assert(err, qt.ErrorIs, reconcile.ErrOutOfRange)
	c.Assert(f.coord.Ledger(), qt.HasLen, 1)

	edited, err := f.coord.EditSupplyHistory(f.ctx, []tracker.SupplyEdit{{ID: event.ID, Quantity: intp(20)}})
	c.Assert(err, qt.IsNil)
	c.Assert(edited, qt.HasLen, 1)
	got, err = f.coord.Requirement(req.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.SelectedItems[0].QuantitySupplied, qt.Equals, 20)
	c.Assert(got.Status, qt.Equals, models.StatusInProgress)
	// Edits leave PO balances alone.
	gotPO, _ = f.coord.PurchaseOrder(po.ID)
	c.Assert(gotPO.Items[0].BalanceQty, qt.Equals, 60)

	// The store agrees with the snapshot.
	fresh := f.reload(c)
	c.Assert(fresh.Snapshot(), qt.DeepEquals, f.coord.Snapshot())
}

func TestLoadRepairsCacheDrift(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	req := models.Requirement{
		ID:           "req-1",
		OwnerID:      owner,
		PONumber:     "PO-1",
		DeliveryDate: models.NewDate(2024, time.June, 1),
		Priority:     models.PriorityLow,
		Status:       models.StatusPending,
		SelectedItems: []models.RequirementItem{
			{MaterialName: "Brick", QuantityRequired: 10, QuantitySupplied: 0, Unit: models.UnitPcs},
		},
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	_, err := f.store.Insert(f.ctx, store.Requirements, store.RequirementToRecord(req))
	c.Assert(err, qt.IsNil)
	for i, qty := range []int{3, 4} {
		_, err := f.store.Insert(f.ctx, store.SupplyHistory, store.SupplyEventToRecord(models.SupplyEvent{
			ID:            []string{"s1", "s2"}[i],
			OwnerID:       owner,
			RequirementID: "req-1",
			MaterialName:  "Brick",
			Quantity:      qty,
			Date:          models.NewDate(2024, time.February, 1),
			CreatedAt:     t0,
		}))
		c.Assert(err, qt.IsNil)
	}

	coord := f.reload(c)
	got, err := coord.Requirement("req-1")
	c.Assert(err, qt.IsNil)
	c.Assert(got.SelectedItems[0].QuantitySupplied, qt.Equals, 7)
	c.Assert(got.Status, qt.Equals, models.StatusInProgress)

	row, ok := f.store.Get(store.Requirements, "req-1")
	c.Assert(ok, qt.IsTrue)
	stored, err := store.RequirementFromRecord(row)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.SelectedItems[0].QuantitySupplied, qt.Equals, 7)
	c.Assert(stored.Status, qt.Equals, models.StatusInProgress)
}

func TestLoadPromotesDueRequirements(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.createPO(c, "PO-1", poItem("Brick", 10))
	req := f.createRequirement(c, "PO-1", pick("Brick", 5))
	c.Assert(req.Priority, qt.Equals, models.PriorityMedium)

	f.clock.Advance(57 * 24 * time.Hour)
	coord := f.reload(c)
	got, err := coord.Requirement(req.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Priority, qt.Equals, models.PriorityUrgent)
}

func TestAuditAndChangeHook(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.createPO(c, "PO-1", poItem("Brick", 10))
	req := f.createRequirement(c, "PO-1", pick("Brick", 5))
	_, err := f.coord.RecordSupply(f.ctx, tracker.SupplyInput{RequirementID: req.ID, MaterialName: "Brick", Quantity: 2})
	c.Assert(err, qt.IsNil)
	c.Assert(f.coord.DeleteRequirement(f.ctx, req.ID), qt.IsNil)

	c.Assert(f.audit.actions(), qt.DeepEquals, []models.AuditAction{
		models.AuditActionCreate,
		models.AuditActionCreate,
		models.AuditActionCreate,
		models.AuditActionUpdate,
		models.AuditActionUpdate,
		models.AuditActionDelete,
	})
	c.Assert(f.audit.entries[2].EntityType, qt.Equals, audit.EntitySupplyEvent)
	c.Assert(f.audit.entries[2].UserID, qt.Equals, owner)

	// Supply also records the requirement and balance it changed.
	reqAfter := f.audit.entries[3].After.(models.Requirement)
	c.Assert(f.audit.entries[3].EntityType, qt.Equals, audit.EntityRequirement)
	c.Assert(reqAfter.Status, qt.Equals, models.StatusInProgress)
	c.Assert(f.audit.entries[3].Before.(models.Requirement).Status, qt.Equals, models.StatusPending)
	poBefore := f.audit.entries[4].Before.(models.PurchaseOrder)
	poAfter := f.audit.entries[4].After.(models.PurchaseOrder)
	c.Assert(f.audit.entries[4].EntityType, qt.Equals, audit.EntityPurchaseOrder)
	c.Assert(poBefore.Items[0].BalanceQty, qt.Equals, 10)
	c.Assert(poAfter.Items[0].BalanceQty, qt.Equals, 8)
	c.Assert(f.changes, qt.Equals, 4)
}

func TestReadSideReturnsCopies(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	po := f.createPO(c, "PO-1", poItem("Brick", 10))

	pos := f.coord.PurchaseOrders()
	pos[0].Items[0].BalanceQty = 0
	got, err := f.coord.PurchaseOrder(po.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Items[0].BalanceQty, qt.Equals, 10)

	_, err = f.coord.PurchaseOrder("missing")
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
	_, err = f.coord.Requirement("missing")
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
}

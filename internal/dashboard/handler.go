package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/loggo"

	"refractory-tracker/internal/auth"
	"refractory-tracker/internal/cache"
	"refractory-tracker/internal/tracker"
)

var logger = loggo.GetLogger("dashboard")

const (
	DefaultCacheTTL   = 10 * time.Minute
	invalidateTimeout = 3 * time.Second

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Sessions yields the loaded coordinator of an owner.
type Sessions interface {
	Session(ctx context.Context, ownerID string) (*tracker.Coordinator, error)
}

type Handlers struct {
	sessions Sessions
	cache    cache.Cache
	ttl      time.Duration
}

func NewHandlers(sessions Sessions, c cache.Cache, ttl time.Duration) *Handlers {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Handlers{sessions: sessions, cache: c, ttl: ttl}
}

func summaryKey(ownerID string) string   { return "dashboard:" + ownerID + ":summary" }
func analyticsKey(ownerID string) string { return "dashboard:" + ownerID + ":analytics" }

// Invalidate drops the cached views of ownerID. It has the shape of the
// coordinator change hook.
func (h *Handlers) Invalidate(ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	if err := h.cache.Del(ctx, summaryKey(ownerID), analyticsKey(ownerID)); err != nil {
		logger.Warningf("invalidating dashboard cache of %s: %v", ownerID, err)
	}
}

// cached serves key from the cache, or computes, stores and serves it.
func cached[T any](c *fiber.Ctx, h *Handlers, key string, compute func(tracker.Snapshot) T) error {
	ctx := c.UserContext()
	var v T
	if ok, err := h.cache.Get(ctx, key, &v); err != nil {
		logger.Warningf("reading %s: %v", key, err)
	} else if ok {
		c.Set("X-Cache", "HIT")
		return c.JSON(v)
	}

	session, err := h.sessions.Session(ctx, auth.OwnerID(c))
	if err != nil {
		return err
	}
	v = compute(session.Snapshot())
	if err := h.cache.Set(ctx, key, v, h.ttl); err != nil {
		logger.Warningf("writing %s: %v", key, err)
	}
	c.Set("X-Cache", "MISS")
	return c.JSON(v)
}

// GET /api/dashboard/summary
func (h *Handlers) Summary() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return cached(c, h, summaryKey(auth.OwnerID(c)), func(s tracker.Snapshot) Summary {
			return Summarize(s.Requirements)
		})
	}
}

// GET /api/dashboard/analytics
func (h *Handlers) Analytics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return cached(c, h, analyticsKey(auth.OwnerID(c)), func(s tracker.Snapshot) Analytics {
			return Analyze(s.PurchaseOrders, s.Requirements)
		})
	}
}

// GET /api/reports/requirements.xlsx
func (h *Handlers) ExportRequirements() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := h.sessions.Session(c.UserContext(), auth.OwnerID(c))
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := WriteRequirementsReport(&buf, session.Requirements()); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, xlsxContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="requirements_%s.xlsx"`, time.Now().UTC().Format("20060102")))
		return c.Send(buf.Bytes())
	}
}

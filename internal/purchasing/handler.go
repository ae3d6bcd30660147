// Package purchasing is the JSON API over purchase orders, requirements
// and the supply ledger. Every handler works on the caller's session.
package purchasing

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"refractory-tracker/internal/auth"
	"refractory-tracker/internal/tracker"
)

type Sessions interface {
	Session(ctx context.Context, ownerID string) (*tracker.Coordinator, error)
}

type Handlers struct {
	sessions Sessions
}

func NewHandlers(sessions Sessions) *Handlers {
	return &Handlers{sessions: sessions}
}

func (h *Handlers) session(c *fiber.Ctx) (*tracker.Coordinator, error) {
	owner := auth.OwnerID(c)
	if owner == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "no authenticated user")
	}
	return h.sessions.Session(c.UserContext(), owner)
}

// Register mounts the routes on an authenticated router.
func (h *Handlers) Register(r fiber.Router) {
	po := r.Group("/purchase-orders")
	po.Get("/", h.ListPurchaseOrders())
	po.Post("/", h.CreatePurchaseOrder())
	po.Post("/import-items", ImportItemsHandler())
	po.Get("/:id", h.GetPurchaseOrder())
	po.Put("/:id", h.UpdatePurchaseOrder())
	po.Delete("/:id", h.DeletePurchaseOrder())
	po.Post("/:id/balance", h.AdjustBalance())
	po.Post("/:id/document", h.AttachDocument())
	po.Get("/:id/document", h.DownloadDocument())
	po.Delete("/:id/document", h.RemoveDocument())

	req := r.Group("/requirements")
	req.Get("/", h.ListRequirements())
	req.Post("/", h.CreateRequirement())
	req.Get("/:id", h.GetRequirement())
	req.Put("/:id", h.UpdateRequirement())
	req.Delete("/:id", h.DeleteRequirement())
	req.Post("/:id/supply", h.RecordSupply())

	r.Get("/supply-queue", h.SupplyQueue())
	r.Get("/supply-history", h.SupplyHistory())
	r.Put("/supply-history", h.EditSupplyHistory())
	r.Delete("/supply-history/:id", h.DeleteSupplyEvent())
}

func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return nil
}

// list keeps empty results as [] in JSON.
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

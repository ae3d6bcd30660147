package purchasing

import (
	"github.com/gofiber/fiber/v2"

	"refractory-tracker/internal/tracker"
)

type EditHistoryRequest struct {
	Edits []tracker.SupplyEdit `json:"edits"`
}

// GET /api/supply-queue?po_number=PO-1
func (h *Handlers) SupplyQueue() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		return c.JSON(list(s.SupplyQueue(c.Query("po_number"))))
	}
}

// GET /api/supply-history?requirement_id=...&material_name=...
func (h *Handlers) SupplyHistory() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		return c.JSON(list(s.History(c.Query("requirement_id"), c.Query("material_name"))))
	}
}

// PUT /api/supply-history
func (h *Handlers) EditSupplyHistory() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body EditHistoryRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}
		if len(body.Edits) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "no edits given")
		}
		s, err := h.session(c)
		if err != nil {
			return err
		}
		edited, err := s.EditSupplyHistory(c.UserContext(), body.Edits)
		if err != nil {
			return err
		}
		return c.JSON(list(edited))
	}
}

// DELETE /api/supply-history/:id
func (h *Handlers) DeleteSupplyEvent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		if err := s.DeleteSupplyEvent(c.UserContext(), c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

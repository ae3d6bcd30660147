package purchasing

import (
	"github.com/gofiber/fiber/v2"

	"refractory-tracker/internal/reconcile"
	"refractory-tracker/internal/tracker"
)

// GET /api/requirements?po_number=PO-1
func (h *Handlers) ListRequirements() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		return c.JSON(list(reconcile.FilterByPONumber(s.Requirements(), c.Query("po_number"))))
	}
}

// POST /api/requirements
func (h *Handlers) CreateRequirement() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body tracker.RequirementInput
		if err := parseBody(c, &body); err != nil {
			return err
		}
		s, err := h.session(c)
		if err != nil {
			return err
		}
		req, err := s.CreateRequirement(c.UserContext(), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(req)
	}
}

// GET /api/requirements/:id
func (h *Handlers) GetRequirement() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		req, err := s.Requirement(c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(req)
	}
}

// PUT /api/requirements/:id
func (h *Handlers) UpdateRequirement() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body tracker.RequirementPatch
		if err := parseBody(c, &body); err != nil {
			return err
		}
		s, err := h.session(c)
		if err != nil {
			return err
		}
		req, err := s.UpdateRequirement(c.UserContext(), c.Params("id"), body)
		if err != nil {
			return err
		}
		return c.JSON(req)
	}
}

// DELETE /api/requirements/:id
func (h *Handlers) DeleteRequirement() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		if err := s.DeleteRequirement(c.UserContext(), c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/requirements/:id/supply
func (h *Handlers) RecordSupply() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body tracker.SupplyInput
		if err := parseBody(c, &body); err != nil {
			return err
		}
		body.RequirementID = c.Params("id")
		s, err := h.session(c)
		if err != nil {
			return err
		}
		event, err := s.RecordSupply(c.UserContext(), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(event)
	}
}

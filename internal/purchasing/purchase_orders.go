package purchasing

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"refractory-tracker/internal/blob"
	"refractory-tracker/internal/tracker"
)

type BalanceRequest struct {
	MaterialName string `json:"material_name"`
	BalanceQty   *int   `json:"balance_qty"`
}

// GET /api/purchase-orders
func (h *Handlers) ListPurchaseOrders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		return c.JSON(s.PurchaseOrders())
	}
}

// POST /api/purchase-orders
func (h *Handlers) CreatePurchaseOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body tracker.POInput
		if err := parseBody(c, &body); err != nil {
			return err
		}
		s, err := h.session(c)
		if err != nil {
			return err
		}
		po, err := s.CreatePO(c.UserContext(), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(po)
	}
}

// GET /api/purchase-orders/:id
func (h *Handlers) GetPurchaseOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		po, err := s.PurchaseOrder(c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(po)
	}
}

// PUT /api/purchase-orders/:id
func (h *Handlers) UpdatePurchaseOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body tracker.POPatch
		if err := parseBody(c, &body); err != nil {
			return err
		}
		s, err := h.session(c)
		if err != nil {
			return err
		}
		po, err := s.UpdatePO(c.UserContext(), c.Params("id"), body)
		if err != nil {
			return err
		}
		return c.JSON(po)
	}
}

// DELETE /api/purchase-orders/:id
func (h *Handlers) DeletePurchaseOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		if err := s.DeletePO(c.UserContext(), c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/purchase-orders/:id/balance
func (h *Handlers) AdjustBalance() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BalanceRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}
		if body.MaterialName == "" || body.BalanceQty == nil {
			return fiber.NewError(fiber.StatusBadRequest, "material_name and balance_qty are required")
		}
		s, err := h.session(c)
		if err != nil {
			return err
		}
		po, err := s.AdjustPOBalance(c.UserContext(), c.Params("id"), body.MaterialName, *body.BalanceQty)
		if err != nil {
			return err
		}
		return c.JSON(po)
	}
}

// POST /api/purchase-orders/:id/document (multipart, field "file")
func (h *Handlers) AttachDocument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "missing file: "+err.Error())
		}
		if fileHeader.Size > blob.MaxDocumentSize {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge,
				fmt.Sprintf("document larger than %d MiB", blob.MaxDocumentSize>>20))
		}
		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not open upload: "+err.Error())
		}
		defer file.Close()

		s, err := h.session(c)
		if err != nil {
			return err
		}
		po, err := s.AttachDocument(c.UserContext(), c.Params("id"), fileHeader.Filename, file)
		if err != nil {
			return err
		}
		return c.JSON(po)
	}
}

// GET /api/purchase-orders/:id/document
func (h *Handlers) DownloadDocument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		rc, doc, err := s.OpenDocument(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiName(doc.Name), url.PathEscape(doc.Name)))
		// The stream is closed by fasthttp once sent.
		return c.SendStream(rc)
	}
}

// DELETE /api/purchase-orders/:id/document
func (h *Handlers) RemoveDocument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		po, err := s.RemoveDocument(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(po)
	}
}

// asciiName replaces what cannot appear in a quoted header parameter.
func asciiName(name string) string {
	out := []rune(name)
	for i, r := range out {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "document.pdf"
	}
	return string(out)
}

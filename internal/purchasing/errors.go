package purchasing

import (
	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"refractory-tracker/internal/reconcile"
	"refractory-tracker/internal/store"
)

var logger = loggo.GetLogger("purchasing")

// ErrorHandler renders every error as {"error": ...}. Reconciliation
// failures also carry their code so clients can tell them apart.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		fe  *fiber.Error
		ve  *reconcile.ValidationError
		se  *store.StoreError
		msg = err.Error()
	)
	status := fiber.StatusInternalServerError
	switch {
	case errors.As(err, &fe):
		status, msg = fe.Code, fe.Message
	case errors.As(err, &ve):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":     ve.Error(),
			"code":      ve.Code,
			"material":  ve.Material,
			"requested": ve.Requested,
			"available": ve.Available,
		})
	case errors.Is(err, errors.NotFound):
		// Also a store error for a row removed behind the session's back.
		status = fiber.StatusNotFound
	case errors.Is(err, errors.AlreadyExists):
		status = fiber.StatusConflict
	case errors.As(err, &se):
		// The write may have partly happened; reloading shows the truth.
		logger.Errorf("%s %s: %v", c.Method(), c.Path(), err)
		status, msg = fiber.StatusBadGateway, "storage is unavailable, please retry"
	case errors.Is(err, errors.NotValid):
		status = fiber.StatusBadRequest
	case errors.Is(err, errors.NotSupported):
		status = fiber.StatusNotImplemented
	default:
		logger.Errorf("unexpected error on %s %s: %v", c.Method(), c.Path(), err)
		msg = "unexpected server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

package audit

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"refractory-tracker/internal/auth"
	"refractory-tracker/internal/models"
)

const defaultListLimit = 200

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      string             `json:"user_id"`
	EntityType  string             `json:"entity_type"`
	EntityID    string             `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	Before      json.RawMessage    `json:"before"`
	After       json.RawMessage    `json:"after"`
}

// GET /api/audit-logs?entity_type=requirement&entity_id=...&limit=50
func ListAuditLogsHandler(w *Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts := ListOptions{
			UserID:     auth.OwnerID(c),
			EntityType: c.Query("entity_type"),
			EntityID:   c.Query("entity_id"),
			Limit:      defaultListLimit,
		}
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
			}
			opts.Limit = n
		}

		logs, err := w.List(c.UserContext(), opts)
		if err != nil {
			return err
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          log.ID,
				CreatedAt:   log.CreatedAt.Format("2006-01-02 15:04:05"),
				UserID:      log.UserID,
				EntityType:  log.EntityType,
				EntityID:    log.EntityID,
				Action:      log.Action,
				Description: log.Description,
				Before:      rawJSON(log.BeforeData),
				After:       rawJSON(log.AfterData),
			})
		}
		return c.JSON(resp)
	}
}

func rawJSON(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}

package purchasing_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock/testclock"

	"refractory-tracker/internal/auth"
	"refractory-tracker/internal/blob"
	"refractory-tracker/internal/models"
	"refractory-tracker/internal/purchasing"
	"refractory-tracker/internal/reconcile"
	"refractory-tracker/internal/store"
	"refractory-tracker/internal/tracker"
)

const owner = "owner-1"

var t0 = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

type env struct {
	app   *fiber.App
	store *store.MemoryStore
}

func newEnv(c *qt.C) *env {
	clk := testclock.NewClock(t0)
	st := store.NewMemoryStore()
	registry, err := tracker.NewRegistry(tracker.Config{
		Store:               st,
		Clock:               clk,
		Blobs:               blob.NewLocalStore(c.TempDir(), "/documents", clk),
		UrgentThresholdDays: reconcile.DefaultUrgentThresholdDays,
	})
	c.Assert(err, qt.IsNil)

	app := fiber.New(fiber.Config{ErrorHandler: purchasing.ErrorHandler})
	api := app.Group("/api", func(ctx *fiber.Ctx) error {
		ctx.Locals(auth.CtxUserIDKey, owner)
		return ctx.Next()
	})
	purchasing.NewHandlers(registry).Register(api)
	return &env{app: app, store: st}
}

// call sends body as JSON (when a string) or as a prepared request body
// and decodes the response into dst when given.
func (e *env) call(c *qt.C, method, path, body string, dst any) int {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(c, req, dst)
}

func (e *env) send(c *qt.C, req *http.Request, dst any) int {
	resp, err := e.app.Test(req)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	if dst != nil {
		c.Assert(json.Unmarshal(data, dst), qt.IsNil, qt.Commentf("body: %s", data))
	}
	return resp.StatusCode
}

func multipartRequest(c *qt.C, path, fileName string, content []byte) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	c.Assert(err, qt.IsNil)
	_, err = part.Write(content)
	c.Assert(err, qt.IsNil)
	c.Assert(w.Close(), qt.IsNil)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

const poBody = `{
	"po_number": "PO-100",
	"po_date": "2024-02-20",
	"area_of_application": "Kiln",
	"items": [
		{"material_name": "Brick", "quantity": 10, "unit": "pcs"},
		{"material_name": "Mortar", "quantity": 4, "unit": "kgs"}
	]
}`

func (e *env) createPO(c *qt.C) models.PurchaseOrder {
	var po models.PurchaseOrder
	c.Assert(e.call(c, http.MethodPost, "/api/purchase-orders", poBody, &po), qt.Equals, fiber.StatusCreated)
	return po
}

func (e *env) createRequirement(c *qt.C, qty int) models.Requirement {
	var req models.Requirement
	body := fmt.Sprintf(`{"po_number":"PO-100","delivery_date":"2024-04-01","priority":"High",
		"selected_items":[{"material_name":"Brick","quantity_required":%d}]}`, qty)
	c.Assert(e.call(c, http.MethodPost, "/api/requirements", body, &req), qt.Equals, fiber.StatusCreated)
	return req
}

func TestSupplyFlow(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)

	po := e.createPO(c)
	c.Assert(po.Items[0].BalanceQty, qt.Equals, 10)

	req := e.createRequirement(c, 6)
	c.Assert(req.Status, qt.Equals, models.StatusPending)
	c.Assert(req.AreaOfApplication, qt.Equals, "Kiln")

	var event models.SupplyEvent
	status := e.call(c, http.MethodPost, "/api/requirements/"+req.ID+"/supply",
		`{"material_name":"Brick","quantity":4,"date":"2024-03-02"}`, &event)
	c.Assert(status, qt.Equals, fiber.StatusCreated)
	c.Assert(event.RequirementID, qt.Equals, req.ID)

	var got models.Requirement
	c.Assert(e.call(c, http.MethodGet, "/api/requirements/"+req.ID, "", &got), qt.Equals, fiber.StatusOK)
	c.Assert(got.Status, qt.Equals, models.StatusInProgress)
	c.Assert(got.SelectedItems[0].QuantitySupplied, qt.Equals, 4)

	c.Assert(e.call(c, http.MethodGet, "/api/purchase-orders/"+po.ID, "", &po), qt.Equals, fiber.StatusOK)
	c.Assert(po.Items[0].BalanceQty, qt.Equals, 6)

	var queue []models.Requirement
	c.Assert(e.call(c, http.MethodGet, "/api/supply-queue?po_number=po-1", "", &queue), qt.Equals, fiber.StatusOK)
	c.Assert(queue, qt.HasLen, 1)

	var history []models.SupplyEvent
	c.Assert(e.call(c, http.MethodGet, "/api/supply-history?requirement_id="+req.ID+"&material_name=Brick", "", &history), qt.Equals, fiber.StatusOK)
	c.Assert(history, qt.HasLen, 1)

	var edited []models.SupplyEvent
	status = e.call(c, http.MethodPut, "/api/supply-history",
		fmt.Sprintf(`{"edits":[{"id":%q,"quantity":6}]}`, event.ID), &edited)
	c.Assert(status, qt.Equals, fiber.StatusOK)
	c.Assert(edited[0].Quantity, qt.Equals, 6)
	c.Assert(e.call(c, http.MethodGet, "/api/requirements/"+req.ID, "", &got), qt.Equals, fiber.StatusOK)
	c.Assert(got.Status, qt.Equals, models.StatusCompleted)

	c.Assert(e.call(c, http.MethodGet, "/api/supply-queue", "", &queue), qt.Equals, fiber.StatusOK)
	c.Assert(queue, qt.HasLen, 0)

	c.Assert(e.call(c, http.MethodDelete, "/api/supply-history/"+event.ID, "", nil), qt.Equals, fiber.StatusNoContent)
	c.Assert(e.call(c, http.MethodGet, "/api/requirements/"+req.ID, "", &got), qt.Equals, fiber.StatusOK)
	c.Assert(got.Status, qt.Equals, models.StatusPending)

	c.Assert(e.call(c, http.MethodDelete, "/api/requirements/"+req.ID, "", nil), qt.Equals, fiber.StatusNoContent)
	c.Assert(e.call(c, http.MethodGet, "/api/requirements/"+req.ID, "", nil), qt.Equals, fiber.StatusNotFound)

	var reqs []models.Requirement
	c.Assert(e.call(c, http.MethodGet, "/api/requirements", "", &reqs), qt.Equals, fiber.StatusOK)
	c.Assert(reqs, qt.HasLen, 0)
}

func TestValidationErrors(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	e.createPO(c)
	req := e.createRequirement(c, 5)

	var body map[string]any
	status := e.call(c, http.MethodPost, "/api/requirements/"+req.ID+"/supply",
		`{"material_name":"Brick","quantity":9}`, &body)
	c.Assert(status, qt.Equals, fiber.StatusUnprocessableEntity)
	c.Assert(body["code"], qt.Equals, "OutOfRange")
	c.Assert(body["available"], qt.Equals, float64(5))

	status = e.call(c, http.MethodPost, "/api/requirements",
		`{"po_number":"PO-100","delivery_date":"2024-04-01","selected_items":[{"material_name":"Mortar","quantity_required":5}]}`, &body)
	c.Assert(status, qt.Equals, fiber.StatusUnprocessableEntity)
	c.Assert(body["code"], qt.Equals, "ExceedsAvailable")

	status = e.call(c, http.MethodPost, "/api/purchase-orders", poBody, &body)
	c.Assert(status, qt.Equals, fiber.StatusConflict)

	status = e.call(c, http.MethodPost, "/api/requirements",
		`{"po_number":"PO-100","selected_items":[{"material_name":"Brick","quantity_required":1}]}`, &body)
	c.Assert(status, qt.Equals, fiber.StatusBadRequest)
	c.Assert(body["error"], qt.Equals, "missing delivery date not valid")

	status = e.call(c, http.MethodPost, "/api/requirements", `{not json`, &body)
	c.Assert(status, qt.Equals, fiber.StatusBadRequest)

	status = e.call(c, http.MethodPost, "/api/purchase-orders/nope/balance", `{"material_name":"Brick"}`, &body)
	c.Assert(status, qt.Equals, fiber.StatusBadRequest)
}

func TestStoreFailureIsBadGateway(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	po := e.createPO(c)
	e.store.FailOn(func(op string, table store.Table, id string) error {
		if op == "update" {
			return fmt.Errorf("connection reset")
		}
		return nil
	})
	var body map[string]any
	status := e.call(c, http.MethodPost, "/api/purchase-orders/"+po.ID+"/balance",
		`{"material_name":"Brick","balance_qty":3}`, &body)
	c.Assert(status, qt.Equals, fiber.StatusBadGateway)
	c.Assert(body["error"], qt.Equals, "storage is unavailable, please retry")
}

func TestPurchaseOrderCRUD(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	po := e.createPO(c)

	var updated models.PurchaseOrder
	status := e.call(c, http.MethodPut, "/api/purchase-orders/"+po.ID, `{"area_of_application":"Ladle"}`, &updated)
	c.Assert(status, qt.Equals, fiber.StatusOK)
	c.Assert(updated.AreaOfApplication, qt.Equals, "Ladle")
	c.Assert(updated.Items, qt.HasLen, 2)

	status = e.call(c, http.MethodPost, "/api/purchase-orders/"+po.ID+"/balance", `{"material_name":"Mortar","balance_qty":1}`, &updated)
	c.Assert(status, qt.Equals, fiber.StatusOK)
	c.Assert(updated.Items[1].BalanceQty, qt.Equals, 1)

	var pos []models.PurchaseOrder
	c.Assert(e.call(c, http.MethodGet, "/api/purchase-orders", "", &pos), qt.Equals, fiber.StatusOK)
	c.Assert(pos, qt.HasLen, 1)

	c.Assert(e.call(c, http.MethodDelete, "/api/purchase-orders/"+po.ID, "", nil), qt.Equals, fiber.StatusNoContent)
	c.Assert(e.call(c, http.MethodGet, "/api/purchase-orders/"+po.ID, "", nil), qt.Equals, fiber.StatusNotFound)
}

func TestDocuments(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	po := e.createPO(c)
	path := "/api/purchase-orders/" + po.ID + "/document"

	var body map[string]any
	status := e.send(c, multipartRequest(c, path, "order.txt", []byte("hello")), &body)
	c.Assert(status, qt.Equals, fiber.StatusBadRequest)

	c.Assert(e.call(c, http.MethodGet, path, "", &body), qt.Equals, fiber.StatusNotFound)

	pdf := []byte("%PDF-1.4 order")
	var attached models.PurchaseOrder
	status = e.send(c, multipartRequest(c, path, "PO-100 signed.pdf", pdf), &attached)
	c.Assert(status, qt.Equals, fiber.StatusOK)
	c.Assert(attached.Document, qt.Not(qt.IsNil))
	c.Assert(attached.Document.Name, qt.Equals, "PO-100 signed.pdf")

	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.StatusCode, qt.Equals, fiber.StatusOK)
	c.Assert(resp.Header.Get("Content-Disposition"), qt.Matches, `attachment; filename="PO-100 signed.pdf".*`)
	data, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.DeepEquals, pdf)

	var removed models.PurchaseOrder
	c.Assert(e.call(c, http.MethodDelete, path, "", &removed), qt.Equals, fiber.StatusOK)
	c.Assert(removed.Document, qt.IsNil)
}

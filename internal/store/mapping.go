package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/juju/errors"
	"gorm.io/datatypes"

	"refractory-tracker/internal/models"
)

// Column names shared by the three tables.
const (
	ColID        = "id"
	ColUserID    = "user_id"
	ColPONumber  = "po_number"
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
)

const (
	ColPODate            = "po_date"
	ColAreaOfApplication = "area_of_application"
	ColItems             = "items"
	ColPDFFilePath       = "pdf_file_path"
	ColPDFFileURL        = "pdf_file_url"
	ColPDFFileName       = "pdf_file_name"

	ColDeliveryDate  = "delivery_date"
	ColPriority      = "priority"
	ColStatus        = "status"
	ColNotes         = "notes"
	ColSelectedItems = "selected_items"

	ColReqID        = "req_id"
	ColMaterialName = "material_name"
	ColQuantity     = "quantity"
	ColDate         = "date"
)

func PurchaseOrderToRecord(po models.PurchaseOrder) Record {
	rec := Record{
		ColID:                po.ID,
		ColUserID:            po.OwnerID,
		ColPONumber:          po.PONumber,
		ColPODate:            po.PODate.String(),
		ColAreaOfApplication: po.AreaOfApplication,
		ColItems:             jsonValue(po.Items),
		ColPDFFilePath:       nil,
		ColPDFFileURL:        nil,
		ColPDFFileName:       nil,
		ColCreatedAt:         po.CreatedAt,
		ColUpdatedAt:         po.UpdatedAt,
	}
	if po.Document != nil {
		rec[ColPDFFilePath] = po.Document.Path
		rec[ColPDFFileURL] = po.Document.URL
		rec[ColPDFFileName] = po.Document.Name
	}
	return rec
}

func PurchaseOrderFromRecord(rec Record) (models.PurchaseOrder, error) {
	var (
		po  models.PurchaseOrder
		err error
	)
	po.ID = asString(rec[ColID])
	po.OwnerID = asString(rec[ColUserID])
	po.PONumber = asString(rec[ColPONumber])
	po.AreaOfApplication = asString(rec[ColAreaOfApplication])
	if po.PODate, err = asDate(rec[ColPODate]); err != nil {
		return po, errors.Annotatef(err, "purchase order %q po_date", po.ID)
	}
	if err = decodeJSON(rec[ColItems], &po.Items); err != nil {
		return po, errors.Annotatef(err, "purchase order %q items", po.ID)
	}
	if path := asString(rec[ColPDFFilePath]); path != "" {
		po.Document = &models.Document{
			Path: path,
			URL:  asString(rec[ColPDFFileURL]),
			Name: asString(rec[ColPDFFileName]),
		}
	}
	if po.CreatedAt, err = asTime(rec[ColCreatedAt]); err != nil {
		return po, errors.Annotatef(err, "purchase order %q created_at", po.ID)
	}
	if po.UpdatedAt, err = asTime(rec[ColUpdatedAt]); err != nil {
		return po, errors.Annotatef(err, "purchase order %q updated_at", po.ID)
	}
	return po, nil
}

func RequirementToRecord(r models.Requirement) Record {
	return Record{
		ColID:                r.ID,
		ColUserID:            r.OwnerID,
		ColPONumber:          r.PONumber,
		ColAreaOfApplication: r.AreaOfApplication,
		ColDeliveryDate:      r.DeliveryDate.String(),
		ColPriority:          string(r.Priority),
		ColStatus:            string(r.Status),
		ColNotes:             optString(r.Notes),
		ColSelectedItems:     jsonValue(r.SelectedItems),
		ColCreatedAt:         r.CreatedAt,
		ColUpdatedAt:         r.UpdatedAt,
	}
}

func RequirementFromRecord(rec Record) (models.Requirement, error) {
	var (
		r   models.Requirement
		err error
	)
	r.ID = asString(rec[ColID])
	r.OwnerID = asString(rec[ColUserID])
	r.PONumber = asString(rec[ColPONumber])
	r.AreaOfApplication = asString(rec[ColAreaOfApplication])
	r.Priority = models.Priority(asString(rec[ColPriority]))
	r.Status = models.Status(asString(rec[ColStatus]))
	r.Notes = asString(rec[ColNotes])
	if r.DeliveryDate, err = asDate(rec[ColDeliveryDate]); err != nil {
		return r, errors.Annotatef(err, "requirement %q delivery_date", r.ID)
	}
	if err = decodeJSON(rec[ColSelectedItems], &r.SelectedItems); err != nil {
		return r, errors.Annotatef(err, "requirement %q selected_items", r.ID)
	}
	if r.CreatedAt, err = asTime(rec[ColCreatedAt]); err != nil {
		return r, errors.Annotatef(err, "requirement %q created_at", r.ID)
	}
	if r.UpdatedAt, err = asTime(rec[ColUpdatedAt]); err != nil {
		return r, errors.Annotatef(err, "requirement %q updated_at", r.ID)
	}
	return r, nil
}

// SupplyEventToRecord sets updated_at to the creation time; ledger rows
// carry the column but the entity does not.
func SupplyEventToRecord(e models.SupplyEvent) Record {
	return Record{
		ColID:           e.ID,
		ColUserID:       e.OwnerID,
		ColReqID:        e.RequirementID,
		ColPONumber:     e.PONumber,
		ColMaterialName: e.MaterialName,
		ColQuantity:     e.Quantity,
		ColDate:         e.Date.String(),
		ColNotes:        optString(e.Notes),
		ColCreatedAt:    e.CreatedAt,
		ColUpdatedAt:    e.CreatedAt,
	}
}

func SupplyEventFromRecord(rec Record) (models.SupplyEvent, error) {
	var (
		e   models.SupplyEvent
		err error
	)
	e.ID = asString(rec[ColID])
	e.OwnerID = asString(rec[ColUserID])
	e.RequirementID = asString(rec[ColReqID])
	e.PONumber = asString(rec[ColPONumber])
	e.MaterialName = asString(rec[ColMaterialName])
	e.Notes = asString(rec[ColNotes])
	if e.Quantity, err = asInt(rec[ColQuantity]); err != nil {
		return e, errors.Annotatef(err, "supply event %q quantity", e.ID)
	}
	if e.Date, err = asDate(rec[ColDate]); err != nil {
		return e, errors.Annotatef(err, "supply event %q date", e.ID)
	}
	if e.CreatedAt, err = asTime(rec[ColCreatedAt]); err != nil {
		return e, errors.Annotatef(err, "supply event %q created_at", e.ID)
	}
	return e, nil
}

// ItemsValue encodes a PO item list for an items column patch.
func ItemsValue(items []models.POItem) datatypes.JSON { return jsonValue(items) }

// SelectedItemsValue encodes requirement items for a selected_items patch.
func SelectedItemsValue(items []models.RequirementItem) datatypes.JSON { return jsonValue(items) }

// NotesValue maps empty notes to NULL.
func NotesValue(notes string) any { return optString(notes) }

func jsonValue(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		// Item slices of plain structs always marshal.
		panic(err)
	}
	return datatypes.JSON(b)
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

func asInt(v any) (int, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	case string:
		return strconv.Atoi(x)
	case []byte:
		return strconv.Atoi(string(x))
	}
	return 0, errors.NotValidf("integer value %T", v)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func asTime(v any) (time.Time, error) {
	var s string
	switch x := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return time.Time{}, nil
		}
		return *x, nil
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return time.Time{}, errors.NotValidf("time value %T", v)
	}
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.NotValidf("time %q", s)
}

func asDate(v any) (models.Date, error) {
	switch x := v.(type) {
	case time.Time:
		return models.DateOf(x), nil
	case models.Date:
		return x, nil
	}
	s := asString(v)
	if s == "" {
		return models.Date{}, nil
	}
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}, errors.NotValidf("date %q", s)
	}
	return d, nil
}

// decodeJSON accepts the encoded forms drivers hand back for JSON columns
// as well as already-decoded values.
func decodeJSON(v any, dst any) error {
	var b []byte
	switch x := v.(type) {
	case nil:
		return nil
	case datatypes.JSON:
		b = x
	case json.RawMessage:
		b = x
	case []byte:
		b = x
	case string:
		b = []byte(x)
	default:
		var err error
		if b, err = json.Marshal(x); err != nil {
			return errors.Trace(err)
		}
	}
	if len(b) == 0 {
		return nil
	}
	return errors.Trace(json.Unmarshal(b, dst))
}

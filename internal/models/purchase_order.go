package models

import (
	"time"

	"gorm.io/datatypes"
)

type Unit string

const (
	UnitPcs Unit = "pcs"
	UnitKgs Unit = "kgs"
	UnitSet Unit = "set"
)

func (u Unit) Valid() bool {
	switch u {
	case UnitPcs, UnitKgs, UnitSet:
		return true
	}
	return false
}

// POItem: one ordered material line. BalanceQty is the stock not yet supplied.
type POItem struct {
	MaterialName string `json:"material_name"`
	Quantity     int    `json:"quantity"`
	BalanceQty   int    `json:"balance_qty"`
	Unit         Unit   `json:"unit"`
}

// Document: opaque reference to the PDF attached to a PO.
type Document struct {
	Path string `json:"pdf_file_path"`
	URL  string `json:"pdf_file_url"`
	Name string `json:"pdf_file_name"`
}

type PurchaseOrder struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"user_id"`
	PONumber          string    `json:"po_number"`
	PODate            Date      `json:"po_date"`
	AreaOfApplication string    `json:"area_of_application"`
	Items             []POItem  `json:"items"`
	Document          *Document `json:"document,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Item returns the index of the named material, or -1.
func (po *PurchaseOrder) Item(materialName string) int {
	for i := range po.Items {
		if po.Items[i].MaterialName == materialName {
			return i
		}
	}
	return -1
}

func (po PurchaseOrder) Clone() PurchaseOrder {
	out := po
	out.Items = append([]POItem(nil), po.Items...)
	if po.Document != nil {
		doc := *po.Document
		out.Document = &doc
	}
	return out
}

// PurchaseOrderRow is the purchase_orders table schema.
type PurchaseOrderRow struct {
	ID                string         `gorm:"primaryKey;size:36"`
	UserID            string         `gorm:"size:36;index;not null"`
	PONumber          string         `gorm:"column:po_number;size:100;index;not null"`
	PODate            string         `gorm:"column:po_date;size:10"`
	AreaOfApplication string         `gorm:"size:255"`
	Items             datatypes.JSON `gorm:"not null"`
	PDFFilePath       *string        `gorm:"column:pdf_file_path;size:255"`
	PDFFileURL        *string        `gorm:"column:pdf_file_url;size:512"`
	PDFFileName       *string        `gorm:"column:pdf_file_name;size:255"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (PurchaseOrderRow) TableName() string { return "purchase_orders" }

package tracker

import (
	"context"
	"fmt"
	"io"

	"github.com/juju/errors"

	"refractory-tracker/internal/audit"
	"refractory-tracker/internal/models"
	"refractory-tracker/internal/store"
)

// AttachDocument uploads a PDF for the PO, replacing any earlier one.
func (c *Coordinator) AttachDocument(ctx context.Context, id, fileName string, r io.Reader) (models.PurchaseOrder, error) {
	if c.cfg.Blobs == nil {
		return models.PurchaseOrder{}, errors.NotSupportedf("document storage")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.poIndex(id)
	if i < 0 {
		return models.PurchaseOrder{}, errors.NotFoundf("purchase order %q", id)
	}
	before := c.pos[i]

	ref, err := c.cfg.Blobs.Upload(ctx, r, fileName, c.ownerID, id)
	if err != nil {
		return models.PurchaseOrder{}, errors.Annotatef(err, "uploading document for %s", before.PONumber)
	}

	next := before.Clone()
	next.Document = &models.Document{Path: ref.Path, URL: ref.URL, Name: fileName}
	if err := c.saveDocument(ctx, i, next); err != nil {
		c.dropDocument(ctx, ref.Path)
		return models.PurchaseOrder{}, err
	}
	if before.Document != nil && before.Document.Path != ref.Path {
		c.dropDocument(ctx, before.Document.Path)
	}

	c.audit(ctx, audit.EntityPurchaseOrder, id, models.AuditActionUpdate,
		fmt.Sprintf("Attached %s to %s", fileName, next.PONumber), before, next)
	c.notify()
	return next.Clone(), nil
}

// OpenDocument returns the PO's document contents. The caller closes it.
func (c *Coordinator) OpenDocument(ctx context.Context, id string) (io.ReadCloser, models.Document, error) {
	if c.cfg.Blobs == nil {
		return nil, models.Document{}, errors.NotSupportedf("document storage")
	}
	po, err := c.PurchaseOrder(id)
	if err != nil {
		return nil, models.Document{}, err
	}
	if po.Document == nil {
		return nil, models.Document{}, errors.NotFoundf("document for purchase order %s", po.PONumber)
	}
	rc, err := c.cfg.Blobs.Open(ctx, po.Document.Path)
	if err != nil {
		return nil, models.Document{}, errors.Trace(err)
	}
	return rc, *po.Document, nil
}

func (c *Coordinator) RemoveDocument(ctx context.Context, id string) (models.PurchaseOrder, error) {
	if c.cfg.Blobs == nil {
		return models.PurchaseOrder{}, errors.NotSupportedf("document storage")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.poIndex(id)
	if i < 0 {
		return models.PurchaseOrder{}, errors.NotFoundf("purchase order %q", id)
	}
	before := c.pos[i]
	if before.Document == nil {
		return models.PurchaseOrder{}, errors.NotFoundf("document for purchase order %s", before.PONumber)
	}
	next := before.Clone()
	next.Document = nil
	if err := c.saveDocument(ctx, i, next); err != nil {
		return models.PurchaseOrder{}, err
	}
	c.dropDocument(ctx, before.Document.Path)

	c.audit(ctx, audit.EntityPurchaseOrder, id, models.AuditActionUpdate,
		fmt.Sprintf("Removed document from %s", next.PONumber), before, next)
	c.notify()
	return next.Clone(), nil
}

func (c *Coordinator) saveDocument(ctx context.Context, i int, next models.PurchaseOrder) error {
	next.UpdatedAt = c.now()
	rec := store.PurchaseOrderToRecord(next).Pick(
		store.ColPDFFilePath, store.ColPDFFileURL, store.ColPDFFileName, store.ColUpdatedAt)
	if err := c.cfg.Store.Update(ctx, store.PurchaseOrders, next.ID, rec); err != nil {
		logger.Errorf("saving document of purchase order %s: %v", next.ID, err)
		return errors.Annotatef(err, "saving document of purchase order %s", next.PONumber)
	}
	c.pos[i] = next
	return nil
}

// dropDocument deletes a stored document, logging failures.
func (c *Coordinator) dropDocument(ctx context.Context, path string) {
	if c.cfg.Blobs == nil {
		return
	}
	if err := c.cfg.Blobs.Delete(ctx, path); err != nil && !errors.Is(err, errors.NotFound) {
		logger.Warningf("removing document %s: %v", path, err)
	}
}

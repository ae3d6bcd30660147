// Package blob stores PDF documents attached to purchase orders.
package blob

import (
	"context"
	"io"
)

const (
	// MaxDocumentSize is the largest accepted upload.
	MaxDocumentSize = 10 << 20
	DocumentExt     = ".pdf"
)

// Ref identifies a stored document. Path is the store-relative key and URL
// is where clients can fetch it.
type Ref struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

type Store interface {
	Upload(ctx context.Context, r io.Reader, fileName, ownerID, entityID string) (Ref, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

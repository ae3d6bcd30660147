package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("blob.local")

// LocalStore keeps documents under a root directory as
// <owner>/<entity>_<unixmillis>.pdf.
type LocalStore struct {
	root    string
	baseURL string
	clock   clock.Clock
}

func NewLocalStore(root, baseURL string, clk clock.Clock) *LocalStore {
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		clock:   clk,
	}
}

func (s *LocalStore) Upload(ctx context.Context, r io.Reader, fileName, ownerID, entityID string) (Ref, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != DocumentExt {
		return Ref{}, errors.NotValidf("document type %q, only PDF files are accepted", ext)
	}
	if !safeSegment(ownerID) || !safeSegment(entityID) {
		return Ref{}, errors.NotValidf("document owner %q entity %q", ownerID, entityID)
	}

	key := path.Join(ownerID, fmt.Sprintf("%s_%d%s", entityID, s.clock.Now().UnixMilli(), ext))
	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Ref{}, errors.Annotate(err, "creating document directory")
	}

	f, err := os.Create(full)
	if err != nil {
		return Ref{}, errors.Annotate(err, "creating document file")
	}
	n, err := io.Copy(f, io.LimitReader(r, MaxDocumentSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > MaxDocumentSize {
		err = errors.NotValidf("document larger than %d MiB", MaxDocumentSize>>20)
	}
	if err != nil {
		if rmErr := os.Remove(full); rmErr != nil {
			logger.Warningf("removing partial document %s: %v", full, rmErr)
		}
		return Ref{}, errors.Trace(err)
	}

	logger.Debugf("stored document %s (%d bytes)", key, n)
	return Ref{URL: s.baseURL + "/" + key, Path: key}, nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("document %q", key)
	}
	if err != nil {
		return nil, errors.Annotatef(err, "opening document %q", key)
	}
	return f, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if os.IsNotExist(err) {
		return errors.NotFoundf("document %q", key)
	}
	return errors.Annotatef(err, "removing document %q", key)
}

// resolve maps a key to a file below root, refusing keys that escape it.
func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", errors.NotValidf("document path %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

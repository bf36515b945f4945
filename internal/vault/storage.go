// Copyright 2025 LifeReady
//
// Package vault implements the content-addressed document vault:
// registering documents, committing sha256-identified versions, and
// tier-filtered reads.
package vault

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage resolves and verifies blob content. The local filesystem
// implementation is the only concrete type this core ships; a cloud
// object-store profile (pre-signed URLs, see UploadTarget) is an
// extension point this interface anticipates but this core does not
// implement blob transport itself.
type Storage interface {
	// UploadTarget returns an opaque target a caller can write documentID's
	// next version to, plus any headers the caller should send.
	UploadTarget(documentID string) (uploadURL string, headers map[string]string)

	// Resolve maps a blob_ref (file://, absolute path, or relative-to-root)
	// to bytes, verifying the bytes hash to sha256. Returns os.ErrNotExist
	// wrapped when the blob is absent.
	Resolve(blobRef, sha256Hex string) ([]byte, error)

	// Exists reports whether blobRef resolves to a readable file, without
	// hashing it.
	Exists(blobRef string) bool

	// Path returns the absolute filesystem path blobRef resolves to.
	Path(blobRef string) string
}

// LocalStorage resolves blob_ref values against a root directory on
// disk: the local storage profile.
type LocalStorage struct {
	root string
}

// NewLocalStorage constructs a LocalStorage rooted at root. The directory
// is created if missing.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

// UploadTarget returns a deterministic path under the storage root keyed
// by document_id.
func (s *LocalStorage) UploadTarget(documentID string) (string, map[string]string) {
	target := filepath.Join(s.root, documentID)
	return "file://" + target, map[string]string{"content-type": "application/octet-stream"}
}

// Path resolves blobRef to an absolute filesystem path, supporting
// file://, an absolute path, or a path relative to the storage root.
func (s *LocalStorage) Path(blobRef string) string {
	switch {
	case strings.HasPrefix(blobRef, "file://"):
		return strings.TrimPrefix(blobRef, "file://")
	case filepath.IsAbs(blobRef):
		return blobRef
	default:
		return filepath.Join(s.root, blobRef)
	}
}

// Exists reports whether blobRef resolves to a readable regular file.
func (s *LocalStorage) Exists(blobRef string) bool {
	info, err := os.Stat(s.Path(blobRef))
	return err == nil && !info.IsDir()
}

// Resolve reads the bytes at blobRef and verifies their sha256 matches
// sha256Hex.
func (s *LocalStorage) Resolve(blobRef, sha256Hex string) ([]byte, error) {
	path := s.Path(blobRef)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", blobRef, err)
	}
	defer f.Close()

	h := sha256.New()
	var buf bytes.Buffer
	tee := io.TeeReader(f, h)
	if _, err := io.Copy(&buf, tee); err != nil {
		return nil, fmt.Errorf("read blob %s: %w", blobRef, err)
	}

	got := hex.EncodeToString(h.Sum(nil))
	if got != sha256Hex {
		return nil, fmt.Errorf("blob %s sha256 mismatch: bytes hash to %s, expected %s", blobRef, got, sha256Hex)
	}
	return buf.Bytes(), nil
}

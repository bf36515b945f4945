// Copyright 2025 LifeReady
package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lifeready/core/internal/commitment"
)

// ManifestDocument is one entry in Manifest.Documents, in the same
// lexicographic slot_name order the pipeline copies blobs in.
type ManifestDocument struct {
	SlotName     string `json:"slot_name"`
	DocumentID   string `json:"document_id"`
	DocumentType string `json:"document_type"`
	Title        string `json:"title"`
	SHA256       string `json:"sha256"`
	BundlePath   string `json:"bundle_path"`
}

// Manifest is the bundle's manifest.json content.
type Manifest struct {
	CaseID            string             `json:"case_id"`
	CaseType          string             `json:"case_type"`
	ExportedAt        time.Time          `json:"exported_at"`
	AuditHeadHash     string             `json:"audit_head_hash"`
	AuditEventsSHA256 string             `json:"audit_events_sha256"`
	Documents         []ManifestDocument `json:"documents"`
}

// bundleTimestamp formats t as the UTC-yyyyMMddTHHmmssZ path segment
// used for the bundle's directory name.
func bundleTimestamp(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// bundleDir returns the directory a fresh export for caseID at t writes
// to, under exportRoot.
func bundleDir(exportRoot, caseID string, t time.Time) string {
	return filepath.Join(exportRoot, caseID, bundleTimestamp(t))
}

// prepareBundleDir creates the bundle directory and its documents/
// subdirectory.
func prepareBundleDir(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "documents"), 0o755); err != nil {
		return fmt.Errorf("create bundle directory: %w", err)
	}
	return nil
}

// copyFile copies src to dst, creating dst's parent directories as
// needed, and returns the sha256 of the bytes written.
func copyFile(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	return writeAndHash(out, in)
}

// writeAndHash copies src into dst while hashing the bytes as they
// stream through, returning the lowercase hex sha256 digest.
func writeAndHash(dst io.Writer, src io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(dst, h), src); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeBytes writes content to path (creating parent directories) and
// returns its sha256.
func writeBytes(path string, content []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return commitment.HashBytes(content), nil
}

// writeManifest serializes m to UTF-8 JSON, writes manifest.json under
// dir, and returns its sha256.
func writeManifest(dir string, m Manifest) (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	return writeBytes(filepath.Join(dir, "manifest.json"), raw)
}

// checksumEntry is one line of checksums.txt.
type checksumEntry struct {
	sha256       string
	relativePath string
}

// writeChecksums writes checksums.txt: one "<sha256>  <relative_path>"
// line per entry, sorted lexicographically.
func writeChecksums(dir string, entries []checksumEntry) error {
	sorted := make([]checksumEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].relativePath < sorted[j].relativePath })

	var b strings.Builder
	for i, e := range sorted {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.sha256)
		b.WriteString("  ")
		b.WriteString(e.relativePath)
	}
	return os.WriteFile(filepath.Join(dir, "checksums.txt"), []byte(b.String()), 0o644)
}

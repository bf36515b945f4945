// Copyright 2025 LifeReady
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	"github.com/lifeready/core/internal/access"
	"github.com/lifeready/core/internal/audit"
	"github.com/lifeready/core/internal/casefsm"
	"github.com/lifeready/core/internal/coreerr"
	"github.com/lifeready/core/internal/domain"
	"github.com/lifeready/core/internal/vault"
	"github.com/lifeready/core/pkg/database"
)

// Config holds Service configuration.
type Config struct {
	ExportRoot string
	Logger     *log.Logger
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		ExportRoot: "./exports/cases",
		Logger:     log.New(log.Writer(), "[export] ", log.LstdFlags),
	}
}

// Result is ExportCase's response.
type Result struct {
	DownloadURL    string
	ExpiresAt      time.Time
	ManifestSHA256 string
}

// Service orchestrates export_case: gather -> validate -> write bundle
// -> commit -> return. Grounded on pkg/attestation/service.go's
// "HandleAttestationRequest" gather/validate/persist orchestration.
type Service struct {
	cases      *casefsm.Repository
	docs       *vault.Repository
	storage    vault.Storage
	auditLog   *audit.Service
	repo       *Repository
	exportRoot string
	metrics    *Metrics
	logger     *log.Logger
}

// NewService constructs a Service.
func NewService(cases *casefsm.Repository, docs *vault.Repository, storage vault.Storage, auditLog *audit.Service, repo *Repository, metrics *Metrics, cfg *Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		cases:      cases,
		docs:       docs,
		storage:    storage,
		auditLog:   auditLog,
		repo:       repo,
		exportRoot: cfg.ExportRoot,
		metrics:    metrics,
		logger:     cfg.Logger,
	}
}

var exportRequirement = access.Require().
	Role(domain.RolePrincipal, domain.RoleProxy, domain.RoleExecutorNominee).
	Tier(access.Min(domain.TierAmber)).
	AnyScope("read:packs", "read:all")

// resolvedSlot is one slot's document + current version, joined ahead of
// the completeness check.
type resolvedSlot struct {
	slot    domain.EvidenceSlot
	doc     domain.Document
	version domain.DocumentVersion
}

// ExportCase runs the full 11-step pipeline and returns the caller-facing
// download descriptor.
func (s *Service) ExportCase(ctx context.Context, caller domain.CallerContext, caseID string) (Result, error) {
	if err := exportRequirement.Check(caller); err != nil {
		return Result{}, err
	}
	includeAudit := caller.HasScope("read:all")

	// Step 1: authorize + load case.
	c, err := s.cases.GetCase(ctx, caseID)
	if err == database.ErrNotFound {
		return Result{}, coreerr.NotFound("case not found")
	}
	if err != nil {
		return Result{}, err
	}
	if c.PrincipalID != caller.PrincipalID {
		return Result{}, coreerr.NotFound("case not found")
	}

	// Step 2 + 3: load evidence template, resolve each slot's document and
	// current version, check completeness.
	resolved, err := s.resolveAndCheckCompleteness(ctx, caseID)
	if err != nil {
		s.metrics.ObserveBundle(string(c.CaseType), "incomplete")
		return Result{}, err
	}

	now := time.Now().UTC()
	dir := bundleDir(s.exportRoot, caseID, now)
	// Step 4: prepare bundle directory.
	if err := prepareBundleDir(dir); err != nil {
		s.metrics.ObserveBundle(string(c.CaseType), "error")
		return Result{}, coreerr.Invalid(err.Error())
	}

	var checksums []checksumEntry
	manifestDocs := make([]ManifestDocument, 0, len(resolved))

	// Step 5: copy each slot's blob in lexicographic slot_name order.
	for _, rs := range resolved {
		if !s.storage.Exists(rs.version.BlobRef) {
			s.metrics.ObserveBundle(string(c.CaseType), "blob_missing")
			return Result{}, coreerr.NotFound("document blob not found")
		}
		relPath := filepath.Join("documents", rs.doc.DocumentID)
		sha, err := copyFile(s.storage.Path(rs.version.BlobRef), filepath.Join(dir, relPath))
		if err != nil {
			s.metrics.ObserveBundle(string(c.CaseType), "error")
			return Result{}, coreerr.Invalid(fmt.Sprintf("copy document blob: %v", err))
		}
		checksums = append(checksums, checksumEntry{sha256: sha, relativePath: relPath})
		manifestDocs = append(manifestDocs, ManifestDocument{
			SlotName:     rs.slot.SlotName,
			DocumentID:   rs.doc.DocumentID,
			DocumentType: rs.doc.DocumentType,
			Title:        rs.doc.Title,
			SHA256:       rs.version.SHA256,
			BundlePath:   filepath.ToSlash(relPath),
		})
	}

	// Step 6: type-specific literal artifacts.
	if filename, content, ok := literalArtifactFor(c.CaseType); ok {
		sha, err := writeBytes(filepath.Join(dir, filename), content)
		if err != nil {
			s.metrics.ObserveBundle(string(c.CaseType), "error")
			return Result{}, coreerr.Invalid(err.Error())
		}
		checksums = append(checksums, checksumEntry{sha256: sha, relativePath: filename})
	}

	// Step 7: audit excerpt.
	auditSHA256, auditHead, err := s.writeAuditExcerpt(ctx, dir, caseID, includeAudit)
	if err != nil {
		s.metrics.ObserveBundle(string(c.CaseType), "error")
		return Result{}, err
	}
	checksums = append(checksums, checksumEntry{sha256: auditSHA256, relativePath: "audit.jsonl"})

	// Step 8: manifest.
	manifest := Manifest{
		CaseID:            caseID,
		CaseType:          string(c.CaseType),
		ExportedAt:        now,
		AuditHeadHash:     auditHead,
		AuditEventsSHA256: auditSHA256,
		Documents:         manifestDocs,
	}
	manifestSHA256, err := writeManifest(dir, manifest)
	if err != nil {
		s.metrics.ObserveBundle(string(c.CaseType), "error")
		return Result{}, coreerr.Invalid(err.Error())
	}
	checksums = append(checksums, checksumEntry{sha256: manifestSHA256, relativePath: "manifest.json"})

	// Step 9: checksums file.
	if err := writeChecksums(dir, checksums); err != nil {
		s.metrics.ObserveBundle(string(c.CaseType), "error")
		return Result{}, coreerr.Invalid(err.Error())
	}

	// Step 10: the one externally visible commit.
	_, err = s.repo.CommitExport(ctx, caseID, string(c.CaseType)+"_export", filepath.Join(dir, "manifest.json"), manifestSHA256)
	if err != nil {
		s.metrics.ObserveBundle(string(c.CaseType), "error")
		return Result{}, err
	}
	if err := s.recordAudit(ctx, caller, caseID); err != nil {
		s.metrics.ObserveBundle(string(c.CaseType), "error")
		return Result{}, err
	}
	s.metrics.ObserveBundle(string(c.CaseType), "success")

	// Step 11: return.
	return Result{
		DownloadURL:    "file://" + dir,
		ExpiresAt:      now.Add(24 * time.Hour),
		ManifestSHA256: manifestSHA256,
	}, nil
}

// resolveAndCheckCompleteness checks that every slot is bound and every
// bound document has a committed version.
func (s *Service) resolveAndCheckCompleteness(ctx context.Context, caseID string) ([]resolvedSlot, error) {
	slots, err := s.cases.EvidenceSlots(ctx, caseID)
	if err != nil {
		return nil, err
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].SlotName < slots[j].SlotName })

	resolved := make([]resolvedSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.DocumentID == "" {
			return nil, coreerr.Conflict("evidence slots incomplete")
		}
		doc, err := s.docs.GetDocument(ctx, slot.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("load document %s for slot %s: %w", slot.DocumentID, slot.SlotName, err)
		}
		version, err := s.docs.CurrentVersion(ctx, slot.DocumentID)
		if err == database.ErrNotFound {
			return nil, coreerr.Conflict("evidence versions missing")
		}
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, resolvedSlot{slot: slot, doc: doc, version: version})
	}
	return resolved, nil
}

// writeAuditExcerpt writes audit.jsonl: if includeAudit, the full
// verified audit chain, one JSON event per line (newline-separated, no
// trailing newline); else an empty file. Returns the file's sha256 and
// the chain's head hash.
func (s *Service) writeAuditExcerpt(ctx context.Context, dir, caseID string, includeAudit bool) (sha256Hex, headHash string, err error) {
	var events []domain.AuditEvent
	if includeAudit {
		events, err = s.auditLog.Chain(ctx)
		if err != nil {
			return "", "", err
		}
	}

	var buf bytes.Buffer
	for i, e := range events {
		if i > 0 {
			buf.WriteByte('\n')
		}
		line, err := json.Marshal(e)
		if err != nil {
			return "", "", fmt.Errorf("marshal audit event: %w", err)
		}
		buf.Write(line)
	}

	sha, err := writeBytes(filepath.Join(dir, "audit.jsonl"), buf.Bytes())
	if err != nil {
		return "", "", err
	}

	head := audit.HeadHash(events)
	return sha, head, nil
}

// recordAudit appends the case.export audit event and returns its error
// to the caller: a bundle whose export was never recorded in the audit
// log is not a successfully exported case.
func (s *Service) recordAudit(ctx context.Context, caller domain.CallerContext, caseID string) error {
	if s.auditLog == nil {
		return nil
	}
	_, err := s.auditLog.Record(ctx, audit.AppendInput{
		ActorPrincipalID: caller.PrincipalID,
		Action:           "case.export",
		Tier:             domain.TierAmber,
		CaseID:           caseID,
		Payload:          map[string]interface{}{"case_id": caseID},
	})
	if err != nil {
		s.logger.Printf("record export audit event case=%s: %v", caseID, err)
		return coreerr.Wrap(coreerr.KindInternal, err, "record export audit event")
	}
	return nil
}

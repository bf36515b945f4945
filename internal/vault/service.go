// Copyright 2025 LifeReady
package vault

import (
	"context"
	"log"

	"github.com/lifeready/core/internal/access"
	"github.com/lifeready/core/internal/commitment"
	"github.com/lifeready/core/internal/coreerr"
	"github.com/lifeready/core/internal/domain"
	"github.com/lifeready/core/pkg/database"
)

const (
	defaultListLimit = 50
	minListLimit     = 1
	maxListLimit     = 200
)

// Config holds Service configuration.
type Config struct {
	Logger *log.Logger
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logger: log.New(log.Writer(), "[vault] ", log.LstdFlags),
	}
}

// Service implements init_document, commit_version, get_document, and
// list_documents.
type Service struct {
	repo    *Repository
	storage Storage
	logger  *log.Logger
}

// NewService constructs a Service.
func NewService(repo *Repository, storage Storage, cfg *Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{repo: repo, storage: storage, logger: cfg.Logger}
}

// InitDocumentInput is the input to InitDocument.
type InitDocumentInput struct {
	DocumentType string
	Title        string
	Sensitivity  domain.SensitivityTier
	Tags         []string
}

// InitDocumentResult is the response of InitDocument.
type InitDocumentResult struct {
	DocumentID    string
	UploadURL     string
	UploadHeaders map[string]string
}

// InitDocument creates an empty Document owned by ctx.PrincipalID and
// returns an opaque upload target.
func (s *Service) InitDocument(ctx context.Context, caller domain.CallerContext, in InitDocumentInput) (InitDocumentResult, error) {
	requirement := access.Require().
		Role(domain.RolePrincipal, domain.RoleProxy).
		Tier(access.Allowlist(in.Sensitivity)).
		Scope("write:limited")
	if err := requirement.Check(caller); err != nil {
		return InitDocumentResult{}, err
	}

	doc, err := s.repo.CreateDocument(ctx, NewDocument{
		OwnerPrincipal: caller.PrincipalID,
		DocumentType:   in.DocumentType,
		Title:          in.Title,
		Sensitivity:    in.Sensitivity,
		Tags:           in.Tags,
	})
	if err != nil {
		return InitDocumentResult{}, err
	}

	uploadURL, headers := s.storage.UploadTarget(doc.DocumentID)
	return InitDocumentResult{
		DocumentID:    doc.DocumentID,
		UploadURL:     uploadURL,
		UploadHeaders: headers,
	}, nil
}

// CommitVersionInput is the input to CommitVersion.
type CommitVersionInput struct {
	DocumentID string
	BlobRef    string
	SHA256     string
	ByteSize   int64
	MimeType   string
}

var commitVersionRequirement = access.Require().
	Role(domain.RolePrincipal, domain.RoleProxy).
	Tier(access.Min(domain.TierAmber)).
	Scope("write:limited")

// CommitVersion validates sha256, verifies ownership, resolves blob_ref,
// and inserts a version.
func (s *Service) CommitVersion(ctx context.Context, caller domain.CallerContext, in CommitVersionInput) (domain.DocumentVersion, error) {
	if err := commitVersionRequirement.Check(caller); err != nil {
		return domain.DocumentVersion{}, err
	}
	if !commitment.IsLowerHex64(in.SHA256) {
		return domain.DocumentVersion{}, coreerr.Invalid("sha256 must be 64 lowercase hex characters")
	}

	doc, err := s.repo.GetDocument(ctx, in.DocumentID)
	if err == database.ErrNotFound {
		return domain.DocumentVersion{}, coreerr.NotFound("document not found")
	}
	if err != nil {
		return domain.DocumentVersion{}, err
	}
	if doc.OwnerPrincipal != caller.PrincipalID {
		return domain.DocumentVersion{}, coreerr.NotFound("document not found")
	}

	if !s.storage.Exists(in.BlobRef) {
		return domain.DocumentVersion{}, coreerr.Invalid("blob_ref does not resolve to an existing file")
	}
	if _, err := s.storage.Resolve(in.BlobRef, in.SHA256); err != nil {
		return domain.DocumentVersion{}, coreerr.Invalid(err.Error())
	}

	version, err := s.repo.CreateVersion(ctx, NewVersion{
		DocumentID: in.DocumentID,
		BlobRef:    in.BlobRef,
		SHA256:     in.SHA256,
		ByteSize:   in.ByteSize,
		MimeType:   in.MimeType,
	})
	if err == database.ErrDuplicate {
		return domain.DocumentVersion{}, coreerr.Conflict("document version with this sha256 already committed")
	}
	if err != nil {
		return domain.DocumentVersion{}, err
	}
	return version, nil
}

var readRequirement = access.Require().
	Role(domain.RolePrincipal, domain.RoleProxy, domain.RoleExecutorNominee).
	Tier(access.Min(domain.TierAmber)).
	Scope("read:all")

// GetDocument returns a document, failing with ForbiddenTier if the
// document's sensitivity is outside the caller's allowed tiers.
func (s *Service) GetDocument(ctx context.Context, caller domain.CallerContext, documentID string) (domain.Document, error) {
	if err := readRequirement.Check(caller); err != nil {
		return domain.Document{}, err
	}
	doc, err := s.repo.GetDocument(ctx, documentID)
	if err == database.ErrNotFound {
		return domain.Document{}, coreerr.NotFound("document not found")
	}
	if err != nil {
		return domain.Document{}, err
	}
	if !access.DocumentVisible(caller, doc.Sensitivity) {
		return domain.Document{}, coreerr.ForbiddenTier("document sensitivity is outside caller's allowed tiers")
	}
	return doc, nil
}

// ListDocuments returns up to limit documents owned by caller, newest
// first, silently filtering any whose sensitivity is outside the
// caller's allowed tiers.
func (s *Service) ListDocuments(ctx context.Context, caller domain.CallerContext, limit int) ([]domain.Document, error) {
	if err := readRequirement.Check(caller); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	docs, err := s.repo.ListDocuments(ctx, caller.PrincipalID, limit)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if access.DocumentVisible(caller, d.Sensitivity) {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

// DocumentExists reports whether documentID refers to a registered
// document, regardless of caller — used internally by casefsm to
// validate evidence attachment without a second access check (the
// case-level requirement already gated the call).
func (s *Service) DocumentExists(ctx context.Context, documentID string) (bool, error) {
	_, err := s.repo.GetDocument(ctx, documentID)
	if err == database.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasCommittedVersion reports whether documentID has at least one
// committed DocumentVersion.
func (s *Service) HasCommittedVersion(ctx context.Context, documentID string) (bool, error) {
	_, err := s.repo.CurrentVersion(ctx, documentID)
	if err == database.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit < minListLimit {
		return minListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

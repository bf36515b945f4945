// Copyright 2025 LifeReady
package vault

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/lifeready/core/internal/domain"
	"github.com/lifeready/core/pkg/database"
)

// Repository is the documents/document_versions aggregate, grounded on
// pkg/database/repository_attestation.go's NewX/CreateX shape.
type Repository struct {
	client *database.Client
}

// NewRepository constructs a Repository over client.
func NewRepository(client *database.Client) *Repository {
	return &Repository{client: client}
}

// NewDocument is the input to CreateDocument.
type NewDocument struct {
	OwnerPrincipal string
	DocumentType   string
	Title          string
	Sensitivity    domain.SensitivityTier
	Tags           []string
}

// CreateDocument inserts an empty Document (no versions yet) owned by
// input.OwnerPrincipal.
func (r *Repository) CreateDocument(ctx context.Context, input NewDocument) (domain.Document, error) {
	doc := domain.Document{
		DocumentID:     uuid.NewString(),
		OwnerPrincipal: input.OwnerPrincipal,
		DocumentType:   input.DocumentType,
		Title:          input.Title,
		Sensitivity:    input.Sensitivity,
		Tags:           input.Tags,
	}
	err := r.client.QueryRowContext(ctx, `
		INSERT INTO documents (document_id, owner_principal_id, document_type, title, sensitivity, tags)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		doc.DocumentID, doc.OwnerPrincipal, doc.DocumentType, doc.Title, int(doc.Sensitivity), pq.Array(doc.Tags),
	).Scan(&doc.CreatedAt)
	if err != nil {
		return domain.Document{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// GetDocument returns a document by id, or database.ErrNotFound.
func (r *Repository) GetDocument(ctx context.Context, documentID string) (domain.Document, error) {
	var doc domain.Document
	var tier int
	err := r.client.QueryRowContext(ctx, `
		SELECT document_id, owner_principal_id, document_type, title, sensitivity, tags, created_at
		FROM documents WHERE document_id = $1`, documentID,
	).Scan(&doc.DocumentID, &doc.OwnerPrincipal, &doc.DocumentType, &doc.Title, &tier, pq.Array(&doc.Tags), &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Document{}, database.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	doc.Sensitivity = domain.SensitivityTier(tier)
	return doc, nil
}

// ListDocuments returns up to limit documents owned by ownerPrincipal,
// newest first.
func (r *Repository) ListDocuments(ctx context.Context, ownerPrincipal string, limit int) ([]domain.Document, error) {
	rows, err := r.client.QueryContext(ctx, `
		SELECT document_id, owner_principal_id, document_type, title, sensitivity, tags, created_at
		FROM documents WHERE owner_principal_id = $1
		ORDER BY created_at DESC LIMIT $2`, ownerPrincipal, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var tier int
		if err := rows.Scan(&doc.DocumentID, &doc.OwnerPrincipal, &doc.DocumentType, &doc.Title, &tier, pq.Array(&doc.Tags), &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Sensitivity = domain.SensitivityTier(tier)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// NewVersion is the input to CreateVersion.
type NewVersion struct {
	DocumentID string
	BlobRef    string
	SHA256     string
	ByteSize   int64
	MimeType   string
}

// CreateVersion inserts a DocumentVersion. Returns database.ErrDuplicate
// if (document_id, sha256) already exists.
func (r *Repository) CreateVersion(ctx context.Context, input NewVersion) (domain.DocumentVersion, error) {
	v := domain.DocumentVersion{
		VersionID:  uuid.NewString(),
		DocumentID: input.DocumentID,
		BlobRef:    input.BlobRef,
		SHA256:     input.SHA256,
		ByteSize:   input.ByteSize,
		MimeType:   input.MimeType,
	}
	err := r.client.QueryRowContext(ctx, `
		INSERT INTO document_versions (version_id, document_id, blob_ref, sha256, byte_size, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		v.VersionID, v.DocumentID, v.BlobRef, v.SHA256, v.ByteSize, v.MimeType,
	).Scan(&v.CreatedAt)
	if isUniqueViolation(err) {
		return domain.DocumentVersion{}, database.ErrDuplicate
	}
	if err != nil {
		return domain.DocumentVersion{}, fmt.Errorf("insert document version: %w", err)
	}
	return v, nil
}

// CurrentVersion returns the newest version (by created_at) of documentID,
// or database.ErrNotFound if the document has no committed versions.
func (r *Repository) CurrentVersion(ctx context.Context, documentID string) (domain.DocumentVersion, error) {
	var v domain.DocumentVersion
	err := r.client.QueryRowContext(ctx, `
		SELECT version_id, document_id, blob_ref, sha256, byte_size, mime_type, created_at
		FROM document_versions WHERE document_id = $1
		ORDER BY created_at DESC LIMIT 1`, documentID,
	).Scan(&v.VersionID, &v.DocumentID, &v.BlobRef, &v.SHA256, &v.ByteSize, &v.MimeType, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.DocumentVersion{}, database.ErrNotFound
	}
	if err != nil {
		return domain.DocumentVersion{}, fmt.Errorf("get current version: %w", err)
	}
	return v, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

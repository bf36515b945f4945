// Copyright 2025 LifeReady
package export

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lifeready/core/internal/domain"
	"github.com/lifeready/core/pkg/database"
)

// Repository performs the export pipeline's single externally visible
// commit: recording the CaseArtifact and transitioning the case to
// exported, atomically.
type Repository struct {
	client *database.Client
}

// NewRepository constructs a Repository over client.
func NewRepository(client *database.Client) *Repository {
	return &Repository{client: client}
}

// CommitExport inserts a CaseArtifact row and transitions caseID to
// exported in one transaction. Everything before this call (bundle
// directory construction) is not part of the commit and is left on disk
// even if this step never runs.
func (r *Repository) CommitExport(ctx context.Context, caseID, kind, blobRef, sha256Hex string) (domain.CaseArtifact, error) {
	tx, err := r.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return domain.CaseArtifact{}, fmt.Errorf("begin export commit transaction: %w", err)
	}
	defer tx.Rollback()

	artifact := domain.CaseArtifact{
		ArtifactID: uuid.NewString(),
		CaseID:     caseID,
		Kind:       kind,
		BlobRef:    blobRef,
		SHA256:     sha256Hex,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO case_artifacts (artifact_id, case_id, kind, blob_ref, sha256)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		artifact.ArtifactID, artifact.CaseID, artifact.Kind, artifact.BlobRef, artifact.SHA256,
	).Scan(&artifact.CreatedAt)
	if err != nil {
		return domain.CaseArtifact{}, fmt.Errorf("insert case artifact: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE cases SET status = $1 WHERE case_id = $2`,
		string(domain.StatusExported), caseID); err != nil {
		return domain.CaseArtifact{}, fmt.Errorf("transition case to exported: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.CaseArtifact{}, fmt.Errorf("commit export: %w", err)
	}
	return artifact, nil
}

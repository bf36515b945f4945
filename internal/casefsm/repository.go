// Copyright 2025 LifeReady
package casefsm

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/lifeready/core/internal/domain"
	"github.com/lifeready/core/pkg/database"
)

// Repository is the Case + EvidenceSlot aggregate, grounded on
// pkg/database/repository_batch.go's parent-plus-children shape.
type Repository struct {
	client *database.Client
}

// NewRepository constructs a Repository over client.
func NewRepository(client *database.Client) *Repository {
	return &Repository{client: client}
}

// NewCase is the input to CreateCase.
type NewCase struct {
	PrincipalID    string
	CaseType       domain.CaseType
	Status         domain.CaseStatus
	BlockedReasons []string
	Slots          []string
}

// CreateCase inserts the Case row and one EvidenceSlot row per slot name
// in a single atomic transaction.
func (r *Repository) CreateCase(ctx context.Context, input NewCase) (domain.Case, error) {
	tx, err := r.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return domain.Case{}, fmt.Errorf("begin create-case transaction: %w", err)
	}
	defer tx.Rollback()

	c := domain.Case{
		CaseID:         uuid.NewString(),
		PrincipalID:    input.PrincipalID,
		CaseType:       input.CaseType,
		Status:         input.Status,
		BlockedReasons: toSet(input.BlockedReasons),
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO cases (case_id, principal_id, case_type, status, blocked_reasons, type_specific_payload)
		VALUES ($1, $2, $3, $4, $5, '{}')
		RETURNING created_at`,
		c.CaseID, c.PrincipalID, string(c.CaseType), string(c.Status), pq.Array(input.BlockedReasons),
	).Scan(&c.CreatedAt)
	if err != nil {
		return domain.Case{}, fmt.Errorf("insert case: %w", err)
	}

	for _, slot := range input.Slots {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO evidence_slots (case_id, slot_name, document_id, added_at)
			VALUES ($1, $2, NULL, NULL)`, c.CaseID, slot)
		if err != nil {
			return domain.Case{}, fmt.Errorf("insert evidence slot %q: %w", slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Case{}, fmt.Errorf("commit create-case: %w", err)
	}
	return c, nil
}

// GetCase returns a case by id, or database.ErrNotFound.
func (r *Repository) GetCase(ctx context.Context, caseID string) (domain.Case, error) {
	var (
		c              domain.Case
		caseType       string
		status         string
		blockedReasons []string
		payload        []byte
	)
	err := r.client.QueryRowContext(ctx, `
		SELECT case_id, principal_id, case_type, status, blocked_reasons, created_at, type_specific_payload
		FROM cases WHERE case_id = $1`, caseID,
	).Scan(&c.CaseID, &c.PrincipalID, &caseType, &status, pq.Array(&blockedReasons), &c.CreatedAt, &payload)
	if err == sql.ErrNoRows {
		return domain.Case{}, database.ErrNotFound
	}
	if err != nil {
		return domain.Case{}, fmt.Errorf("get case: %w", err)
	}
	c.CaseType = domain.CaseType(caseType)
	c.Status = domain.CaseStatus(status)
	c.BlockedReasons = toSet(blockedReasons)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &c.TypeSpecificPayload); err != nil {
			return domain.Case{}, fmt.Errorf("unmarshal case payload: %w", err)
		}
	}
	return c, nil
}

// UpdateStatus transitions a case's status and blocked_reasons in place.
func (r *Repository) UpdateStatus(ctx context.Context, caseID string, status domain.CaseStatus, blockedReasons []string) error {
	result, err := r.client.ExecContext(ctx, `
		UPDATE cases SET status = $1, blocked_reasons = $2 WHERE case_id = $3`,
		string(status), pq.Array(blockedReasons), caseID)
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case status rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// EvidenceSlots returns every slot row for caseID, in no particular
// order; callers needing lexicographic order use casefsm.SortedSlotNames.
func (r *Repository) EvidenceSlots(ctx context.Context, caseID string) ([]domain.EvidenceSlot, error) {
	rows, err := r.client.QueryContext(ctx, `
		SELECT case_id, slot_name, document_id, added_at
		FROM evidence_slots WHERE case_id = $1`, caseID)
	if err != nil {
		return nil, fmt.Errorf("query evidence slots: %w", err)
	}
	defer rows.Close()

	var slots []domain.EvidenceSlot
	for rows.Next() {
		var (
			s          domain.EvidenceSlot
			documentID sql.NullString
			addedAt    sql.NullTime
		)
		if err := rows.Scan(&s.CaseID, &s.SlotName, &documentID, &addedAt); err != nil {
			return nil, fmt.Errorf("scan evidence slot: %w", err)
		}
		if documentID.Valid {
			s.DocumentID = documentID.String
		}
		if addedAt.Valid {
			s.AddedAt = addedAt.Time
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// AttachEvidence updates the evidence_slots row for (caseID, slotName)
// with documentID and added_at=now. Returns database.ErrNotFound if the
// slot row does not exist for this case.
func (r *Repository) AttachEvidence(ctx context.Context, caseID, slotName, documentID string) (domain.EvidenceSlot, error) {
	var s domain.EvidenceSlot
	err := r.client.QueryRowContext(ctx, `
		UPDATE evidence_slots SET document_id = $1, added_at = now()
		WHERE case_id = $2 AND slot_name = $3
		RETURNING case_id, slot_name, document_id, added_at`,
		documentID, caseID, slotName,
	).Scan(&s.CaseID, &s.SlotName, &s.DocumentID, &s.AddedAt)
	if err == sql.ErrNoRows {
		return domain.EvidenceSlot{}, database.ErrNotFound
	}
	if err != nil {
		return domain.EvidenceSlot{}, fmt.Errorf("attach evidence: %w", err)
	}
	return s, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

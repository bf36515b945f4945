// Copyright 2025 LifeReady
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lifeready/core/internal/domain"
	"github.com/lifeready/core/pkg/database"
)

// Repository persists AuditEvents as an append-only repository: one
// CreateX that returns the persisted row, reads ordered by insertion.
type Repository struct {
	client *database.Client
}

// NewRepository constructs a Repository over client.
func NewRepository(client *database.Client) *Repository {
	return &Repository{client: client}
}

// AppendInput is the caller-supplied content of a new audit event; the
// chain fields (EventID, CreatedAt, PrevHash, EventHash) are computed by
// Append.
type AppendInput struct {
	ActorPrincipalID string
	Action           string
	Tier             domain.SensitivityTier
	CaseID           string
	Payload          interface{}
}

// Append reads the current tail event_hash under a serializable
// transaction, computes the new event's event_hash, inserts it, and
// returns the inserted event. The tail read + insert is one atomic
// database step: appends must observe a total order, so this runs as
// a SERIALIZABLE transaction selecting the current maximum sequence row
// FOR UPDATE before inserting the next.
func (r *Repository) Append(ctx context.Context, in AppendInput) (domain.AuditEvent, error) {
	tx, err := r.client.DB().BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.AuditEvent{}, fmt.Errorf("begin audit append transaction: %w", err)
	}
	defer tx.Rollback()

	prevHash := domain.ZeroHash
	row := tx.QueryRowContext(ctx, `
		SELECT event_hash FROM audit_events ORDER BY sequence DESC LIMIT 1 FOR UPDATE`)
	if err := row.Scan(&prevHash); err != nil && err != sql.ErrNoRows {
		return domain.AuditEvent{}, fmt.Errorf("read audit chain tail: %w", err)
	}

	// created_at is truncated to the microsecond precision Postgres
	// stores, so a hash recomputed from a fetched row matches.
	event := domain.AuditEvent{
		EventID:          uuid.NewString(),
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
		ActorPrincipalID: in.ActorPrincipalID,
		Action:           in.Action,
		Tier:             in.Tier,
		CaseID:           in.CaseID,
		Payload:          in.Payload,
		PrevHash:         prevHash,
	}

	eventHash, err := ComputeEventHash(event)
	if err != nil {
		return domain.AuditEvent{}, fmt.Errorf("compute event hash: %w", err)
	}
	event.EventHash = eventHash

	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return domain.AuditEvent{}, fmt.Errorf("marshal audit payload: %w", err)
	}

	var caseID interface{}
	if event.CaseID != "" {
		caseID = event.CaseID
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_events (
			event_id, created_at, actor_principal_id, action, tier,
			case_id, payload, prev_hash, event_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.EventID, event.CreatedAt, event.ActorPrincipalID, event.Action, int(event.Tier),
		caseID, payloadJSON, event.PrevHash, event.EventHash,
	)
	if err != nil {
		return domain.AuditEvent{}, fmt.Errorf("insert audit event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.AuditEvent{}, fmt.Errorf("commit audit append: %w", err)
	}

	return event, nil
}

// Fetch returns the full chain in append order (sequence ascending). Read is
// idempotent and safely cacheable until the next append; this core does
// not cache it, leaving that to a collaborator if needed.
func (r *Repository) Fetch(ctx context.Context) ([]domain.AuditEvent, error) {
	rows, err := r.client.DB().QueryContext(ctx, `
		SELECT event_id, created_at, actor_principal_id, action, tier,
			case_id, payload, prev_hash, event_hash
		FROM audit_events ORDER BY sequence ASC`)
	if err != nil {
		return nil, fmt.Errorf("query audit chain: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var (
			e         domain.AuditEvent
			tier      int
			caseID    sql.NullString
			payload   []byte
		)
		if err := rows.Scan(&e.EventID, &e.CreatedAt, &e.ActorPrincipalID, &e.Action, &tier,
			&caseID, &payload, &e.PrevHash, &e.EventHash); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Tier = domain.SensitivityTier(tier)
		e.CreatedAt = e.CreatedAt.UTC()
		if caseID.Valid {
			e.CaseID = caseID.String
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// FetchByCase returns only the events recorded against caseID, in the
// same append order as Fetch.
func (r *Repository) FetchByCase(ctx context.Context, caseID string) ([]domain.AuditEvent, error) {
	all, err := r.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.AuditEvent
	for _, e := range all {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Copyright 2025 LifeReady
//
// Package audit implements the append-only, hash-chained audit log. The
// canonical encoding and fail-closed chain verification follow the same
// discipline as Merkle receipt validation (fixed-length hex digests,
// recompute-and-compare, never trust stored state blindly) adapted from
// a Merkle proof to a linear hash chain.
package audit

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lifeready/core/internal/commitment"
	"github.com/lifeready/core/internal/domain"
)

// canonicalFields is the JSON shape hashed into event_hash_n — every
// AuditEvent field except the hash itself, serialized with sorted keys
// and no whitespace (internal/commitment.CanonicalizeJSON). This is the
// one canonical form this core ever produces.
type canonicalFields struct {
	EventID          string      `json:"event_id"`
	CreatedAt        time.Time   `json:"created_at"`
	ActorPrincipalID string      `json:"actor_principal_id"`
	Action           string      `json:"action"`
	Tier             string      `json:"tier"`
	CaseID           string      `json:"case_id,omitempty"`
	Payload          interface{} `json:"payload"`
	PrevHash         string      `json:"prev_hash"`
}

// ComputeEventHash computes event_hash_n = sha256(prev_hash_n ||
// canonical_bytes(event_fields_without_hash_n)).
func ComputeEventHash(e domain.AuditEvent) (string, error) {
	fields := canonicalFields{
		EventID:          e.EventID,
		CreatedAt:        e.CreatedAt,
		ActorPrincipalID: e.ActorPrincipalID,
		Action:           e.Action,
		Tier:             e.Tier.String(),
		CaseID:           e.CaseID,
		Payload:          e.Payload,
		PrevHash:         e.PrevHash,
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal event fields: %w", err)
	}
	canon, err := commitment.CanonicalizeJSON(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize event fields: %w", err)
	}

	digest := commitment.HashConcat([]byte(e.PrevHash), canon)
	return hex.EncodeToString(digest), nil
}

// VerifyChain checks that events (in append order, as Fetch returns
// them) form a continuous hash chain: events[0].PrevHash
// == domain.ZeroHash, and for every n>0, events[n].PrevHash ==
// events[n-1].EventHash, and every stored EventHash matches its
// recomputation. Fail-closed: any break returns a descriptive error.
func VerifyChain(events []domain.AuditEvent) error {
	prev := domain.ZeroHash
	for i, e := range events {
		if e.PrevHash != prev {
			return fmt.Errorf("chain broken at position %d: prev_hash=%s, expected=%s", i, e.PrevHash, prev)
		}
		recomputed, err := ComputeEventHash(e)
		if err != nil {
			return fmt.Errorf("recompute hash at position %d: %w", i, err)
		}
		if recomputed != e.EventHash {
			return fmt.Errorf("chain broken at position %d: stored event_hash=%s, recomputed=%s", i, e.EventHash, recomputed)
		}
		prev = e.EventHash
	}
	return nil
}

// HeadHash returns the event_hash of the last event, or domain.ZeroHash
// if events is empty — the audit excerpt's audit_head_hash.
func HeadHash(events []domain.AuditEvent) string {
	if len(events) == 0 {
		return domain.ZeroHash
	}
	return events[len(events)-1].EventHash
}

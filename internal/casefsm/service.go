// Copyright 2025 LifeReady
package casefsm

import (
	"context"
	"log"
	"sort"

	"github.com/lifeready/core/internal/access"
	"github.com/lifeready/core/internal/audit"
	"github.com/lifeready/core/internal/coreerr"
	"github.com/lifeready/core/internal/domain"
	"github.com/lifeready/core/pkg/database"
)

// Config holds Service configuration.
type Config struct {
	Logger *log.Logger
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logger: log.New(log.Writer(), "[casefsm] ", log.LstdFlags),
	}
}

// DocumentVersionLookup resolves whether a document has at least one
// committed version — casefsm depends on vault only through this narrow
// seam, avoiding a package import cycle (vault does not need casefsm).
type DocumentVersionLookup interface {
	HasCommittedVersion(ctx context.Context, documentID string) (bool, error)
	DocumentExists(ctx context.Context, documentID string) (bool, error)
}

// Service implements create_case, attach_evidence, and the status
// transition guards.
type Service struct {
	repo     *Repository
	docs     DocumentVersionLookup
	auditLog *audit.Service
	logger   *log.Logger
}

// NewService constructs a Service.
func NewService(repo *Repository, docs DocumentVersionLookup, auditLog *audit.Service, cfg *Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{repo: repo, docs: docs, auditLog: auditLog, logger: cfg.Logger}
}

var createCaseRequirement = access.Require().
	Role(domain.RolePrincipal, domain.RoleProxy).
	Scope("write:limited")

// CreateCaseInput is the input to CreateCase. Slots, when non-nil,
// overrides the case type's default template slot list with an
// explicit required_evidence_slots list.
type CreateCaseInput struct {
	CaseType domain.CaseType
	Slots    []string
}

// CreateCase inserts a Case and its EvidenceSlot rows atomically,
// choosing the initial status and blocked_reasons from the case type's
// template.
func (s *Service) CreateCase(ctx context.Context, caller domain.CallerContext, in CreateCaseInput) (domain.Case, error) {
	if err := createCaseRequirement.Check(caller); err != nil {
		return domain.Case{}, err
	}

	template, ok := TemplateFor(in.CaseType)
	if !ok {
		return domain.Case{}, coreerr.Invalid("unknown case type")
	}

	slots := in.Slots
	if slots == nil {
		slots = template.Slots
	}

	var blockedReasons []string
	if template.InitialStatus == domain.StatusBlocked && template.BlockedReason != "" {
		blockedReasons = []string{template.BlockedReason}
	}

	c, err := s.repo.CreateCase(ctx, NewCase{
		PrincipalID:    caller.PrincipalID,
		CaseType:       in.CaseType,
		Status:         template.InitialStatus,
		BlockedReasons: blockedReasons,
		Slots:          slots,
	})
	if err != nil {
		return domain.Case{}, err
	}

	if err := s.recordAudit(ctx, caller, "case.create", c.CaseID, map[string]interface{}{
		"case_type": string(in.CaseType),
		"status":    string(c.Status),
	}); err != nil {
		return domain.Case{}, err
	}
	return c, nil
}

var attachEvidenceRequirement = access.Require().
	Role(domain.RolePrincipal, domain.RoleProxy).
	Scope("write:limited")

// AttachEvidence binds documentID to slotName on caseID, then
// recomputes blocked/ready status. Unknown or foreign cases are both
// surfaced as not_found to avoid existence leakage.
func (s *Service) AttachEvidence(ctx context.Context, caller domain.CallerContext, caseID, slotName, documentID string) (domain.EvidenceSlot, error) {
	if err := attachEvidenceRequirement.Check(caller); err != nil {
		return domain.EvidenceSlot{}, err
	}

	c, err := s.repo.GetCase(ctx, caseID)
	if err == database.ErrNotFound {
		return domain.EvidenceSlot{}, coreerr.NotFound("case not found")
	}
	if err != nil {
		return domain.EvidenceSlot{}, err
	}
	if c.PrincipalID != caller.PrincipalID {
		return domain.EvidenceSlot{}, coreerr.NotFound("case not found")
	}

	exists, err := s.docs.DocumentExists(ctx, documentID)
	if err != nil {
		return domain.EvidenceSlot{}, err
	}
	if !exists {
		return domain.EvidenceSlot{}, coreerr.NotFound("document not found")
	}

	slot, err := s.repo.AttachEvidence(ctx, caseID, slotName, documentID)
	if err == database.ErrNotFound {
		return domain.EvidenceSlot{}, coreerr.NotFound("evidence slot not found for this case")
	}
	if err != nil {
		return domain.EvidenceSlot{}, err
	}

	if err := s.recordAudit(ctx, caller, "case.attach_evidence", caseID, map[string]interface{}{
		"slot_name":   slotName,
		"document_id": documentID,
	}); err != nil {
		return domain.EvidenceSlot{}, err
	}

	if err := s.recomputeReadiness(ctx, caller, c); err != nil {
		return domain.EvidenceSlot{}, err
	}

	return slot, nil
}

// recomputeReadiness transitions draft/blocked -> ready when every slot
// is bound and every bound document has a committed version, per the
// completeness rule shared with the export pipeline's step 3.
func (s *Service) recomputeReadiness(ctx context.Context, caller domain.CallerContext, c domain.Case) error {
	if c.Status != domain.StatusDraft && c.Status != domain.StatusBlocked {
		return nil
	}

	complete, err := s.isComplete(ctx, c.CaseID)
	if err != nil {
		return err
	}
	if !complete {
		return nil
	}
	if !CanTransition(c.Status, domain.StatusReady) {
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, c.CaseID, domain.StatusReady, nil); err != nil {
		return err
	}
	return s.recordAudit(ctx, caller, "case.transition", c.CaseID, map[string]interface{}{
		"from": string(c.Status),
		"to":   string(domain.StatusReady),
	})
}

// isComplete reports whether every evidence slot on caseID is bound and
// every bound document has at least one committed version.
func (s *Service) isComplete(ctx context.Context, caseID string) (bool, error) {
	slots, err := s.repo.EvidenceSlots(ctx, caseID)
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		if slot.DocumentID == "" {
			return false, nil
		}
		hasVersion, err := s.docs.HasCommittedVersion(ctx, slot.DocumentID)
		if err != nil {
			return false, err
		}
		if !hasVersion {
			return false, nil
		}
	}
	return true, nil
}

// Close transitions a ready case to closed.
func (s *Service) Close(ctx context.Context, caller domain.CallerContext, caseID string) (domain.Case, error) {
	return s.transition(ctx, caller, caseID, domain.StatusClosed)
}

// Revoke transitions any non-terminal case to revoked.
func (s *Service) Revoke(ctx context.Context, caller domain.CallerContext, caseID string) (domain.Case, error) {
	return s.transition(ctx, caller, caseID, domain.StatusRevoked)
}

var transitionRequirement = access.Require().
	Role(domain.RolePrincipal, domain.RoleProxy).
	Scope("write:limited")

func (s *Service) transition(ctx context.Context, caller domain.CallerContext, caseID string, to domain.CaseStatus) (domain.Case, error) {
	if err := transitionRequirement.Check(caller); err != nil {
		return domain.Case{}, err
	}
	c, err := s.repo.GetCase(ctx, caseID)
	if err == database.ErrNotFound {
		return domain.Case{}, coreerr.NotFound("case not found")
	}
	if err != nil {
		return domain.Case{}, err
	}
	if c.PrincipalID != caller.PrincipalID {
		return domain.Case{}, coreerr.NotFound("case not found")
	}
	if err := ValidateTransition(c.Status, to); err != nil {
		return domain.Case{}, coreerr.Conflict(err.Error())
	}
	if err := s.repo.UpdateStatus(ctx, caseID, to, nil); err != nil {
		return domain.Case{}, err
	}
	c.Status = to

	if err := s.recordAudit(ctx, caller, "case.transition", caseID, map[string]interface{}{
		"to": string(to),
	}); err != nil {
		return domain.Case{}, err
	}
	return c, nil
}

// GetCase returns a case, enforcing ownership the same not_found way as
// every other case operation.
func (s *Service) GetCase(ctx context.Context, caller domain.CallerContext, caseID string) (domain.Case, error) {
	c, err := s.repo.GetCase(ctx, caseID)
	if err == database.ErrNotFound {
		return domain.Case{}, coreerr.NotFound("case not found")
	}
	if err != nil {
		return domain.Case{}, err
	}
	if c.PrincipalID != caller.PrincipalID {
		return domain.Case{}, coreerr.NotFound("case not found")
	}
	return c, nil
}

// SortedSlots returns caseID's evidence slots ordered by slot_name.
func (s *Service) SortedSlots(ctx context.Context, caseID string) ([]domain.EvidenceSlot, error) {
	slots, err := s.repo.EvidenceSlots(ctx, caseID)
	if err != nil {
		return nil, err
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].SlotName < slots[j].SlotName })
	return slots, nil
}

// recordAudit appends one audit event and returns its error to the
// caller instead of swallowing it: an unrecorded case transition is as
// fatal as a rejected one, since the audit trail is what makes the
// transition provable later.
func (s *Service) recordAudit(ctx context.Context, caller domain.CallerContext, action, caseID string, payload map[string]interface{}) error {
	if s.auditLog == nil {
		return nil
	}
	_, err := s.auditLog.Record(ctx, audit.AppendInput{
		ActorPrincipalID: caller.PrincipalID,
		Action:           action,
		Tier:             domain.TierAmber,
		CaseID:           caseID,
		Payload:          payload,
	})
	if err != nil {
		s.logger.Printf("record audit event action=%s case=%s: %v", action, caseID, err)
		return coreerr.Wrap(coreerr.KindInternal, err, "record audit event")
	}
	return nil
}

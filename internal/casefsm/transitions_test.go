package casefsm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lifeready/core/internal/domain"
)

func TestCanTransition_ValidEdges(t *testing.T) {
	cases := []struct {
		from, to domain.CaseStatus
	}{
		{domain.StatusDraft, domain.StatusReady},
		{domain.StatusDraft, domain.StatusBlocked},
		{domain.StatusBlocked, domain.StatusReady},
		{domain.StatusReady, domain.StatusExported},
		{domain.StatusReady, domain.StatusClosed},
		{domain.StatusDraft, domain.StatusRevoked},
		{domain.StatusBlocked, domain.StatusRevoked},
		{domain.StatusReady, domain.StatusRevoked},
		{domain.StatusExported, domain.StatusRevoked},
	}
	for _, c := range cases {
		assert.Truef(t, CanTransition(c.from, c.to), "%s -> %s should be valid", c.from, c.to)
	}
}

func TestCanTransition_InvalidEdges(t *testing.T) {
	cases := []struct {
		from, to domain.CaseStatus
	}{
		{domain.StatusExported, domain.StatusReady},
		{domain.StatusClosed, domain.StatusReady},
		{domain.StatusRevoked, domain.StatusReady},
		{domain.StatusDraft, domain.StatusExported},
		{domain.StatusReady, domain.StatusDraft},
	}
	for _, c := range cases {
		assert.Falsef(t, CanTransition(c.from, c.to), "%s -> %s should be invalid", c.from, c.to)
	}
}

func TestCanTransition_RejectsReservedComputedStatuses(t *testing.T) {
	for reserved := range domain.ReservedComputedStatuses {
		assert.Falsef(t, CanTransition(domain.StatusDraft, reserved), "reserved status %s must never be a valid transition target", reserved)
	}
}

func TestValidateTransition_ReturnsDescriptiveError(t *testing.T) {
	err := ValidateTransition(domain.StatusExported, domain.StatusReady)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exported")
	assert.Contains(t, err.Error(), "ready")
}

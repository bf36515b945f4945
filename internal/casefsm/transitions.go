// Copyright 2025 LifeReady
package casefsm

import (
	"fmt"

	"github.com/lifeready/core/internal/domain"
)

// validEdges enumerates the only status transitions this core's own
// operations may perform. "any -> revoked" is expanded to every
// non-terminal status at package init.
var validEdges = map[domain.CaseStatus]map[domain.CaseStatus]struct{}{
	domain.StatusDraft: {
		domain.StatusReady:   {},
		domain.StatusBlocked: {},
	},
	domain.StatusBlocked: {
		domain.StatusReady: {},
	},
	domain.StatusReady: {
		domain.StatusExported: {},
		domain.StatusClosed:   {},
	},
}

var revocableFrom = []domain.CaseStatus{
	domain.StatusDraft,
	domain.StatusBlocked,
	domain.StatusReady,
	domain.StatusExported,
}

func init() {
	for _, from := range revocableFrom {
		if validEdges[from] == nil {
			validEdges[from] = map[domain.CaseStatus]struct{}{}
		}
		validEdges[from][domain.StatusRevoked] = struct{}{}
	}
}

// CanTransition reports whether from -> to is a valid edge. Reserved
// computed statuses are never a valid "to" for this core, by
// construction: they never appear in validEdges.
func CanTransition(from, to domain.CaseStatus) bool {
	if _, reserved := domain.ReservedComputedStatuses[to]; reserved {
		return false
	}
	edges, ok := validEdges[from]
	if !ok {
		return false
	}
	_, ok = edges[to]
	return ok
}

// ValidateTransition returns an error describing why from -> to is
// rejected, or nil if it's a valid edge.
func ValidateTransition(from, to domain.CaseStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid case status transition: %s -> %s", from, to)
	}
	return nil
}

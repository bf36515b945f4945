// Copyright 2025 LifeReady
//
// Package access is the sensitivity-tier access control kernel shared by
// every service: role x tier x scope gating against a verified caller
// context. It is pure — no I/O, no side effects — so every denial in the
// product traces back to one of these three axes.
//
// The role-keyed permission-set idea mirrors a chain-of-custody RBAC
// model; the fluent requirement builder follows a functional-options
// idiom generalized to a three-axis check that fails fast on the first
// unmet axis.
package access

import (
	"fmt"

	"github.com/lifeready/core/internal/coreerr"
	"github.com/lifeready/core/internal/domain"
)

// TierRequirement is one of Min(t) or Allowlist(S).
type TierRequirement struct {
	min       domain.SensitivityTier
	hasMin    bool
	allowlist map[domain.SensitivityTier]struct{}
}

// Min requires the caller's allowed_tiers to contain some tier >= t.
func Min(t domain.SensitivityTier) TierRequirement {
	return TierRequirement{min: t, hasMin: true}
}

// Allowlist requires the caller's allowed_tiers to contain every tier in
// S.
func Allowlist(tiers ...domain.SensitivityTier) TierRequirement {
	set := make(map[domain.SensitivityTier]struct{}, len(tiers))
	for _, t := range tiers {
		set[t] = struct{}{}
	}
	return TierRequirement{allowlist: set}
}

func (r TierRequirement) satisfiedBy(ctx domain.CallerContext) bool {
	if r.hasMin {
		for t := range ctx.AllowedTiers {
			if t >= r.min {
				return true
			}
		}
		return false
	}
	for t := range r.allowlist {
		if !ctx.HasTier(t) {
			return false
		}
	}
	return true
}

// Requirement is the (role-whitelist, tier-requirement, scope-set) triple
// that gates one operation.
type Requirement struct {
	roles   []domain.Role
	tier    TierRequirement
	scopes  []string
	anyOf   bool // if true, satisfied by any scope in scopes; else all must match
}

// Require starts a fluent requirement builder.
func Require() *Requirement {
	return &Requirement{}
}

// Role restricts the requirement to a role whitelist.
func (r *Requirement) Role(roles ...domain.Role) *Requirement {
	r.roles = roles
	return r
}

// Tier attaches a tier requirement.
func (r *Requirement) Tier(t TierRequirement) *Requirement {
	r.tier = t
	return r
}

// Scope requires every scope in scopes to be present.
func (r *Requirement) Scope(scopes ...string) *Requirement {
	r.scopes = scopes
	r.anyOf = false
	return r
}

// AnyScope requires at least one scope in scopes to be present.
func (r *Requirement) AnyScope(scopes ...string) *Requirement {
	r.scopes = scopes
	r.anyOf = true
	return r
}

// Check evaluates the requirement against ctx, failing fast on the first
// unmet axis (role, then tier, then scope) so the caller's error kind
// always reflects the most fundamental denial.
func (r *Requirement) Check(ctx domain.CallerContext) error {
	if len(r.roles) > 0 {
		ok := false
		for _, role := range r.roles {
			if ctx.HasRole(role) {
				ok = true
				break
			}
		}
		if !ok {
			return coreerr.ForbiddenRole(fmt.Sprintf("caller roles %v do not satisfy required roles %v", ctx.Roles, r.roles))
		}
	}

	if (r.tier.hasMin || r.tier.allowlist != nil) && !r.tier.satisfiedBy(ctx) {
		return coreerr.ForbiddenTier("caller's allowed tiers do not satisfy the operation's tier requirement")
	}

	if len(r.scopes) > 0 {
		if r.anyOf {
			ok := false
			for _, s := range r.scopes {
				if ctx.HasScope(s) {
					ok = true
					break
				}
			}
			if !ok {
				return coreerr.ForbiddenScope(fmt.Sprintf("caller lacks any of required scopes %v", r.scopes))
			}
		} else {
			for _, s := range r.scopes {
				if !ctx.HasScope(s) {
					return coreerr.ForbiddenScope(fmt.Sprintf("caller lacks required scope %q", s))
				}
			}
		}
	}

	return nil
}

// DocumentVisible reports whether a document of the given sensitivity is
// visible to ctx — the per-document tier filter applied on top of the
// operation-level Check. Forbidden in a list is silent filtering;
// forbidden in a single-get is an error.
func DocumentVisible(ctx domain.CallerContext, sensitivity domain.SensitivityTier) bool {
	return ctx.HasTier(sensitivity)
}

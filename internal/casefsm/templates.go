// Copyright 2025 LifeReady
//
// Package casefsm implements the case state machine: typed evidence
// slots, case-type default templates, and the valid-edges-only status
// transition table.
package casefsm

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lifeready/core/internal/domain"
)

//go:embed templates.yaml
var templatesFS embed.FS

// Template is one case type's default evidence-slot template.
type Template struct {
	InitialStatus domain.CaseStatus `yaml:"initial_status"`
	BlockedReason string            `yaml:"blocked_reason"`
	Slots         []string          `yaml:"slots"`
}

// rawTemplates mirrors templates.yaml's top-level shape before its keys
// are parsed into domain.CaseType.
type rawTemplates map[string]Template

// Templates is the case-type -> Template registry, loaded once at
// package init from the embedded templates.yaml.
var Templates map[domain.CaseType]Template

func init() {
	data, err := templatesFS.ReadFile("templates.yaml")
	if err != nil {
		panic(fmt.Sprintf("casefsm: read embedded templates.yaml: %v", err))
	}
	var raw rawTemplates
	if err := yaml.Unmarshal(data, &raw); err != nil {
		panic(fmt.Sprintf("casefsm: parse templates.yaml: %v", err))
	}
	Templates = make(map[domain.CaseType]Template, len(raw))
	for k, v := range raw {
		Templates[domain.CaseType(k)] = v
	}
}

// TemplateFor returns the default template for caseType, or false if
// caseType is unknown.
func TemplateFor(caseType domain.CaseType) (Template, bool) {
	t, ok := Templates[caseType]
	return t, ok
}

// SortedSlotNames returns slots in lexicographic order, the order the
// export pipeline resolves documents in.
func SortedSlotNames(slots []string) []string {
	out := make([]string, len(slots))
	copy(out, slots)
	sort.Strings(out)
	return out
}

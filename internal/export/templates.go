// Copyright 2025 LifeReady
//
// Package export builds tamper-evident case export bundles: a manifest,
// an audit excerpt, a checksums file, and a binary copy of every slot's
// current document version.
package export

import (
	"embed"

	"github.com/lifeready/core/internal/domain"
)

//go:embed templates/witnessing_instructions.md templates/instructions.md
var literalTemplatesFS embed.FS

// literalArtifact is one type-specific file the pipeline writes
// verbatim from literalTemplatesFS, keyed by the case type it applies
// to. Literal template output, never user-authored content.
type literalArtifact struct {
	filename string
	source   string
}

var literalArtifactsByCaseType = map[domain.CaseType]literalArtifact{
	domain.CaseTypeWillPrepSA: {
		filename: "witnessing_instructions.md",
		source:   "templates/witnessing_instructions.md",
	},
	domain.CaseTypeDeceasedEstateReportingSA: {
		filename: "instructions.md",
		source:   "templates/instructions.md",
	},
}

// literalArtifactFor returns the bytes and filename of caseType's
// type-specific instruction file, or ok=false if caseType has none.
func literalArtifactFor(caseType domain.CaseType) (filename string, content []byte, ok bool) {
	artifact, found := literalArtifactsByCaseType[caseType]
	if !found {
		return "", nil, false
	}
	content, err := literalTemplatesFS.ReadFile(artifact.source)
	if err != nil {
		panic("export: embedded template missing: " + artifact.source)
	}
	return artifact.filename, content, true
}

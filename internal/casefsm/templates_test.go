package casefsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeready/core/internal/domain"
)

func TestTemplates_AllCaseTypesLoaded(t *testing.T) {
	caseTypes := []domain.CaseType{
		domain.CaseTypeEmergencyPack,
		domain.CaseTypeMHCA39,
		domain.CaseTypeWillPrepSA,
		domain.CaseTypeDeceasedEstateReportingSA,
		domain.CaseTypePOPIAIncident,
	}
	for _, ct := range caseTypes {
		tmpl, ok := TemplateFor(ct)
		require.Truef(t, ok, "missing template for %s", ct)
		assert.NotEmpty(t, tmpl.InitialStatus)
	}
}

func TestTemplates_Mhca39HasAtLeastFiveSlots(t *testing.T) {
	tmpl, ok := TemplateFor(domain.CaseTypeMHCA39)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(tmpl.Slots), 5)
	assert.Equal(t, domain.StatusBlocked, tmpl.InitialStatus)
}

func TestTemplates_WillPrepHasAtLeastFiveSlots(t *testing.T) {
	tmpl, ok := TemplateFor(domain.CaseTypeWillPrepSA)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(tmpl.Slots), 5)
}

func TestTemplates_DeceasedEstateHasAtLeastSevenSlots(t *testing.T) {
	tmpl, ok := TemplateFor(domain.CaseTypeDeceasedEstateReportingSA)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(tmpl.Slots), 7)
}

func TestTemplates_EmergencyPackAndPopiaHaveNoSlots(t *testing.T) {
	for _, ct := range []domain.CaseType{domain.CaseTypeEmergencyPack, domain.CaseTypePOPIAIncident} {
		tmpl, ok := TemplateFor(ct)
		require.True(t, ok)
		assert.Empty(t, tmpl.Slots)
		assert.Equal(t, domain.StatusDraft, tmpl.InitialStatus)
	}
}

func TestSortedSlotNames_DoesNotMutateInput(t *testing.T) {
	input := []string{"zeta", "alpha", "mu"}
	sorted := SortedSlotNames(input)

	assert.Equal(t, []string{"alpha", "mu", "zeta"}, sorted)
	assert.Equal(t, []string{"zeta", "alpha", "mu"}, input)
}

package casefsm

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeready/core/internal/domain"
	"github.com/lifeready/core/pkg/database"
)

// testClient connects to LIFEREADY_TEST_DB if set, otherwise skips.
func testClient(t *testing.T) *database.Client {
	t.Helper()
	dsn := os.Getenv("LIFEREADY_TEST_DB")
	if dsn == "" {
		t.Skip("LIFEREADY_TEST_DB not set, skipping casefsm integration test")
	}
	client, err := database.NewClient(dsn, database.Options{})
	require.NoError(t, err)
	require.NoError(t, client.MigrateUp(context.Background()))
	t.Cleanup(func() { client.Close() })
	return client
}

// fakeDocs is an in-memory DocumentVersionLookup for tests that don't
// need the vault package wired in.
type fakeDocs struct {
	existing   map[string]bool
	hasVersion map[string]bool
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{existing: map[string]bool{}, hasVersion: map[string]bool{}}
}

func (f *fakeDocs) DocumentExists(ctx context.Context, documentID string) (bool, error) {
	return f.existing[documentID], nil
}

func (f *fakeDocs) HasCommittedVersion(ctx context.Context, documentID string) (bool, error) {
	return f.hasVersion[documentID], nil
}

func testCaller(principalID string) domain.CallerContext {
	return domain.CallerContext{
		PrincipalID:  principalID,
		Roles:        []domain.Role{domain.RolePrincipal},
		AllowedTiers: map[domain.SensitivityTier]struct{}{domain.TierAmber: {}, domain.TierGreen: {}},
		Scopes:       map[string]struct{}{"write:limited": {}, "read:all": {}, "read:packs": {}},
	}
}

func TestService_CreateCase_UsesTemplateDefaults(t *testing.T) {
	client := testClient(t)
	repo := NewRepository(client)
	svc := NewService(repo, newFakeDocs(), nil, nil)
	caller := testCaller("principal-1")

	c, err := svc.CreateCase(context.Background(), caller, CreateCaseInput{CaseType: domain.CaseTypeMHCA39})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, c.Status)
	assert.Contains(t, c.BlockedReasons, "evidence incomplete")

	slots, err := svc.SortedSlots(context.Background(), c.CaseID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(slots), 5)
}

func TestService_AttachEvidence_TransitionsDraftToReadyWhenComplete(t *testing.T) {
	client := testClient(t)
	repo := NewRepository(client)
	docs := newFakeDocs()
	svc := NewService(repo, docs, nil, nil)
	caller := testCaller("principal-2")

	c, err := svc.CreateCase(context.Background(), caller, CreateCaseInput{
		CaseType: domain.CaseTypeEmergencyPack,
		Slots:    []string{"only_slot"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, c.Status)

	docs.existing["doc-1"] = true
	docs.hasVersion["doc-1"] = true

	_, err = svc.AttachEvidence(context.Background(), caller, c.CaseID, "only_slot", "doc-1")
	require.NoError(t, err)

	got, err := svc.GetCase(context.Background(), caller, c.CaseID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, got.Status)
}

func TestService_AttachEvidence_ForeignCaseIsNotFound(t *testing.T) {
	client := testClient(t)
	repo := NewRepository(client)
	docs := newFakeDocs()
	svc := NewService(repo, docs, nil, nil)
	owner := testCaller("principal-owner")
	intruder := testCaller("principal-intruder")

	c, err := svc.CreateCase(context.Background(), owner, CreateCaseInput{
		CaseType: domain.CaseTypeEmergencyPack,
		Slots:    []string{"only_slot"},
	})
	require.NoError(t, err)

	_, err = svc.AttachEvidence(context.Background(), intruder, c.CaseID, "only_slot", "doc-1")
	assert.Error(t, err)
}

func TestService_Revoke_IsValidFromAnyNonTerminalStatus(t *testing.T) {
	client := testClient(t)
	repo := NewRepository(client)
	svc := NewService(repo, newFakeDocs(), nil, nil)
	caller := testCaller("principal-3")

	c, err := svc.CreateCase(context.Background(), caller, CreateCaseInput{CaseType: domain.CaseTypeEmergencyPack})
	require.NoError(t, err)

	revoked, err := svc.Revoke(context.Background(), caller, c.CaseID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRevoked, revoked.Status)
}

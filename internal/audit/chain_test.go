package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeready/core/internal/domain"
)

func TestComputeEventHash_Deterministic(t *testing.T) {
	e := domain.AuditEvent{
		EventID:          "evt-1",
		CreatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ActorPrincipalID: "principal-1",
		Action:           "document.init",
		Tier:             domain.TierAmber,
		CaseID:           "case-1",
		Payload:          map[string]interface{}{"document_id": "doc-1"},
		PrevHash:         domain.ZeroHash,
	}

	h1, err := ComputeEventHash(e)
	require.NoError(t, err)
	h2, err := ComputeEventHash(e)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestComputeEventHash_SensitiveToEveryField(t *testing.T) {
	base := domain.AuditEvent{
		EventID:          "evt-1",
		CreatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ActorPrincipalID: "principal-1",
		Action:           "document.init",
		Tier:             domain.TierAmber,
		CaseID:           "case-1",
		Payload:          map[string]interface{}{"k": "v"},
		PrevHash:         domain.ZeroHash,
	}
	baseHash, err := ComputeEventHash(base)
	require.NoError(t, err)

	variants := []domain.AuditEvent{base, base, base, base, base, base, base}
	variants[0].EventID = "evt-2"
	variants[1].ActorPrincipalID = "principal-2"
	variants[2].Action = "document.commit_version"
	variants[3].Tier = domain.TierRed
	variants[4].CaseID = "case-2"
	variants[5].Payload = map[string]interface{}{"k": "different"}
	variants[6].PrevHash = "1111111111111111111111111111111111111111111111111111111111111111"[:64]

	for i, v := range variants {
		h, err := ComputeEventHash(v)
		require.NoError(t, err)
		assert.NotEqualf(t, baseHash, h, "variant %d did not change the hash", i)
	}
}

func chainOf(t *testing.T, n int) []domain.AuditEvent {
	t.Helper()
	var events []domain.AuditEvent
	prev := domain.ZeroHash
	for i := 0; i < n; i++ {
		e := domain.AuditEvent{
			EventID:          uuidLike(i),
			CreatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Second),
			ActorPrincipalID: "principal-1",
			Action:           "document.init",
			Tier:             domain.TierGreen,
			Payload:          map[string]interface{}{"n": i},
			PrevHash:         prev,
		}
		h, err := ComputeEventHash(e)
		require.NoError(t, err)
		e.EventHash = h
		events = append(events, e)
		prev = h
	}
	return events
}

func uuidLike(i int) string {
	return "evt-" + string(rune('a'+i))
}

func TestVerifyChain_ValidChain(t *testing.T) {
	events := chainOf(t, 5)
	assert.NoError(t, VerifyChain(events))
}

func TestVerifyChain_EmptyChainIsValid(t *testing.T) {
	assert.NoError(t, VerifyChain(nil))
}

func TestVerifyChain_DetectsTamperedPayload(t *testing.T) {
	events := chainOf(t, 3)
	events[1].Payload = map[string]interface{}{"n": 999}

	err := VerifyChain(events)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position 1")
}

func TestVerifyChain_DetectsBrokenLink(t *testing.T) {
	events := chainOf(t, 3)
	events[2].PrevHash = domain.ZeroHash

	err := VerifyChain(events)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position 2")
}

func TestVerifyChain_DetectsWrongGenesis(t *testing.T) {
	events := chainOf(t, 1)
	events[0].PrevHash = "deadbeef"

	err := VerifyChain(events)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position 0")
}

func TestHeadHash(t *testing.T) {
	assert.Equal(t, domain.ZeroHash, HeadHash(nil))

	events := chainOf(t, 4)
	assert.Equal(t, events[3].EventHash, HeadHash(events))
}

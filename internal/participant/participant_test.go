package participant

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/accord/internal/config"
	"github.com/agenthands/accord/internal/core/common"
	"github.com/agenthands/accord/internal/core/model"
)

func TestAskIsDeterministic(t *testing.T) {
	// Two independently constructed participants with the same identity and
	// persona must generate byte-identical content and signatures.
	p1 := NewLocalParticipant("local:reviewer", "resident analyst", 10, 60)
	p2 := NewLocalParticipant("local:reviewer", "resident analyst", 10, 60)

	ex1, err := p1.Ask("inspect the mesh", 1.2345)
	require.NoError(t, err)
	ex2, err := p2.Ask("inspect the mesh", 1.2345)
	require.NoError(t, err)

	assert.Equal(t, ex1.Content, ex2.Content)
	assert.Equal(t, ex1.Signature, ex2.Signature)
	assert.Equal(t, model.RoleAsk, ex1.Role)
	assert.Contains(t, ex1.Content, "[local:reviewer:ask] resident analyst reflection ")
}

func TestTrustRoundingBoundsDeterminism(t *testing.T) {
	p := NewLocalParticipant("local:reviewer", "resident analyst", 10, 60)

	// Trust values that agree to three decimals produce identical content.
	ex1, err := p.Ask("probe", 0.1231)
	require.NoError(t, err)
	ex2, err := p.Ask("probe", 0.1234)
	require.NoError(t, err)
	assert.Equal(t, ex1.Content, ex2.Content)

	ex3, err := p.Ask("probe", 0.1236)
	require.NoError(t, err)
	assert.NotEqual(t, ex1.Content, ex3.Content)
}

func TestSignatureChangesWithContent(t *testing.T) {
	p := NewLocalParticipant("local:reviewer", "", 10, 60)

	ex1, err := p.Ask("first prompt", 1.0)
	require.NoError(t, err)
	ex2, err := p.Ask("second prompt", 1.0)
	require.NoError(t, err)

	assert.NotEqual(t, ex1.Content, ex2.Content)
	assert.NotEqual(t, ex1.Signature, ex2.Signature)

	// Repeating the first call reproduces the first signature.
	ex3, err := p.Ask("first prompt", 1.0)
	require.NoError(t, err)
	assert.Equal(t, ex1.Signature, ex3.Signature)
}

func TestRateLimit(t *testing.T) {
	p := NewLocalParticipant("local:reviewer", "", 1, 60)

	first, err := p.Ask("hello", 1.0)
	require.NoError(t, err)

	_, err = p.Ask("hello", 1.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)

	// Reset clears history; the retried call reproduces the original content.
	p.Reset()
	again, err := p.Ask("hello", 1.0)
	require.NoError(t, err)
	assert.Equal(t, first.Content, again.Content)
}

func TestRateLimitScalesWithTrust(t *testing.T) {
	// ceil(4 * 0.25) = 1: a deeply distrusted context still gets one call.
	assert.Equal(t, 1, effectiveLimit(4, -3.0))
	assert.Equal(t, 4, effectiveLimit(4, 1.0))
	assert.Equal(t, 8, effectiveLimit(4, 2.0))
	assert.Equal(t, 2, effectiveLimit(4, 0.3))
}

func TestVoteDecisionDerivation(t *testing.T) {
	p := NewLocalParticipant("local:reviewer", "", 10, 60)

	transcript := map[string]interface{}{
		"job_id":    "job-1",
		"responses": []string{"a", "b"},
		"critiques": []string{"c"},
	}

	ex, err := p.Vote(transcript, 1.0)
	require.NoError(t, err)
	assert.Equal(t, model.RoleVote, ex.Role)

	// Recompute the pivot independently and check the derived fields.
	enc, err := common.CanonicalJSON(transcript)
	require.NoError(t, err)
	digest := sha256.Sum256([]byte(enc))
	pivot := digest[0]

	expected := model.DecisionDefer
	switch pivot % 3 {
	case 0:
		expected = model.DecisionApprove
	case 1:
		expected = model.DecisionRevise
	}

	assert.Equal(t, expected, ex.Metadata["decision"])
	assert.InDelta(t, 0.45+(float64(pivot)/255.0)*0.5, ex.Metadata["confidence"].(float64), 1e-9)
	assert.Equal(t, hex.EncodeToString(digest[:]), ex.Metadata["transcript_hash"])
	assert.Equal(t, false, ex.Metadata["advisory"])
}

func TestVoteConfidenceRange(t *testing.T) {
	p := NewLocalParticipant("local:reviewer", "", 100, 60)

	for i := 0; i < 20; i++ {
		ex, err := p.Vote(map[string]interface{}{"seed": i}, 1.0)
		require.NoError(t, err)
		confidence := ex.Metadata["confidence"].(float64)
		assert.GreaterOrEqual(t, confidence, 0.45)
		assert.LessOrEqual(t, confidence, 0.95)
	}
}

func TestOracleAvailabilityGating(t *testing.T) {
	unavailable := NewOracleParticipant("oracle:remote", "", "", 0, 0)
	assert.False(t, unavailable.Available())

	available := NewOracleParticipant("oracle:remote", "", "sk-test-abc", 0, 0)
	assert.True(t, available.Available())
	assert.True(t, available.Advisory())
}

func TestConfigNeverExposesCredential(t *testing.T) {
	p := NewAuditorParticipant("auditor:compliance", "", "sk-auditor-secret", 0, 0)

	cfg := p.Config()
	assert.Equal(t, true, cfg["credential"])
	assert.Len(t, cfg["credential_fingerprint"], 8)
	for _, v := range cfg {
		if s, ok := v.(string); ok {
			assert.NotEqual(t, "sk-auditor-secret", s)
		}
	}
}

func TestFactory(t *testing.T) {
	p, err := New(config.ParticipantConfig{Kind: "local", Name: "local:reviewer"})
	require.NoError(t, err)
	assert.Equal(t, "local:reviewer", p.Identity())
	assert.False(t, p.Advisory())

	_, err = New(config.ParticipantConfig{Kind: "seer", Name: "seer:unknown"})
	assert.Error(t, err)
}

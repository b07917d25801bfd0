package participant

import "github.com/agenthands/accord/internal/core/common"

// AuditorParticipant is the second credentialed advisory seat, with a much
// tighter budget than the oracle. Structurally identical otherwise.
type AuditorParticipant struct {
	base
	apiKey string
}

const defaultAuditorLimit = 12

func NewAuditorParticipant(identity, persona, apiKey string, baseLimit, windowSeconds int) *AuditorParticipant {
	if baseLimit <= 0 {
		baseLimit = defaultAuditorLimit
	}
	if persona == "" {
		persona = "compliance auditor"
	}
	return &AuditorParticipant{
		base:   newBase(identity, "auditor", persona, true, baseLimit, windowSeconds),
		apiKey: apiKey,
	}
}

func (p *AuditorParticipant) Available() bool { return p.apiKey != "" }

func (p *AuditorParticipant) Config() map[string]interface{} {
	cfg := p.baseConfig()
	cfg["credential"] = p.apiKey != ""
	cfg["credential_fingerprint"] = common.Fingerprint(p.apiKey)
	return cfg
}

package participant

import "github.com/agenthands/accord/internal/core/common"

// OracleParticipant is a credentialed advisory seat. It stays unavailable
// until an API key is configured, and its votes carry reduced weight.
type OracleParticipant struct {
	base
	apiKey string
}

const defaultOracleLimit = 30

func NewOracleParticipant(identity, persona, apiKey string, baseLimit, windowSeconds int) *OracleParticipant {
	if baseLimit <= 0 {
		baseLimit = defaultOracleLimit
	}
	if persona == "" {
		persona = "external oracle"
	}
	return &OracleParticipant{
		base:   newBase(identity, "oracle", persona, true, baseLimit, windowSeconds),
		apiKey: apiKey,
	}
}

func (p *OracleParticipant) Available() bool { return p.apiKey != "" }

func (p *OracleParticipant) Config() map[string]interface{} {
	cfg := p.baseConfig()
	cfg["credential"] = p.apiKey != ""
	// Fingerprint only. The key itself must never leave the process.
	cfg["credential_fingerprint"] = common.Fingerprint(p.apiKey)
	return cfg
}

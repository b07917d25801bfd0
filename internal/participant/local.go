package participant

// LocalParticipant is the always-available reviewer. It needs no credential,
// is non-advisory, and its votes carry full weight.
type LocalParticipant struct {
	base
}

const defaultLocalLimit = 120

func NewLocalParticipant(identity, persona string, baseLimit, windowSeconds int) *LocalParticipant {
	if baseLimit <= 0 {
		baseLimit = defaultLocalLimit
	}
	if persona == "" {
		persona = "resident analyst"
	}
	return &LocalParticipant{
		base: newBase(identity, "local", persona, false, baseLimit, windowSeconds),
	}
}

func (p *LocalParticipant) Available() bool { return true }

func (p *LocalParticipant) Config() map[string]interface{} {
	cfg := p.baseConfig()
	cfg["credential"] = false
	return cfg
}

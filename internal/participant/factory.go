package participant

import (
	"fmt"
	"strings"

	"github.com/agenthands/accord/internal/config"
)

// New builds a participant from config. Unknown kinds are an error rather
// than a silent default so a typo in config doesn't drop a reviewer.
func New(cfg config.ParticipantConfig) (ReviewParticipant, error) {
	kind := strings.ToLower(cfg.Kind)
	name := cfg.Name
	if name == "" {
		name = kind
	}

	switch kind {
	case "local":
		return NewLocalParticipant(name, cfg.Persona, cfg.BaseLimit, cfg.WindowSeconds), nil

	case "oracle":
		return NewOracleParticipant(name, cfg.Persona, cfg.APIKey, cfg.BaseLimit, cfg.WindowSeconds), nil

	case "auditor":
		return NewAuditorParticipant(name, cfg.Persona, cfg.APIKey, cfg.BaseLimit, cfg.WindowSeconds), nil

	default:
		return nil, fmt.Errorf("unsupported participant kind: %s", cfg.Kind)
	}
}

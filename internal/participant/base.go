package participant

import (
	"fmt"
	"time"

	"github.com/agenthands/accord/internal/core/common"
	"github.com/agenthands/accord/internal/core/model"
)

const defaultWindowSeconds = 60

// base carries the behavior shared by every participant variant: canonical
// encoding, signing, the deterministic text generator, and rate limiting.
// Variants differ only in persona, advisory flag, base budget, and
// availability gating.
type base struct {
	identity  string
	kind      string
	persona   string
	advisory  bool
	baseLimit int
	limiter   *slidingWindow
}

func newBase(identity, kind, persona string, advisory bool, baseLimit, windowSeconds int) base {
	if windowSeconds <= 0 {
		windowSeconds = defaultWindowSeconds
	}
	return base{
		identity:  identity,
		kind:      kind,
		persona:   persona,
		advisory:  advisory,
		baseLimit: baseLimit,
		limiter:   newSlidingWindow(time.Duration(windowSeconds) * time.Second),
	}
}

func (b *base) Identity() string { return b.identity }
func (b *base) Advisory() bool   { return b.advisory }

func (b *base) Reset() { b.limiter.reset() }

// limitKey buckets rate-limit history by identity and concrete variant.
func (b *base) limitKey() string {
	return b.identity + "|" + b.kind
}

func (b *base) spend(trust float64) error {
	return b.limiter.allow(b.limitKey(), effectiveLimit(b.baseLimit, trust))
}

// sign hashes "{identity}:{content}". Every signature in the protocol goes
// through here.
func (b *base) sign(content string) string {
	return common.HashHex(b.identity + ":" + content)
}

// generate is the deterministic stand-in for a real backend: a pure function
// of identity, mode, persona, prompt, and trust rounded to three places.
// Wall clock enters the Exchange timestamp only, never the content.
func (b *base) generate(mode, prompt string, trust float64) (model.Exchange, error) {
	if err := b.spend(trust); err != nil {
		return model.Exchange{}, err
	}

	seed := map[string]interface{}{
		"identity": b.identity,
		"mode":     mode,
		"persona":  b.persona,
		"prompt":   prompt,
		"trust":    common.Round3(trust),
	}
	enc, err := common.CanonicalJSON(seed)
	if err != nil {
		return model.Exchange{}, fmt.Errorf("failed to encode generation seed: %w", err)
	}

	token := common.HashHex(enc)[:12]
	content := fmt.Sprintf("[%s:%s] %s reflection %s", b.identity, mode, b.persona, token)

	return model.Exchange{
		Participant: b.identity,
		Role:        mode,
		Content:     content,
		Signature:   b.sign(content),
		Advisory:    b.advisory,
		Timestamp:   time.Now().UTC(),
		Metadata: map[string]interface{}{
			"input_hash": common.HashHex(enc),
		},
	}, nil
}

func (b *base) Ask(prompt string, trust float64) (model.Exchange, error) {
	return b.generate(model.RoleAsk, prompt, trust)
}

func (b *base) Critique(statement string, trust float64) (model.Exchange, error) {
	return b.generate(model.RoleCritique, statement, trust)
}

// Vote canonicalizes the transcript and derives decision and confidence from
// the first byte of its digest: approve, revise, or defer for pivot%3 of 0, 1,
// or anything else; confidence spans [0.45, 0.95].
func (b *base) Vote(transcript map[string]interface{}, trust float64) (model.Exchange, error) {
	if err := b.spend(trust); err != nil {
		return model.Exchange{}, err
	}

	enc, err := common.CanonicalJSON(transcript)
	if err != nil {
		return model.Exchange{}, fmt.Errorf("failed to encode transcript: %w", err)
	}

	digest := common.HashBytes(enc)
	pivot := digest[0]

	decision := model.DecisionDefer
	switch pivot % 3 {
	case 0:
		decision = model.DecisionApprove
	case 1:
		decision = model.DecisionRevise
	}
	confidence := 0.45 + (float64(pivot)/255.0)*0.5

	payload := map[string]interface{}{
		"decision":        decision,
		"confidence":      confidence,
		"advisory":        b.advisory,
		"transcript_hash": common.HashHex(enc),
	}
	payloadEnc, err := common.CanonicalJSON(payload)
	if err != nil {
		return model.Exchange{}, fmt.Errorf("failed to encode vote payload: %w", err)
	}
	payload["signature"] = b.sign(payloadEnc)

	content, err := common.CanonicalJSON(payload)
	if err != nil {
		return model.Exchange{}, fmt.Errorf("failed to encode vote content: %w", err)
	}

	metadata := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		metadata[k] = v
	}

	return model.Exchange{
		Participant: b.identity,
		Role:        model.RoleVote,
		Content:     content,
		Signature:   b.sign(content),
		Advisory:    b.advisory,
		Timestamp:   time.Now().UTC(),
		Metadata:    metadata,
	}, nil
}

// baseConfig is the variant-independent part of Config().
func (b *base) baseConfig() map[string]interface{} {
	return map[string]interface{}{
		"identity":   b.identity,
		"kind":       b.kind,
		"persona":    b.persona,
		"advisory":   b.advisory,
		"base_limit": b.baseLimit,
	}
}

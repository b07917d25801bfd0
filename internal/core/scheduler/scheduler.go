package scheduler

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agenthands/accord/internal/core/common"
	"github.com/agenthands/accord/internal/core/model"
	"github.com/agenthands/accord/internal/participant"
)

var (
	// ErrPolicyViolation means a job's metadata carried a denylisted key.
	// The key is never stripped; the job must be fixed upstream.
	ErrPolicyViolation = errors.New("job metadata violates key policy")

	// ErrStaleSnapshot means node weights changed between selection snapshots,
	// i.e. something mutated a node outside the scheduler's API.
	ErrStaleSnapshot = errors.New("node weights mutated outside scheduler during cycle")
)

// Metadata keys whose lowercase form contains any of these substrings are
// rejected at the cycle boundary.
var metadataDenylist = []string{"reward", "utility", "score", "bias", "emotion", "trust"}

const (
	decayFactor    = 0.9
	trustFloor     = -5.0
	trustCeiling   = 5.0
	summaryEntries = 12

	advisoryVoteWeight = 0.2
	fullVoteWeight     = 0.4
)

// Scheduler owns the node registry, the participant registry, per-job
// transcripts, and the review protocol. One exclusive lock guards all of it;
// Cycle, UpsertNode, RemoveNode and RegisterParticipant are linearizable with
// respect to one another. The lock cannot protect against callers writing
// through retained NodeState pointers, which is exactly what the before/after
// weight snapshot inside Cycle detects.
type Scheduler struct {
	mu           sync.Mutex
	nodes        map[string]*model.NodeState
	participants map[string]participant.ReviewParticipant
	transcripts  *transcriptStore
	lastSnapshot *model.CycleSnapshot
	lastDecayAt  time.Time

	// Now is injectable for tests.
	Now func() time.Time

	// afterSelect runs between node selection and the after-snapshot.
	// Test hook only.
	afterSelect func()
}

// New creates a scheduler. transcriptDir is where durable per-job logs go;
// empty disables durability.
func New(transcriptDir string) *Scheduler {
	return &Scheduler{
		nodes:        map[string]*model.NodeState{},
		participants: map[string]participant.ReviewParticipant{},
		transcripts:  newTranscriptStore(transcriptDir),
		Now:          time.Now,
	}
}

// RegisterParticipant upserts a participant by identity. Unavailable
// participants (missing credential) are silently skipped.
func (s *Scheduler) RegisterParticipant(p participant.ReviewParticipant) {
	if !p.Available() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.Identity()] = p
}

// UpsertNode creates or updates a node. Only the supplied update fields
// change; LastUpdated always refreshes. Returns a copy of the result.
func (s *Scheduler) UpsertNode(id string, upd model.NodeUpdate) model.NodeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		n = &model.NodeState{ID: id}
		s.nodes[id] = n
	}

	if upd.Capabilities != nil {
		n.Capabilities = append([]string(nil), upd.Capabilities...)
	}
	if upd.Trust != nil {
		n.Trust = *upd.Trust
	}
	if upd.Load != nil {
		n.Load = *upd.Load
	}
	if upd.AffectTelemetry != nil {
		n.AffectTelemetry = copyFloatMap(upd.AffectTelemetry)
	}
	if upd.DreamState != nil {
		n.DreamState = copyAnyMap(upd.DreamState)
	}
	if upd.Attributes != nil {
		n.Attributes = copyAnyMap(upd.Attributes)
	}
	if upd.AdvisoryOnly != nil {
		n.AdvisoryOnly = *upd.AdvisoryOnly
	}
	n.LastUpdated = s.Now()

	return *n
}

func (s *Scheduler) RemoveNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
}

// Cycle is the scheduler's single state-mutating entry point: apply trust
// decay once, then route and review each job in order. Not transactional
// across the batch; a failure leaves earlier jobs' effects committed and the
// rest unprocessed.
func (s *Scheduler) Cycle(jobs []model.Job) (*model.CycleSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Uniform decay, exactly once per call, even for an empty batch.
	for _, n := range s.nodes {
		n.Trust *= decayFactor
	}
	s.lastDecayAt = s.Now()

	order := s.orderedParticipants()

	snap := &model.CycleSnapshot{
		Assignments:      map[string]string{},
		TrustVector:      map[string]float64{},
		AffectMatrix:     map[string]map[string]float64{},
		SessionSummaries: map[string][]model.Exchange{},
	}

	for _, job := range jobs {
		if err := checkMetadataPolicy(job.Metadata); err != nil {
			return nil, fmt.Errorf("job %s: %w", job.ID, err)
		}

		before := s.weightSnapshot()
		target := s.selectNode(job.Requirements)
		if s.afterSelect != nil {
			s.afterSelect()
		}
		if !weightsEqual(before, s.weightSnapshot()) {
			return nil, fmt.Errorf("job %s: %w", job.ID, ErrStaleSnapshot)
		}

		trustContext := 1.0
		if target != nil {
			trustContext = target.Trust
		}
		prompt := job.ResolvePrompt()

		var responses, critiques []string
		for _, p := range order {
			ex, err := p.Ask(prompt, trustContext)
			if err != nil {
				return nil, fmt.Errorf("job %s: ask by %s: %w", job.ID, p.Identity(), err)
			}
			if err := s.transcripts.append(job.ID, ex); err != nil {
				return nil, err
			}
			responses = append(responses, ex.Content)
		}

		statement := ""
		if len(responses) > 0 {
			statement = responses[len(responses)-1]
		}
		for _, p := range order {
			ex, err := p.Critique(statement, trustContext)
			if err != nil {
				return nil, fmt.Errorf("job %s: critique by %s: %w", job.ID, p.Identity(), err)
			}
			if err := s.transcripts.append(job.ID, ex); err != nil {
				return nil, err
			}
			critiques = append(critiques, ex.Content)
		}

		votePayload := map[string]interface{}{
			"job_id":    job.ID,
			"responses": responses,
			"critiques": critiques,
		}

		trustShift := 0.0
		for _, p := range order {
			ex, err := p.Vote(votePayload, trustContext)
			if err != nil {
				return nil, fmt.Errorf("job %s: vote by %s: %w", job.ID, p.Identity(), err)
			}
			if err := s.transcripts.append(job.ID, ex); err != nil {
				return nil, err
			}

			decision, _ := ex.Metadata["decision"].(string)
			confidence, _ := ex.Metadata["confidence"].(float64)
			weight := fullVoteWeight
			if p.Advisory() {
				weight = advisoryVoteWeight
			}
			switch decision {
			case model.DecisionApprove:
				trustShift += weight * confidence
			case model.DecisionRevise, "reject", "fail":
				trustShift -= weight * confidence
			}
			// defer: no effect
		}

		targetID := ""
		if target != nil {
			target.Trust = common.Clamp(target.Trust+trustShift, trustFloor, trustCeiling)
			targetID = target.ID
		}

		snap.Assignments[job.ID] = targetID
		snap.SessionSummaries[job.ID] = s.transcripts.tail(job.ID, summaryEntries)

		reqs := append([]string(nil), job.Requirements...)
		sort.Strings(reqs)
		snap.Jobs = append(snap.Jobs, model.JobView{
			ID:           job.ID,
			Priority:     job.Priority,
			Requirements: reqs,
			Metadata:     copyAnyMap(job.Metadata),
			PromptHash:   common.HashHex(job.ResolvePrompt()),
		})
	}

	snap.Timestamp = s.Now()
	for id, n := range s.nodes {
		snap.TrustVector[id] = n.Trust
		snap.AffectMatrix[id] = copyFloatMap(n.AffectTelemetry)
	}

	s.lastSnapshot = snap
	return snap, nil
}

// selectNode filters eligible nodes and picks the best trust-load score.
// Ties go to the longest-idle node (smallest LastUpdated), then smallest id
// so selection stays fully deterministic.
func (s *Scheduler) selectNode(requirements []string) *model.NodeState {
	var best *model.NodeState
	var bestScore float64

	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := s.nodes[id]
		if !n.HasCapabilities(requirements) {
			continue
		}
		score := n.Trust - n.Load
		switch {
		case best == nil:
			best, bestScore = n, score
		case score > bestScore:
			best, bestScore = n, score
		case score == bestScore && n.LastUpdated.Before(best.LastUpdated):
			best, bestScore = n, score
		}
	}
	return best
}

func (s *Scheduler) weightSnapshot() map[string][2]float64 {
	snap := make(map[string][2]float64, len(s.nodes))
	for id, n := range s.nodes {
		snap[id] = [2]float64{n.Trust, n.Load}
	}
	return snap
}

func weightsEqual(a, b map[string][2]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for id, w := range a {
		if b[id] != w {
			return false
		}
	}
	return true
}

func checkMetadataPolicy(metadata map[string]interface{}) error {
	for key := range metadata {
		lower := strings.ToLower(key)
		for _, banned := range metadataDenylist {
			if strings.Contains(lower, banned) {
				return fmt.Errorf("%w: key %q", ErrPolicyViolation, key)
			}
		}
	}
	return nil
}

func (s *Scheduler) orderedParticipants() []participant.ReviewParticipant {
	ids := make([]string, 0, len(s.participants))
	for id := range s.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]participant.ReviewParticipant, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.participants[id])
	}
	return out
}

// Status is a read-only overview for dashboards.
func (s *Scheduler) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.participants))
	for id := range s.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	status := map[string]interface{}{
		"nodes":           len(s.nodes),
		"participants":    ids,
		"active_sessions": s.transcripts.activeCount(),
	}
	if s.lastSnapshot != nil {
		status["last_cycle"] = s.lastSnapshot.Timestamp
	}
	if !s.lastDecayAt.IsZero() {
		status["last_decay"] = s.lastDecayAt
	}
	return status
}

// Nodes returns copies of every node, sorted by id.
func (s *Scheduler) Nodes() []model.NodeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.NodeState, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Participants returns each registered participant's config, credential
// fingerprints included, credentials never.
func (s *Scheduler) Participants() []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(s.participants))
	for _, p := range s.orderedParticipants() {
		out = append(out, p.Config())
	}
	return out
}

// Sessions returns the tail of recorded exchanges. With a job id it returns
// just that job's entries; otherwise every job's.
func (s *Scheduler) Sessions(jobID string, limit int) map[string][]model.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = summaryEntries
	}

	out := map[string][]model.Exchange{}
	if jobID != "" {
		if tail := s.transcripts.tail(jobID, limit); tail != nil {
			out[jobID] = tail
		}
		return out
	}
	for _, id := range s.transcripts.jobIDs() {
		out[id] = s.transcripts.tail(id, limit)
	}
	return out
}

// Metrics summarizes mesh health: node count, a trust histogram bucketed by
// rounded trust, active session count, and an averaged affect-telemetry
// consensus across nodes.
func (s *Scheduler) Metrics() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	histogram := map[string]int{}
	affectSums := map[string]float64{}
	affectCounts := map[string]int{}
	for _, n := range s.nodes {
		bucket := strconv.FormatFloat(roundTrust(n.Trust), 'f', -1, 64)
		histogram[bucket]++
		for k, v := range n.AffectTelemetry {
			affectSums[k] += v
			affectCounts[k]++
		}
	}

	consensus := map[string]float64{}
	for k, sum := range affectSums {
		consensus[k] = sum / float64(affectCounts[k])
	}

	metrics := map[string]interface{}{
		"nodes":            len(s.nodes),
		"trust_histogram":  histogram,
		"active_sessions":  s.transcripts.activeCount(),
		"affect_consensus": consensus,
	}
	if !s.lastDecayAt.IsZero() {
		metrics["last_decay"] = s.lastDecayAt
	}
	return metrics
}

// LastSnapshot returns the most recent cycle snapshot, or nil before the
// first successful cycle.
func (s *Scheduler) LastSnapshot() *model.CycleSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSnapshot
}

func roundTrust(v float64) float64 {
	return math.Round(v)
}

func copyFloatMap(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyAnyMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

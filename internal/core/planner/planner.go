package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/accord/internal/core/common"
	"github.com/agenthands/accord/internal/core/model"
	"github.com/agenthands/accord/internal/core/scheduler"
)

// ErrPlanNotFound is returned by MarkCompleted for an unknown plan id.
var ErrPlanNotFound = errors.New("plan not found")

// Goals planned when both the queue and telemetry come up empty and fallback
// is enabled.
var fallbackGoals = []string{
	"Review mesh health and rebalance node load",
	"Audit dormant nodes for reactivation",
}

const (
	planRequirement = "sentient_script"
	defaultBatch    = 4
)

type queuedGoal struct {
	goal     string
	priority int
}

// Planner owns the goal backlog and the plan registry. It is meant to be
// driven by a single control loop; the mutex here only keeps the HTTP
// read surface safe alongside that loop.
type Planner struct {
	mu        sync.Mutex
	scheduler *scheduler.Scheduler
	telemetry TelemetrySource

	goalQueue []queuedGoal
	plans     map[string]*model.Plan
	enabled   bool
	fallback  bool

	lastCycleAt time.Time
	lastBias    map[string]float64

	// Injectable for tests.
	IDGenerator func() string
	Now         func() time.Time
}

func New(s *scheduler.Scheduler, telemetry TelemetrySource, fallback bool) *Planner {
	return &Planner{
		scheduler:   s,
		telemetry:   telemetry,
		plans:       map[string]*model.Plan{},
		fallback:    fallback,
		IDGenerator: uuid.NewString,
		Now:         time.Now,
	}
}

func (p *Planner) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = true
}

func (p *Planner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
}

// SubmitGoal queues a goal and eagerly creates a pending plan for it.
// Note the planning round matches plans by goal text, not by this id, so a
// goal that first arrives through telemetry gets a second plan under a
// different id scheme. Only one of the two is ever scheduled.
func (p *Planner) SubmitGoal(goal string, priority int) model.Plan {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.goalQueue = append(p.goalQueue, queuedGoal{goal: goal, priority: priority})

	plan := &model.Plan{
		ID:        p.IDGenerator(),
		Goal:      goal,
		CreatedAt: p.Now(),
		Status:    model.StatusPending,
		Priority:  priority,
	}
	p.plans[plan.ID] = plan
	return *plan
}

// PlanningRound selects up to limit goals, turns them into jobs, runs one
// scheduler cycle, and folds the assignments back into plan state. The cycle
// runs even with zero jobs so trust decay is never skipped.
func (p *Planner) PlanningRound(limit int, force bool) ([]model.Plan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled && !force {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultBatch
	}

	telemetry := p.telemetry.Snapshot()
	nodes := telemetryInt(telemetry, "nodes")
	activeSessions := telemetryInt(telemetry, "activeSessions")
	bias := telemetryFloats(telemetry, "affectConsensus")

	selected := p.selectGoals(telemetry, limit)

	var jobs []model.Job
	var roundPlans []*model.Plan
	seen := map[string]bool{}
	for _, qg := range selected {
		plan := p.findOrCreatePlan(qg)
		// Duplicate goal texts resolve to the same plan; one job per plan
		// keeps job ids unique within the batch.
		if seen[plan.ID] {
			continue
		}
		seen[plan.ID] = true
		plan.BiasVector = bias

		meshContext, err := common.CanonicalJSON(map[string]interface{}{
			"trustHistogram": telemetry["trustHistogram"],
			"activeSessions": telemetry["activeSessions"],
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode mesh context: %w", err)
		}
		prompt := fmt.Sprintf("Goal: %s\nMesh metrics: %s", plan.Goal, meshContext)

		job := model.Job{
			ID: plan.ID,
			Payload: map[string]interface{}{
				"goal":       plan.Goal,
				"telemetry":  telemetry,
				"biasVector": bias,
			},
			Prompt:       prompt,
			Priority:     plan.Priority,
			Requirements: []string{planRequirement},
			Metadata:     map[string]interface{}{"origin": "autonomy"},
		}
		plan.JobSpec = map[string]interface{}{
			"prompt":       prompt,
			"requirements": job.Requirements,
		}

		jobs = append(jobs, job)
		roundPlans = append(roundPlans, plan)
	}

	if jobs == nil {
		jobs = []model.Job{}
	}
	snap, err := p.scheduler.Cycle(jobs)
	if err != nil {
		return nil, fmt.Errorf("planning cycle failed: %w", err)
	}

	out := make([]model.Plan, 0, len(roundPlans))
	for _, plan := range roundPlans {
		plan.AssignedNode = snap.Assignments[plan.ID]
		if plan.AssignedNode != "" {
			plan.Status = model.StatusScheduled
		} else {
			plan.Status = model.StatusQueued
		}
		// Confidence comes from the pre-cycle telemetry snapshot.
		confidence := 0.45
		if nodes+activeSessions > 0 {
			confidence += float64(nodes) / float64(nodes+activeSessions)
		}
		if plan.AssignedNode != "" {
			confidence += 0.1
		}
		plan.Confidence = common.Clamp(confidence, 0.3, 0.99)
		out = append(out, *plan)
	}

	p.dropFromQueue(selected)
	p.lastCycleAt = p.Now()
	p.lastBias = bias

	return out, nil
}

// selectGoals prefers the submitted backlog, then telemetry's open goals,
// then the fixed fallback goals when enabled.
func (p *Planner) selectGoals(telemetry map[string]interface{}, limit int) []queuedGoal {
	if len(p.goalQueue) > 0 {
		n := limit
		if n > len(p.goalQueue) {
			n = len(p.goalQueue)
		}
		return append([]queuedGoal(nil), p.goalQueue[:n]...)
	}

	if open := telemetryStrings(telemetry, "openGoals"); len(open) > 0 {
		if len(open) > limit {
			open = open[:limit]
		}
		out := make([]queuedGoal, 0, len(open))
		for _, g := range open {
			out = append(out, queuedGoal{goal: g})
		}
		return out
	}

	if p.fallback {
		out := make([]queuedGoal, 0, len(fallbackGoals))
		for _, g := range fallbackGoals {
			out = append(out, queuedGoal{goal: g})
			if len(out) >= limit {
				break
			}
		}
		return out
	}
	return nil
}

// findOrCreatePlan matches by goal text, earliest createdAt first. Plans
// created here use a content-derived id, distinct from SubmitGoal's UUIDs.
func (p *Planner) findOrCreatePlan(qg queuedGoal) *model.Plan {
	var match *model.Plan
	for _, plan := range p.plans {
		if plan.Goal != qg.goal {
			continue
		}
		if match == nil || plan.CreatedAt.Before(match.CreatedAt) {
			match = plan
		}
	}
	if match != nil {
		return match
	}

	plan := &model.Plan{
		ID:        "plan-" + common.HashHex(qg.goal)[:12],
		Goal:      qg.goal,
		CreatedAt: p.Now(),
		Status:    model.StatusPending,
		Priority:  qg.priority,
	}
	p.plans[plan.ID] = plan
	return plan
}

func (p *Planner) dropFromQueue(selected []queuedGoal) {
	taken := make(map[string]int)
	for _, qg := range selected {
		taken[qg.goal]++
	}
	remaining := p.goalQueue[:0]
	for _, qg := range p.goalQueue {
		if taken[qg.goal] > 0 {
			taken[qg.goal]--
			continue
		}
		remaining = append(remaining, qg)
	}
	p.goalQueue = remaining
}

// MarkCompleted moves a plan to its terminal status. Idempotent.
func (p *Planner) MarkCompleted(planID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	plan, ok := p.plans[planID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	plan.Status = model.StatusCompleted
	return nil
}

// Status is a read-only overview: plans newest first plus a status histogram.
// Unknown statuses bucket into pending.
func (p *Planner) Status() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	plans := make([]model.Plan, 0, len(p.plans))
	for _, plan := range p.plans {
		plans = append(plans, *plan)
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].CreatedAt.After(plans[j].CreatedAt)
	})

	counts := map[string]int{}
	for _, plan := range plans {
		switch plan.Status {
		case model.StatusQueued, model.StatusScheduled, model.StatusCompleted:
			counts[plan.Status]++
		default:
			counts[model.StatusPending]++
		}
	}

	status := map[string]interface{}{
		"enabled":       p.enabled,
		"plans":         plans,
		"status_counts": counts,
		"queued_goals":  len(p.goalQueue),
	}
	if !p.lastCycleAt.IsZero() {
		status["last_cycle_at"] = p.lastCycleAt
	}
	if p.lastBias != nil {
		status["last_bias_vector"] = p.lastBias
	}
	return status
}

// Run drives planning rounds until the context is cancelled. Intended as the
// single control loop calling into the scheduler.
func (p *Planner) Run(ctx context.Context, interval time.Duration, limit int) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			if _, err := p.PlanningRound(limit, false); err != nil {
				log.Printf("[planner] round failed: %v", err)
			}
		}
	}
}

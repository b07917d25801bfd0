//go:build integration

package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/accord/internal/config"
	"github.com/agenthands/accord/internal/core/model"
	"github.com/agenthands/accord/internal/core/planner"
	"github.com/agenthands/accord/internal/core/scheduler"
	"github.com/agenthands/accord/internal/participant"
)

// End-to-end control loop: config -> participants -> scheduler -> planner,
// several rounds, durable transcripts on disk. No external services needed;
// the shipped participants are deterministic.
func TestFullControlLoop(t *testing.T) {
	dir := t.TempDir()

	sched := scheduler.New(dir)
	for _, pc := range config.Default().Participants {
		p, err := participant.New(pc)
		require.NoError(t, err)
		sched.RegisterParticipant(p) // credentialed seats drop out silently
	}
	require.Len(t, sched.Participants(), 1)

	trust := func(v float64) *float64 { return &v }
	sched.UpsertNode("node-alpha", model.NodeUpdate{
		Capabilities:    []string{"sentient_script"},
		Trust:           trust(1.0),
		Load:            trust(0.2),
		AffectTelemetry: map[string]float64{"calm": 0.7},
	})
	sched.UpsertNode("node-beta", model.NodeUpdate{
		Capabilities: []string{"telemetry"},
		Trust:        trust(2.0),
	})

	pl := planner.New(sched, &planner.SchedulerTelemetry{Scheduler: sched}, false)
	pl.Start()

	first := pl.SubmitGoal("stabilize archive replication", 3)
	pl.SubmitGoal("summarize drift reports", 1)

	var scheduledID string
	for round := 0; round < 3; round++ {
		plans, err := pl.PlanningRound(1, false)
		require.NoError(t, err)
		for _, plan := range plans {
			if plan.Goal == first.Goal && plan.Status == model.StatusScheduled {
				scheduledID = plan.ID
				assert.Equal(t, "node-alpha", plan.AssignedNode)
			}
		}
		time.Sleep(time.Millisecond)
	}
	require.NotEmpty(t, scheduledID)
	assert.Equal(t, first.ID, scheduledID)

	// Trust moved through decay plus vote feedback but stayed bounded.
	for _, n := range sched.Nodes() {
		assert.GreaterOrEqual(t, n.Trust, -5.0)
		assert.LessOrEqual(t, n.Trust, 5.0)
	}

	// Durable logs exist, one line per exchange, in commit order.
	data, err := os.ReadFile(filepath.Join(dir, scheduledID+".log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3) // one participant, three phases

	require.NoError(t, pl.MarkCompleted(scheduledID))
	counts := pl.Status()["status_counts"].(map[string]int)
	assert.Equal(t, 1, counts[model.StatusCompleted])
}

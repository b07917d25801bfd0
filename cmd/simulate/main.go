// Offline smoke run: builds the full stack with no credentials, registers a
// few nodes, submits goals, and forces planning rounds. Useful for eyeballing
// scheduler behavior without standing up the HTTP server.
package main

import (
	"fmt"
	"log"

	"github.com/agenthands/accord/internal/config"
	"github.com/agenthands/accord/internal/core/model"
	"github.com/agenthands/accord/internal/core/planner"
	"github.com/agenthands/accord/internal/core/scheduler"
	"github.com/agenthands/accord/internal/participant"
)

func main() {
	sched := scheduler.New("data/transcripts")

	for _, pc := range config.Default().Participants {
		p, err := participant.New(pc)
		if err != nil {
			log.Fatalf("participant %s: %v", pc.Name, err)
		}
		sched.RegisterParticipant(p) // credentialed seats drop out here
	}

	trust := func(v float64) *float64 { return &v }
	sched.UpsertNode("node-alpha", model.NodeUpdate{
		Capabilities: []string{"sentient_script", "archive"},
		Trust:        trust(1.2),
		Load:         trust(0.3),
	})
	sched.UpsertNode("node-beta", model.NodeUpdate{
		Capabilities: []string{"sentient_script"},
		Trust:        trust(0.8),
		Load:         trust(0.1),
	})
	sched.UpsertNode("node-gamma", model.NodeUpdate{
		Capabilities: []string{"telemetry"},
		Trust:        trust(2.0),
		Load:         trust(0.0),
	})

	pl := planner.New(sched, &planner.SchedulerTelemetry{Scheduler: sched}, true)

	pl.SubmitGoal("Summarize overnight drift reports", 2)
	pl.SubmitGoal("Rebalance archive replication", 1)

	for round := 1; round <= 3; round++ {
		plans, err := pl.PlanningRound(4, true)
		if err != nil {
			log.Fatalf("round %d failed: %v", round, err)
		}
		fmt.Printf("--- round %d ---\n", round)
		for _, plan := range plans {
			fmt.Printf("plan %s [%s] node=%q confidence=%.2f\n",
				plan.ID, plan.Status, plan.AssignedNode, plan.Confidence)
		}
	}

	fmt.Println("--- metrics ---")
	for k, v := range sched.Metrics() {
		fmt.Printf("%s: %v\n", k, v)
	}
}

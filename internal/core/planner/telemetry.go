package planner

import "github.com/agenthands/accord/internal/core/scheduler"

// TelemetrySource supplies the mesh-metrics map consumed by planning rounds:
// "nodes" (int), "trustHistogram", "activeSessions" (int), "affectConsensus",
// optionally "openGoals" ([]string). The planner consumes telemetry, it never
// produces it.
type TelemetrySource interface {
	Snapshot() map[string]interface{}
}

// SchedulerTelemetry adapts a scheduler's own metrics into the telemetry
// shape. This is the in-process default; a real deployment may swap in a
// feed from the wider mesh.
type SchedulerTelemetry struct {
	Scheduler *scheduler.Scheduler
}

func (t *SchedulerTelemetry) Snapshot() map[string]interface{} {
	m := t.Scheduler.Metrics()
	return map[string]interface{}{
		"nodes":           m["nodes"],
		"trustHistogram":  m["trust_histogram"],
		"activeSessions":  m["active_sessions"],
		"affectConsensus": m["affect_consensus"],
	}
}

// StaticTelemetry returns a fixed snapshot. Test helper.
type StaticTelemetry struct {
	Data map[string]interface{}
}

func (t *StaticTelemetry) Snapshot() map[string]interface{} {
	return t.Data
}

func telemetryInt(telemetry map[string]interface{}, key string) int {
	switch v := telemetry[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func telemetryStrings(telemetry map[string]interface{}, key string) []string {
	switch v := telemetry[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func telemetryFloats(telemetry map[string]interface{}, key string) map[string]float64 {
	switch v := telemetry[key].(type) {
	case map[string]float64:
		out := make(map[string]float64, len(v))
		for k, f := range v {
			out[k] = f
		}
		return out
	case map[string]interface{}:
		out := make(map[string]float64, len(v))
		for k, item := range v {
			if f, ok := item.(float64); ok {
				out[k] = f
			}
		}
		return out
	}
	return nil
}

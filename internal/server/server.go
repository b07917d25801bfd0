package server

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/accord/internal/config"
	"github.com/agenthands/accord/internal/core/model"
	"github.com/agenthands/accord/internal/core/planner"
	"github.com/agenthands/accord/internal/core/scheduler"
	"github.com/agenthands/accord/internal/participant"
)

type Server struct {
	Scheduler *scheduler.Scheduler
	Planner   *planner.Planner
}

// NewServer wires the whole process from config: participants, scheduler,
// planner. Env vars override credentials so keys stay out of the TOML file.
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	// Env overrides (simple override logic, keyed by participant kind)
	for i := range cfg.Participants {
		switch cfg.Participants[i].Kind {
		case "oracle":
			if key := os.Getenv("ORACLE_API_KEY"); key != "" {
				cfg.Participants[i].APIKey = key
			}
		case "auditor":
			if key := os.Getenv("AUDITOR_API_KEY"); key != "" {
				cfg.Participants[i].APIKey = key
			}
		}
	}
	if dir := os.Getenv("TRANSCRIPT_DIR"); dir != "" {
		cfg.Scheduler.TranscriptDir = dir
	}

	sched := scheduler.New(cfg.Scheduler.TranscriptDir)
	for _, pc := range cfg.Participants {
		p, err := participant.New(pc)
		if err != nil {
			return nil, fmt.Errorf("failed to build participant %s: %w", pc.Name, err)
		}
		if !p.Available() {
			log.Printf("Participant %s skipped: no credential configured", p.Identity())
			continue
		}
		sched.RegisterParticipant(p)
	}

	pl := planner.New(sched, &planner.SchedulerTelemetry{Scheduler: sched}, cfg.Planner.FallbackGoals)

	return &Server{Scheduler: sched, Planner: pl}, nil
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/goals", s.SubmitGoal)
	r.POST("/planner/rounds", s.RunPlanningRound)
	r.POST("/planner/start", s.StartPlanner)
	r.POST("/planner/stop", s.StopPlanner)
	r.GET("/planner/status", s.PlannerStatus)
	r.POST("/plans/:id/complete", s.CompletePlan)

	r.POST("/nodes", s.UpsertNode)
	r.DELETE("/nodes/:id", s.RemoveNode)
	r.GET("/nodes", s.ListNodes)

	r.GET("/scheduler/status", s.SchedulerStatus)
	r.GET("/scheduler/metrics", s.SchedulerMetrics)
	r.GET("/scheduler/participants", s.ListParticipants)
	r.GET("/sessions", s.ListSessions)

	return r
}

type SubmitGoalRequest struct {
	Goal     string `json:"goal" binding:"required"`
	Priority int    `json:"priority"`
}

func (s *Server) SubmitGoal(c *gin.Context) {
	var req SubmitGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	plan := s.Planner.SubmitGoal(req.Goal, req.Priority)
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

type PlanningRoundRequest struct {
	Limit int  `json:"limit"`
	Force bool `json:"force"`
}

func (s *Server) RunPlanningRound(c *gin.Context) {
	var req PlanningRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	plans, err := s.Planner.PlanningRound(req.Limit, req.Force)
	if err != nil {
		log.Printf("Planning round failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (s *Server) StartPlanner(c *gin.Context) {
	s.Planner.Start()
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (s *Server) StopPlanner(c *gin.Context) {
	s.Planner.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) PlannerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Planner.Status())
}

func (s *Server) CompletePlan(c *gin.Context) {
	if err := s.Planner.MarkCompleted(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

type UpsertNodeRequest struct {
	ID              string                 `json:"id" binding:"required"`
	Capabilities    []string               `json:"capabilities"`
	Trust           *float64               `json:"trust"`
	Load            *float64               `json:"load"`
	AffectTelemetry map[string]float64     `json:"affect_telemetry"`
	DreamState      map[string]interface{} `json:"dream_state"`
	Attributes      map[string]interface{} `json:"attributes"`
	AdvisoryOnly    *bool                  `json:"advisory_only"`
}

func (s *Server) UpsertNode(c *gin.Context) {
	var req UpsertNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	node := s.Scheduler.UpsertNode(req.ID, model.NodeUpdate{
		Capabilities:    req.Capabilities,
		Trust:           req.Trust,
		Load:            req.Load,
		AffectTelemetry: req.AffectTelemetry,
		DreamState:      req.DreamState,
		Attributes:      req.Attributes,
		AdvisoryOnly:    req.AdvisoryOnly,
	})
	c.JSON(http.StatusOK, gin.H{"node": node})
}

func (s *Server) RemoveNode(c *gin.Context) {
	s.Scheduler.RemoveNode(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (s *Server) ListNodes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": s.Scheduler.Nodes()})
}

func (s *Server) SchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Scheduler.Status())
}

func (s *Server) SchedulerMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Scheduler.Metrics())
}

func (s *Server) ListParticipants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"participants": s.Scheduler.Participants()})
}

func (s *Server) ListSessions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": s.Scheduler.Sessions(c.Query("job"), limit)})
}

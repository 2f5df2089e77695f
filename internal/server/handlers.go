package server

// #region imports
import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danielpatrickdp/opsagent/internal/auth"
	"github.com/danielpatrickdp/opsagent/internal/orchestrator"
	"github.com/danielpatrickdp/opsagent/internal/store"
	"github.com/danielpatrickdp/opsagent/internal/voice"
)

// #endregion imports

// #region errors

func fail(c *gin.Context, err error) {
	var aerr *orchestrator.AuthorizationError
	var verr *orchestrator.ValidationError
	switch {
	case errors.As(err, &aerr):
		c.JSON(http.StatusForbidden, gin.H{"error": aerr.Error(), "required_level": aerr.Required})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// #endregion errors

// #region auth-handlers

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

func (s *Server) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleDev
	}
	if !auth.KnownRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role " + req.Role})
		return
	}
	if _, err := s.store.GetUser(req.Username); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.store.UpsertUser(store.User{
		Name:           req.Username,
		Role:           req.Role,
		PasswordHash:   hash,
		FinalAuthority: auth.FinalAuthority(req.Role),
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		fail(c, err)
		return
	}
	token, err := auth.GenerateJWT(req.Username, req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "username": req.Username, "role": req.Role})
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := s.store.GetUser(req.Username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := auth.GenerateJWT(user.Name, user.Role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "username": user.Name, "role": user.Role})
}

// #endregion auth-handlers

// #region incident-handlers

func (s *Server) listIncidents(c *gin.Context) {
	status := store.Status(c.Query("status"))
	limit := intQuery(c, "limit", 50)
	incidents, err := s.store.ListIncidents(status, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": viewIncidents(incidents)})
}

func (s *Server) getIncident(c *gin.Context) {
	inc, err := s.store.GetIncident(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewIncident(inc))
}

type actionRequest struct {
	Action  string `json:"action" binding:"required"`
	Comment string `json:"comment"`
}

func (s *Server) approve(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, _ := auth.Identity(c)
	inc, err := s.orch.SubmitAction(c.Request.Context(), c.Param("id"), user, store.Action(req.Action), req.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewIncident(inc))
}

func (s *Server) listApprovals(c *gin.Context) {
	recs, err := s.store.ListApprovals(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approvals": viewApprovals(recs)})
}

type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *Server) addComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := s.store.GetIncident(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	user, _ := auth.Identity(c)
	comment := store.Comment{
		IncidentID: c.Param("id"),
		UserName:   user,
		Content:    req.Content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.AddComment(&comment); err != nil {
		fail(c, err)
		return
	}
	view := viewComments([]store.Comment{comment})[0]
	s.hub.Broadcast("comment", view)
	c.JSON(http.StatusOK, view)
}

func (s *Server) listComments(c *gin.Context) {
	comments, err := s.store.ListComments(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": viewComments(comments)})
}

// #endregion incident-handlers

// #region record-handlers

func (s *Server) listActivity(c *gin.Context) {
	entries, err := s.store.ListActivity(c.Query("incident_id"), intQuery(c, "limit", 100))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": viewActivity(entries)})
}

func (s *Server) listLearning(c *gin.Context) {
	recs, err := s.store.ListLearning(intQuery(c, "limit", 50))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"learning": viewLearning(recs)})
}

// #endregion record-handlers

// #region agent-handlers

func (s *Server) agentStatus(c *gin.Context) {
	stats, err := s.store.GetStats()
	if err != nil {
		fail(c, err)
		return
	}
	resp := gin.H{
		"enabled": s.orch.Enabled(),
		"running": s.orch.Running(),
		"stats": gin.H{
			"incidents_total":    stats.IncidentsTotal,
			"incidents_open":     stats.IncidentsOpen,
			"incidents_resolved": stats.IncidentsResolved,
			"awaiting_approval":  stats.AwaitingApproval,
			"auto_resolved":      stats.AutoResolved,
			"learning_records":   stats.LearningRecords,
			"confidence_avg":     stats.ConfidenceAvg,
		},
	}
	if s.gate != nil {
		resp["safety_gate"] = s.gate.Stats()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) agentStart(c *gin.Context) {
	if err := s.orch.Start(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (s *Server) agentStop(c *gin.Context) {
	s.orch.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false})
}

type injectRequest struct {
	FaultType string `json:"fault_type" binding:"required"`
}

func (s *Server) inject(c *gin.Context) {
	var req injectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.orch.Inject(c.Request.Context(), req.FaultType)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) health(c *gin.Context) {
	h := s.target.HealthCheck(c.Request.Context())
	c.JSON(http.StatusOK, h)
}

func (s *Server) voiceSummary(c *gin.Context) {
	stats, err := s.store.GetStats()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"script": voice.SummaryScript(stats)})
}

// #endregion agent-handlers

// #region helpers

func intQuery(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// #endregion helpers

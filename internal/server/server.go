// Package server exposes the orchestrator over HTTP and websockets.
package server

// #region imports
import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/danielpatrickdp/opsagent/internal/auth"
	"github.com/danielpatrickdp/opsagent/internal/hub"
	"github.com/danielpatrickdp/opsagent/internal/orchestrator"
	"github.com/danielpatrickdp/opsagent/internal/safety"
	"github.com/danielpatrickdp/opsagent/internal/store"
)

// #endregion imports

// #region server

type Server struct {
	store  *store.Store
	orch   *orchestrator.Orchestrator
	hub    *hub.Hub
	target orchestrator.Target
	gate   *safety.Checker
}

func New(st *store.Store, orch *orchestrator.Orchestrator, h *hub.Hub, tgt orchestrator.Target, gate *safety.Checker) *Server {
	return &Server{store: st, orch: orch, hub: h, target: tgt, gate: gate}
}

// #endregion server

// #region router

func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "X-Requested-With", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.POST("/register", s.register)
	r.POST("/login", s.login)
	r.GET("/ws/:user", s.websocket)

	protected := r.Group("/api")
	protected.Use(auth.Middleware())
	{
		protected.GET("/incidents", s.listIncidents)
		protected.GET("/incidents/:id", s.getIncident)
		protected.POST("/incidents/:id/approve", s.approve)
		protected.GET("/incidents/:id/approvals", s.listApprovals)
		protected.POST("/incidents/:id/comments", s.addComment)
		protected.GET("/incidents/:id/comments", s.listComments)
		protected.GET("/activity", s.listActivity)
		protected.GET("/learning", s.listLearning)
		protected.GET("/agent/status", s.agentStatus)
		protected.POST("/agent/start", s.agentStart)
		protected.POST("/agent/stop", s.agentStop)
		protected.POST("/inject", s.inject)
		protected.GET("/health", s.health)
		protected.GET("/voice/summary", s.voiceSummary)
	}
	return r
}

// #endregion router

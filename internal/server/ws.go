package server

// #region imports
import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/danielpatrickdp/opsagent/internal/auth"
	"github.com/danielpatrickdp/opsagent/internal/hub"
)

// #endregion imports

// #region upgrader

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// #endregion upgrader

// #region handler

// clientMessage is what connected clients may send upstream.
type clientMessage struct {
	Type       string `json:"type"`
	IncidentID string `json:"incident_id,omitempty"`
	Typing     bool   `json:"typing,omitempty"`
}

// websocket upgrades the connection, registers the user with the hub,
// and relays presence updates from the client until it disconnects.
// The token travels as a query parameter because browsers cannot set
// headers on websocket dials.
func (s *Server) websocket(c *gin.Context) {
	user := c.Param("user")
	claims, err := auth.ParseJWT(c.Query("token"))
	if err != nil || claims.Username != user {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade for %s: %v", user, err)
		return
	}
	sink := hub.NewWSSink(conn)
	s.hub.Register(user, sink)

	defer func() {
		s.hub.Unregister(user, sink)
		conn.Close()
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "viewing":
			s.hub.SetViewing(user, msg.IncidentID)
		case "typing":
			s.hub.Broadcast("typing", gin.H{
				"user":        user,
				"incident_id": msg.IncidentID,
				"typing":      msg.Typing,
			})
		}
	}
}

// #endregion handler

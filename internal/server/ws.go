package server

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vitaegraph/vitae/internal/core/broadcast"
)

const authDeadline = 10 * time.Second

type wsAuthMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// WebSocket upgrades the connection and waits for an authenticate
// message before subscribing the session to the user's deltas. The
// connection stays open until the client goes away; everything the
// client sends after authenticating is ignored.
func (s *Server) WebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	userID, err := s.awaitAuth(conn)
	if err != nil {
		s.logger.Debug("websocket closed before authenticating", zap.Error(err))
		return
	}

	// greet before subscribing: once the session is in the hub, only
	// the hub may write to the connection
	_ = conn.WriteJSON(broadcast.Message{
		Type:    broadcast.MessageSystemMessage,
		Payload: map[string]string{"text": "authenticated"},
	})

	hub := s.engine.Hub()
	hub.Subscribe(userID, conn)
	defer hub.Unsubscribe(userID, conn)

	// read loop keeps the connection alive and detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) awaitAuth(conn *websocket.Conn) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(authDeadline))
	defer conn.SetReadDeadline(time.Time{})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return "", err
		}

		var msg wsAuthMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == "authenticate" && msg.UserID != "" {
			return msg.UserID, nil
		}
	}
}

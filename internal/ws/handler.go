package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rulecard-service/internal/service/game"
	pkgAuth "rulecard-service/pkg/auth"
	appErr "rulecard-service/pkg/errors"
	"rulecard-service/pkg/logger"
	"rulecard-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	gameSvc *game.Service
}

func NewHandler(gameSvc *game.Service) *Handler {
	return &Handler{gameSvc: gameSvc}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Handler) HandleSessionWS(c *gin.Context) {
	sessionID := c.Param("id")

	token, err := getTokenFromRequest(c)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if _, err := pkgAuth.ParseSessionToken(token, sessionID); err != nil {
		response.FromError(c, fmt.Errorf("%w: invalid token", appErr.ErrUnauthorized))
		return
	}

	sess, err := h.gameSvc.Get(sessionID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New WebSocket connection", zap.String("sessionID", sessionID))

	client := newClient(conn, sess)
	client.run()
}

func getTokenFromRequest(c *gin.Context) (string, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token != "" {
		return token, nil
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
			if token != "" {
				return token, nil
			}
		}
	}
	return "", fmt.Errorf("%w: missing token", appErr.ErrUnauthorized)
}

type client struct {
	conn      *websocket.Conn
	sess      *game.Session
	subID     int64
	outbound  <-chan game.OutgoingMessage
	replies   chan game.OutgoingMessage
	done      chan struct{}
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, sess *game.Session) *client {
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	subID, outbound := sess.Subscribe()
	return &client{
		conn:      conn,
		sess:      sess,
		subID:     subID,
		outbound:  outbound,
		replies:   make(chan game.OutgoingMessage, 8),
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

type incomingMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.sess.Unsubscribe(c.subID)
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.String("sessionID", c.sess.ID()))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming incomingMessage
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.reply("error", gin.H{"message": "invalid payload"})
			continue
		}
		if incoming.Type == "" {
			continue
		}

		if err := c.handle(incoming); err != nil {
			c.reply("error", gin.H{"message": fmt.Sprintf("action failed: %v", err)})
		}
	}
}

// handle maps one client message onto the session interface.
func (c *client) handle(msg incomingMessage) error {
	switch msg.Type {
	case "select":
		var payload struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return fmt.Errorf("%w: %v", appErr.ErrInvalidCardIndex, err)
		}
		return c.sess.OnCardSelected(payload.Index)
	case "end_turn":
		return c.sess.OnEndTurnRequested()
	case "joker":
		var payload struct {
			Value int `json:"value"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return fmt.Errorf("%w: %v", appErr.ErrInvalidJokerValue, err)
		}
		return c.sess.OnJokerValueChosen(payload.Value)
	case "rejoin":
		c.reply("state", c.sess.Snapshot())
		return nil
	case "ping":
		c.reply("pong", gin.H{"message": "pong"})
		return nil
	default:
		return fmt.Errorf("unsupported action %q", msg.Type)
	}
}

func (c *client) reply(msgType string, data interface{}) {
	select {
	case c.replies <- game.OutgoingMessage{Type: msgType, Data: data}:
	default:
		logger.Log.Warn("ws reply dropped", zap.String("sessionID", c.sess.ID()), zap.String("type", msgType))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.String("sessionID", c.sess.ID()))
				return
			}
		case msg := <-c.replies:
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.String("sessionID", c.sess.ID()))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

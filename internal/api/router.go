package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"rulecard-service/internal/middleware"
	"rulecard-service/internal/service"
	"rulecard-service/internal/service/game"
	"rulecard-service/internal/ws"
	pkgAuth "rulecard-service/pkg/auth"
	appErr "rulecard-service/pkg/errors"
	"rulecard-service/pkg/logger"
	"rulecard-service/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Game)

	r.Use(middleware.CORS())

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/v1")
	{
		v1.POST("/sessions", handler.CreateSession)

		sessionGroup := v1.Group("/sessions/:id")
		sessionGroup.Use(middleware.SessionAuthRequired())
		{
			sessionGroup.GET("", handler.GetSession)
			sessionGroup.POST("/select", handler.SelectCard)
			sessionGroup.POST("/end-turn", handler.EndTurn)
			sessionGroup.POST("/joker", handler.ChooseJokerValue)
			sessionGroup.DELETE("", handler.CloseSession)
			sessionGroup.GET("/history", handler.History)
		}
	}

	r.GET("/ws/sessions/:id", wsHandler.HandleSessionWS)
}

type createSessionBody struct {
	Rules json.RawMessage `json:"rules"`
}

type selectBody struct {
	Index *int `json:"index" binding:"required"`
}

type jokerBody struct {
	Value int `json:"value"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var body createSessionBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	var params game.CreateParams
	if len(body.Rules) > 0 && string(body.Rules) != "null" {
		// Overrides are applied on top of the configured rule set.
		settings := h.services.Game.DefaultRules()
		if err := json.Unmarshal(body.Rules, &settings); err != nil {
			response.Error(c, http.StatusBadRequest, "invalid rules: "+err.Error())
			return
		}
		params.Settings = &settings
	}

	sess, err := h.services.Game.Create(c.Request.Context(), params)
	if errors.Is(err, appErr.ErrInvalidSettings) {
		response.FromError(c, err)
		return
	}
	if err != nil {
		logger.Log.Error("failed to create session", zap.Error(err))
		response.FromError(c, err)
		return
	}

	token, err := pkgAuth.GenerateSessionToken(sess.ID())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to issue token")
		return
	}

	response.Success(c, gin.H{
		"sessionId": sess.ID(),
		"token":     token,
		"state":     sess.Snapshot(),
	})
}

func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	response.Success(c, sess.Snapshot())
}

func (h *Handler) SelectCard(c *gin.Context) {
	var body selectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	if err := sess.OnCardSelected(*body.Index); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, sess.Snapshot())
}

func (h *Handler) EndTurn(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	if err := sess.OnEndTurnRequested(); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, sess.Snapshot())
}

func (h *Handler) ChooseJokerValue(c *gin.Context) {
	var body jokerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	if err := sess.OnJokerValueChosen(body.Value); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, sess.Snapshot())
}

func (h *Handler) CloseSession(c *gin.Context) {
	if err := h.services.Game.Close(c.Request.Context(), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{"status": "closed"}, "")
}

func (h *Handler) History(c *gin.Context) {
	turns, err := h.services.Game.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"turns": turns})
}

func (h *Handler) loadSession(c *gin.Context) (*game.Session, bool) {
	sess, err := h.services.Game.Get(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return nil, false
	}
	return sess, true
}

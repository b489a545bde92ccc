package relay

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"segugio/internal/tools"
)

const apiKeyHeader = "x-api-key"

// Envelope is the uniform response shape of every relay endpoint, success
// and error alike.
type Envelope struct {
	Status string       `json:"status"`
	Data   EnvelopeData `json:"data"`
}

type EnvelopeData struct {
	Message string `json:"message"`
	GroupID string `json:"groupId,omitempty"`
}

func okEnvelope(message, groupID string) Envelope {
	return Envelope{Status: "ok", Data: EnvelopeData{Message: message, GroupID: groupID}}
}

func errEnvelope(message string) Envelope {
	return Envelope{Status: "error", Data: EnvelopeData{Message: message}}
}

type createGroupRequest struct {
	UserAddress string `json:"userAddress"`
	BotAddress  string `json:"botAddress"`
}

type sendMessageRequest struct {
	GroupID     string `json:"groupId"`
	UserAddress string `json:"userAddress"`
	BotAddress  string `json:"botAddress"`
	Message     string `json:"message"`
}

type dispatchRequest struct {
	UserAddress string         `json:"userAddress"`
	Tool        string         `json:"tool"`
	Args        map[string]any `json:"args"`
}

// Config wires a relay server.
type Config struct {
	Service *Service
	APIKey  string

	// Dispatcher, when set, exposes POST /dispatch for the conversational
	// runtime to execute a validated tool call in-bridge.
	Dispatcher *tools.Dispatcher
	BotAddress string
}

// Server exposes the relay endpoints over gin.
type Server struct {
	service    *Service
	apiKey     string
	dispatcher *tools.Dispatcher
	botAddress string
	engine     *gin.Engine
}

func NewServer(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		service:    cfg.Service,
		apiKey:     cfg.APIKey,
		dispatcher: cfg.Dispatcher,
		botAddress: cfg.BotAddress,
		engine:     r,
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := r.Group("/", s.requireAPIKey)
	authed.POST("/create-group", s.handleCreateGroup)
	authed.POST("/send-message", s.handleSendMessage)
	if s.dispatcher != nil {
		authed.POST("/dispatch", s.handleDispatch)
	}

	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPServer wraps the engine in an http.Server with bounded timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// requireAPIKey rejects callers without the shared secret before any handler
// runs, so unauthorized requests cause no side effects.
func (s *Server) requireAPIKey(c *gin.Context) {
	if c.GetHeader(apiKeyHeader) != s.apiKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errEnvelope("unauthorized"))
		return
	}
	c.Next()
}

func (s *Server) handleCreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errEnvelope("invalid json body"))
		return
	}
	if req.UserAddress == "" || req.BotAddress == "" {
		c.JSON(http.StatusBadRequest, errEnvelope("userAddress and botAddress are required"))
		return
	}

	groupID, err := s.service.CreateGroup(c.Request.Context(), req.UserAddress, req.BotAddress)
	if err != nil {
		log.WithError(err).WithField("user", req.UserAddress).Error("group creation failed")
		c.JSON(http.StatusInternalServerError, errEnvelope("failed to create group"))
		return
	}

	c.JSON(http.StatusOK, okEnvelope("group created", groupID))
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errEnvelope("invalid json body"))
		return
	}
	if req.GroupID == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, errEnvelope("groupId and message are required"))
		return
	}

	sent, err := s.service.PushMessage(c.Request.Context(), req.GroupID, req.Message)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, errEnvelope("group not found"))
			return
		}
		log.WithError(err).WithFields(log.Fields{"group_id": req.GroupID, "sent": sent}).Error("message push failed")
		c.JSON(http.StatusInternalServerError, errEnvelope("failed to send message"))
		return
	}

	c.JSON(http.StatusOK, okEnvelope("message sent", req.GroupID))
}

func (s *Server) handleDispatch(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errEnvelope("invalid json body"))
		return
	}
	if req.UserAddress == "" || req.Tool == "" {
		c.JSON(http.StatusBadRequest, errEnvelope("userAddress and tool are required"))
		return
	}

	session := tools.Session{
		UserAddress: req.UserAddress,
		BotAddress:  s.botAddress,
		Channel:     s.service.SessionChannel(req.UserAddress, s.botAddress),
	}

	text, err := s.dispatcher.Execute(c.Request.Context(), session, req.Tool, req.Args)
	if err != nil {
		// The text is still the user-facing rendering; detail stays in logs.
		log.WithError(err).WithFields(log.Fields{"tool": req.Tool, "user": req.UserAddress}).Warn("dispatch failed")
		c.JSON(http.StatusOK, Envelope{Status: "error", Data: EnvelopeData{Message: text}})
		return
	}
	c.JSON(http.StatusOK, okEnvelope(text, ""))
}

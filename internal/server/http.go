package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hc-tcg/hc-tcg-server-go/internal/game"
	"go.uber.org/zap"
)

// Options configure the HTTP surface.
type Options struct {
	// AllowedOrigins limits browser origins for CORS and websockets. Empty
	// allows any origin.
	AllowedOrigins []string
}

// Server exposes the engine over HTTP and websockets.
type Server struct {
	engine   *game.Engine
	hub      *Hub
	logger   *zap.Logger
	router   *gin.Engine
	upgrader websocket.Upgrader
}

// New builds the router and subscribes the hub to engine notifications.
func New(engine *game.Engine, hub *Hub, logger *zap.Logger, opts Options) *Server {
	s := &Server{
		engine: engine,
		hub:    hub,
		logger: logger,
		router: gin.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}
	engine.SetNotificationHandler(hub.Publish)

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	}
	s.router.Use(recovery(logger), requestLogger(logger), cors.New(corsConfig))
	s.router.GET("/healthz", s.health)
	s.router.GET("/cards", s.listCards)

	matches := s.router.Group("/matches")
	{
		matches.GET("", s.listMatches)
		matches.POST("", s.createMatch)
		matches.GET("/:matchID", s.getMatch)
		matches.DELETE("/:matchID", s.deleteMatch)
		matches.POST("/:matchID/actions", s.postAction)
		matches.POST("/:matchID/abort", s.abortMatch)
		matches.GET("/:matchID/checksum", s.getChecksum)
		matches.GET("/:matchID/replay", s.getReplay)
		matches.GET("/:matchID/hooks", s.getHooks)
		matches.GET("/:matchID/ws", s.serveWS)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"matches": len(s.engine.MatchIDs()),
	})
}

func (s *Server) listCards(c *gin.Context) {
	registry := s.engine.Registry()
	defs := make([]interface{}, 0, registry.Len())
	for _, id := range registry.IDs() {
		def, _ := registry.Definition(id)
		defs = append(defs, def)
	}
	c.JSON(http.StatusOK, gin.H{"cards": defs})
}

func (s *Server) listMatches(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"matches": s.engine.MatchIDs()})
}

func (s *Server) createMatch(c *gin.Context) {
	var req createMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Players) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a match needs exactly two players"})
		return
	}
	snapshot, err := s.engine.CreateMatch([2]game.PlayerSetup{req.Players[0], req.Players[1]})
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

func (s *Server) getMatch(c *gin.Context) {
	snapshot, err := s.engine.Snapshot(c.Param("matchID"))
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) deleteMatch(c *gin.Context) {
	matchID := c.Param("matchID")
	if err := s.engine.Remove(matchID); err != nil {
		s.fail(c, err, nil)
		return
	}
	s.hub.CloseMatch(matchID)
	c.Status(http.StatusNoContent)
}

func (s *Server) postAction(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action, err := decodeAction(body)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	snapshot, err := s.engine.Process(c.Param("matchID"), action)
	if err != nil {
		s.fail(c, err, snapshot)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) abortMatch(c *gin.Context) {
	var req abortRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "aborted by request"
	}
	snapshot, err := s.engine.Abort(c.Param("matchID"), req.Reason)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) getChecksum(c *gin.Context) {
	snapshot, err := s.engine.Snapshot(c.Param("matchID"))
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	sum, err := snapshot.Checksum()
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matchId": snapshot.MatchID, "hash": sum.Hash, "version": sum.Version})
}

func (s *Server) getReplay(c *gin.Context) {
	replay, err := s.engine.Replay(c.Param("matchID"))
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matchId": replay.MatchID, "states": replay.States()})
}

func (s *Server) getHooks(c *gin.Context) {
	order, err := s.engine.HookOrder(c.Param("matchID"))
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hooks": order})
}

func (s *Server) serveWS(c *gin.Context) {
	matchID := c.Param("matchID")
	playerID := c.Query("playerId")

	snapshot, err := s.engine.Snapshot(matchID)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	if playerID != "" && snapshot.Player(playerID) == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "player is not in this match"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("match_id", matchID), zap.Error(err))
		return
	}

	client := newClient(s.hub, conn, matchID, playerID)
	initial, err := json.Marshal(WSMessage{Type: MessageState, MatchID: matchID, Data: snapshot})
	if err == nil {
		client.send <- initial
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(s.handleFrame)
}

// handleFrame resolves an action sent over a websocket. Results reach every
// client through the notification broadcast; errors go back to the sender.
func (s *Server) handleFrame(client *Client, frame []byte) {
	var msg struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(frame, &msg); err != nil {
		client.enqueue(WSMessage{Type: MessageError, MatchID: client.matchID, Data: gin.H{"error": "malformed message"}})
		return
	}
	if msg.Type != MessageAction {
		client.enqueue(WSMessage{Type: MessageError, MatchID: client.matchID, Data: gin.H{"error": "unknown message type " + msg.Type}})
		return
	}
	if client.playerID == "" {
		client.enqueue(WSMessage{Type: MessageError, MatchID: client.matchID, Data: gin.H{"error": "spectators cannot act"}})
		return
	}

	action, err := decodeAction(msg.Data)
	if err == nil {
		if action.PlayerID == "" {
			action.PlayerID = client.playerID
		}
		if action.PlayerID != client.playerID {
			err = errors.New("cannot act for another player")
		}
	}
	if err == nil {
		_, err = s.engine.Process(client.matchID, action)
	}
	if err != nil {
		client.enqueue(WSMessage{
			Type:    MessageError,
			MatchID: client.matchID,
			Data:    gin.H{"error": err.Error(), "status": statusFor(err)},
		})
	}
}

// originChecker accepts requests without an Origin header and origins on the
// allowlist.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrMatchOver):
		return http.StatusConflict
	case errors.Is(err, game.ErrTooManyMatches):
		return http.StatusServiceUnavailable
	case errors.Is(err, game.ErrInvariantViolation):
		return http.StatusInternalServerError
	case errors.Is(err, game.ErrIllegalAction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// fail writes an error response. An aborted match still returns its final
// snapshot so clients can see the abort reason.
func (s *Server) fail(c *gin.Context, err error, snapshot *game.Snapshot) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	body := gin.H{"error": err.Error()}
	if snapshot != nil {
		body["snapshot"] = snapshot
	}
	c.JSON(status, body)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic in http handler",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

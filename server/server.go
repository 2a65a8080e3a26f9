package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog/log"

	nodex "github.com/tanpawarit/whatsbot-agent/agent/nodes"
	statex "github.com/tanpawarit/whatsbot-agent/agent/state"
	qstashx "github.com/tanpawarit/whatsbot-agent/pkg/qstash"
)

// Agent is the conversation surface the HTTP handlers drive.
type Agent interface {
	HandleMessage(ctx context.Context, sessionID, text string) (string, error)
	BookingState(ctx context.Context, sessionID string) (statex.BookingState, error)
	ResetSession(ctx context.Context, sessionID string) error
	ResetAll(ctx context.Context) error
}

// Publisher enqueues a message for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// Verifier checks the signature of a delivered message.
type Verifier interface {
	Verify(signature string, body []byte, url string) error
}

type Option func(*Server)

// WithQStash enables the async endpoints. deliveryURL is the public URL of
// the delivery endpoint and must match the signed subject.
func WithQStash(publisher Publisher, verifier Verifier, deliveryURL string) Option {
	return func(s *Server) {
		s.publisher = publisher
		s.verifier = verifier
		s.deliveryURL = strings.TrimSpace(deliveryURL)
	}
}

type Server struct {
	cfg         Config
	agent       Agent
	publisher   Publisher
	verifier    Verifier
	deliveryURL string
	engine      *gin.Engine
}

type messageRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

type messageResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func New(cfg Config, agent Agent, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, errors.New("agent is required")
	}
	s := &Server{cfg: cfg, agent: agent}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if (s.publisher == nil) != (s.verifier == nil) {
		return nil, errors.New("qstash publisher and verifier must be set together")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(cors.New(corsConfig(cfg.origins())))
	s.routes(r)
	s.engine = r
	return s, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "Upstash-Signature"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		v1.POST("/messages", s.postMessage)
		v1.GET("/sessions/:id/booking", s.getBooking)
		v1.DELETE("/sessions/:id", s.deleteSession)
		v1.DELETE("/sessions", s.deleteSessions)
		if s.publisher != nil {
			v1.POST("/messages/async", s.postMessageAsync)
			v1.POST("/qstash/messages", s.deliverMessage)
		}
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	log.Info().Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) postMessage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	s.reply(c, req)
}

func (s *Server) reply(c *gin.Context, req messageRequest) {
	out, err := s.agent.HandleMessage(c.Request.Context(), req.SessionID, req.Text)
	if err != nil {
		s.fail(c, "handle_message", req.SessionID, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{SessionID: strings.TrimSpace(req.SessionID), Reply: out})
}

func (s *Server) getBooking(c *gin.Context) {
	sessionID := c.Param("id")
	st, err := s.agent.BookingState(c.Request.Context(), sessionID)
	if err != nil {
		s.fail(c, "get_booking", sessionID, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) deleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := s.agent.ResetSession(c.Request.Context(), sessionID); err != nil {
		s.fail(c, "reset_session", sessionID, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteSessions(c *gin.Context) {
	if err := s.agent.ResetAll(c.Request.Context()); err != nil {
		s.fail(c, "reset_all", "", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) postMessageAsync(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and text must not be blank"})
		return
	}

	id, err := s.publisher.Publish(c.Request.Context(), req)
	if err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID).Str("operation", "publish_message").Msg("qstash publish failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not enqueue message"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message_id": id})
}

// deliverMessage is called by QStash with a signed copy of an async message.
func (s *Server) deliverMessage(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, s.cfg.MaxBodyBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}
	if int64(len(body)) > s.cfg.MaxBodyBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
		return
	}

	if err := s.verifier.Verify(c.GetHeader("Upstash-Signature"), body, s.deliveryURL); err != nil {
		log.Warn().Err(err).Str("operation", "deliver_message").Msg("rejected qstash delivery")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var req messageRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	s.reply(c, req)
}

// fail maps agent errors to status codes. Internal failures are logged and
// answered with a generic message.
func (s *Server) fail(c *gin.Context, operation, sessionID string, err error) {
	switch {
	case errors.Is(err, nodex.ErrInvalidSession),
		errors.Is(err, nodex.ErrInvalidMessage),
		errors.Is(err, statex.ErrInvalidSession):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, statex.ErrStateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no booking for this session"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Str("session_id", sessionID).Str("operation", operation).Msg("request abandoned")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request timed out"})
	default:
		_ = c.Error(err)
		log.Error().Err(err).Str("session_id", sessionID).Str("operation", operation).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ Verifier = (*qstashx.Receiver)(nil)
var _ Publisher = (*qstashx.Client)(nil)

// Package webhook receives WhatsApp provider callbacks and feeds the
// conversation engine.
package webhook

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsline/checkline/internal/conversation"
)

// processTimeout bounds the asynchronous handling of one inbound message.
const processTimeout = 60 * time.Second

// MessageHandler is the engine-side contract the ingress feeds.
type MessageHandler interface {
	HandleIncoming(ctx context.Context, msg conversation.Incoming) error
}

// MediaDownloader resolves provider media IDs to local paths.
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, mediaID string) (string, error)
}

// Server is the webhook HTTP server.
type Server struct {
	handler     MessageHandler
	media       MediaDownloader
	verifyToken string
	out         io.Writer
}

// StartOpts holds configuration for the webhook server.
type StartOpts struct {
	Handler     MessageHandler
	Media       MediaDownloader
	VerifyToken string
	Port        int
	Out         io.Writer
}

// Start launches the webhook HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Webhook listening on :%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// NewRouter builds the gin router with all webhook routes registered.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.Handler == nil {
		return nil, fmt.Errorf("webhook: handler is required")
	}
	if opts.VerifyToken == "" {
		return nil, fmt.Errorf("webhook: verify token is required")
	}

	s := &Server{
		handler:     opts.Handler,
		media:       opts.Media,
		verifyToken: opts.VerifyToken,
		out:         opts.Out,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/webhook", s.handleVerify)
	router.POST("/webhook", s.handleEvent)
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router, nil
}

// handleVerify answers the provider's subscription handshake: echo the
// challenge when the verify token matches, reject otherwise.
func (s *Server) handleVerify(c *gin.Context) {
	mode := firstQuery(c, "hub.mode", "mode")
	token := firstQuery(c, "hub.verify_token", "verify_token")
	challenge := firstQuery(c, "hub.challenge", "challenge")

	if mode == "subscribe" && token == s.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusForbidden, "verification failed")
}

// firstQuery returns the first non-empty value among the named query params.
func firstQuery(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := c.Query(name); v != "" {
			return v
		}
	}
	return ""
}

// handleEvent accepts a provider event envelope. The provider treats
// webhook delivery as fire-and-forget, so this always acknowledges with 200
// and processes asynchronously; an internal failure must never trigger a
// provider-side retry storm.
func (s *Server) handleEvent(c *gin.Context) {
	var event Event
	if err := c.ShouldBindJSON(&event); err != nil {
		log.Printf("webhook: malformed event payload: %v", err)
		c.String(http.StatusOK, "ok")
		return
	}

	messages := Normalize(&event)
	c.String(http.StatusOK, "ok")

	go s.process(messages)
}

// process feeds normalized messages to the engine, one bounded call each.
// All failures are logged and swallowed.
func (s *Server) process(messages []Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("webhook: panic in message processing: %v", r)
		}
	}()

	for _, msg := range messages {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		s.processOne(ctx, msg)
		cancel()
	}
}

// processOne dispatches a single normalized message.
func (s *Server) processOne(ctx context.Context, msg Message) {
	switch msg.Kind {
	case KindStatus:
		log.Printf("webhook: status update [to=%s status=%s]", msg.From, msg.Status)
		return

	case KindImage:
		incoming := conversation.Incoming{PhoneNumber: msg.From, Text: msg.Text}
		if s.media != nil {
			path, err := s.media.DownloadMedia(ctx, msg.MediaID)
			if err != nil {
				// Process the caption anyway; the answer still counts
				// without its photo.
				log.Printf("webhook: download media %s: %v", msg.MediaID, err)
			} else {
				incoming.ImageURL = path
			}
		}
		if err := s.handler.HandleIncoming(ctx, incoming); err != nil {
			log.Printf("webhook: handle image message from %s: %v", msg.From, err)
		}

	case KindText, KindButton:
		incoming := conversation.Incoming{PhoneNumber: msg.From, Text: msg.Text}
		if err := s.handler.HandleIncoming(ctx, incoming); err != nil {
			log.Printf("webhook: handle message from %s: %v", msg.From, err)
		}
	}
}

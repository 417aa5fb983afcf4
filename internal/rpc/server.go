// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"github.com/Danny-Lenko/story-pull-backend/internal/api"
	"github.com/Danny-Lenko/story-pull-backend/internal/auth"
	"github.com/Danny-Lenko/story-pull-backend/internal/config"
	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
	"github.com/Danny-Lenko/story-pull-backend/internal/metrics"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

// Admitter authenticates the bearer token of a content request.
// *auth.Guard implements it.
type Admitter interface {
	Admit(ctx context.Context, rawToken string) (*auth.Principal, error)
}

// ServerConfig controls subscription and admission.
type ServerConfig struct {
	SubjectPrefix  string
	QueueGroup     string
	MaxConcurrent  int
	RequestRate    float64
	RequestBurst   int
	RequestTimeout time.Duration
}

// ServerConfigFrom copies the relevant NATS settings.
func ServerConfigFrom(cfg *config.NATSConfig) ServerConfig {
	return ServerConfig{
		SubjectPrefix:  cfg.SubjectPrefix,
		QueueGroup:     cfg.QueueGroup,
		MaxConcurrent:  cfg.MaxConcurrent,
		RequestRate:    cfg.RequestRate,
		RequestBurst:   cfg.RequestBurst,
		RequestTimeout: cfg.RequestTimeout,
	}
}

func (c *ServerConfig) applyDefaults() {
	if c.MaxConcurrent < 1 {
		c.MaxConcurrent = 64
	}
	if c.RequestRate <= 0 {
		c.RequestRate = 500
	}
	if c.RequestBurst < 1 {
		c.RequestBurst = 100
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
}

// handlerFunc serves one decoded request and returns the reply body.
type handlerFunc func(ctx context.Context, msg *natsgo.Msg) (interface{}, error)

// Server answers content and auth requests on NATS subjects.
type Server struct {
	conn    *natsgo.Conn
	cfg     ServerConfig
	content api.ContentService
	auth    api.AuthService
	guard   Admitter

	limiter *rate.Limiter
	sem     chan struct{}

	// inflightMu orders wg.Add in callbacks against the Wait in Serve.
	inflightMu sync.Mutex
	stopping   bool
	wg         sync.WaitGroup

	mu   sync.Mutex
	subs []*natsgo.Subscription

	readyOnce sync.Once
	ready     chan struct{}
}

// NewServer creates a server on an established connection. It does not
// subscribe until Serve is called.
func NewServer(conn *natsgo.Conn, cfg ServerConfig, contentSvc api.ContentService, authSvc api.AuthService, guard Admitter) *Server {
	cfg.applyDefaults()
	return &Server{
		conn:    conn,
		cfg:     cfg,
		content: contentSvc,
		auth:    authSvc,
		guard:   guard,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestRate), cfg.RequestBurst),
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the first Serve call has subscribed.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// String implements fmt.Stringer for suture logging.
func (s *Server) String() string {
	return "rpc-server"
}

// Serve subscribes to every operation subject and blocks until ctx is
// cancelled. In-flight requests are allowed to finish before it returns.
// It implements suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.subscribe(); err != nil {
		s.unsubscribe()
		return err
	}
	logging.Info().
		Str("prefix", s.cfg.SubjectPrefix).
		Str("queue_group", s.cfg.QueueGroup).
		Int("max_concurrent", s.cfg.MaxConcurrent).
		Msg("RPC server listening")
	s.readyOnce.Do(func() { close(s.ready) })

	<-ctx.Done()

	s.unsubscribe()
	s.stopAccepting()
	s.wg.Wait()
	logging.Info().Msg("RPC server stopped")
	return ctx.Err()
}

func (s *Server) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		OpContentList:   s.handleContentList,
		OpContentCreate: s.handleContentCreate,
		OpContentGet:    s.handleContentGet,
		OpContentUpdate: s.handleContentUpdate,
		OpValidateToken: s.handleValidateToken,
		OpLogout:        s.handleLogout,
		OpRegister:      s.handleRegister,
		OpLogin:         s.handleLogin,
	}
}

// stopAccepting makes callbacks still running after Unsubscribe drop
// their message instead of starting a handler.
func (s *Server) stopAccepting() {
	s.inflightMu.Lock()
	s.stopping = true
	s.inflightMu.Unlock()
}

func (s *Server) subscribe() error {
	s.inflightMu.Lock()
	s.stopping = false
	s.inflightMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	for op, h := range s.routes() {
		subject := Subject(s.cfg.SubjectPrefix, op)
		sub, err := s.conn.QueueSubscribe(subject, s.cfg.QueueGroup, s.dispatch(op, h))
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}
	// Make sure the server has registered interest before Serve reports
	// readiness, so an immediate request cannot race the subscription.
	if err := s.conn.Flush(); err != nil {
		return fmt.Errorf("flush subscriptions: %w", err)
	}
	return nil
}

func (s *Server) unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, natsgo.ErrConnectionClosed) {
			logging.Warn().Err(err).Str("subject", sub.Subject).Msg("Failed to unsubscribe")
		}
	}
	s.subs = nil
}

// dispatch applies admission control on the subscription goroutine and
// runs the handler on its own goroutine.
func (s *Server) dispatch(op string, h handlerFunc) natsgo.MsgHandler {
	return func(msg *natsgo.Msg) {
		if msg.Reply == "" {
			logging.Debug().Str("subject", msg.Subject).Msg("Dropping RPC message without reply subject")
			return
		}

		if !s.limiter.Allow() {
			metrics.RPCThrottled.Inc()
			s.reply(context.Background(), op, msg, time.Now(), nil, errThrottled)
			return
		}

		s.sem <- struct{}{}
		s.inflightMu.Lock()
		if s.stopping {
			s.inflightMu.Unlock()
			<-s.sem
			logging.Debug().Str("subject", msg.Subject).Msg("Dropping RPC message received during shutdown")
			return
		}
		s.wg.Add(1)
		s.inflightMu.Unlock()
		go func() {
			defer func() {
				<-s.sem
				s.wg.Done()
			}()
			s.handle(op, h, msg)
		}()
	}
}

var errThrottled = errors.New("rpc: request rate exceeded")

func (s *Server) handle(op string, h handlerFunc, msg *natsgo.Msg) {
	start := time.Now()
	metrics.RPCInFlight.Inc()
	defer metrics.RPCInFlight.Dec()

	requestID := msg.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = logging.GenerateRequestID()
	}
	ctx := logging.ContextWithRequestID(context.Background(), requestID)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	var (
		body interface{}
		err  error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("rpc handler panic: %v", r)
			}
		}()
		body, err = h(ctx, msg)
	}()

	s.reply(ctx, op, msg, start, body, err)
}

// reply encodes body or err into the response envelope and records the
// outcome.
func (s *Server) reply(ctx context.Context, op string, msg *natsgo.Msg, start time.Time, body interface{}, err error) {
	status := http.StatusOK
	code := "OK"
	requestID := logging.RequestIDFromContext(ctx)

	if err != nil {
		var class api.ErrorClass
		if errors.Is(err, errThrottled) {
			class = api.ErrorClass{Status: http.StatusTooManyRequests, Code: models.CodeRateLimited, Message: api.MessageRateLimited}
		} else {
			class = api.ClassifyError(err)
		}
		status, code = class.Status, class.Code

		if class.Internal() {
			logging.Ctx(ctx).Error().Err(err).Str("op", op).Msg("RPC request failed")
		} else {
			logging.Ctx(ctx).Debug().Err(err).Str("op", op).Str("code", code).Msg("RPC request rejected")
		}
		body = &models.APIResponse{Success: false, Error: class.APIError(requestID)}
	}

	data, mErr := json.Marshal(body)
	if mErr != nil {
		logging.Ctx(ctx).Error().Err(mErr).Str("op", op).Msg("Failed to marshal RPC reply")
		status, code = http.StatusInternalServerError, models.CodeInternal
		data, _ = json.Marshal(&models.APIResponse{
			Success: false,
			Error:   &models.APIError{Code: models.CodeInternal, Message: api.MessageInternal, RequestID: requestID},
		})
	}

	out := natsgo.NewMsg(msg.Reply)
	out.Data = data
	out.Header.Set(HeaderStatus, strconv.Itoa(status))
	if requestID != "" {
		out.Header.Set(HeaderRequestID, requestID)
	}
	if rErr := msg.RespondMsg(out); rErr != nil {
		logging.Ctx(ctx).Warn().Err(rErr).Str("op", op).Msg("Failed to send RPC reply")
	}

	metrics.RecordRPCRequest(op, code, time.Since(start))
}

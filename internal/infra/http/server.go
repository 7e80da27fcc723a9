package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"arbiter/internal/config"
	"arbiter/internal/domain"
	"arbiter/internal/infra/evidence"
	"arbiter/internal/infra/merkle"
	"arbiter/internal/infra/policyopa"
	"arbiter/internal/infra/ratelimit"
	"arbiter/internal/usecase"
)

type Server struct {
	cfg  config.Config
	mode string
	r    *gin.Engine

	cases      *usecase.CaseService
	presets    domain.PresetCatalog
	visibility domain.VisibilityEngine
	merkle     *merkle.Service
	hasher     evidence.Hasher
	now        func() time.Time

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

type ServerDeps struct {
	Cases       *usecase.CaseService
	Presets     domain.PresetCatalog
	Visibility  domain.VisibilityEngine
	RateLimiter domain.RateLimiter
	// Mode is reported by /healthz, e.g. "no-db" or "postgres".
	Mode string
	Now  func() time.Time
}

// NewServer wires the default visibility policy and rate limiter around deps.
func NewServer(ctx context.Context, cfg config.Config, deps ServerDeps) (*Server, error) {
	if deps.Visibility == nil {
		engine, err := policyopa.NewEngine(ctx)
		if err != nil {
			return nil, err
		}
		deps.Visibility = engine
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = defaultRateLimiter(ctx, cfg)
	}
	return NewServerWithDeps(cfg, deps)
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) (*Server, error) {
	if deps.Cases == nil || deps.Presets == nil {
		return nil, errors.New("case service and presets are required")
	}
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:        cfg,
		mode:       deps.Mode,
		r:          r,
		cases:      deps.Cases,
		presets:    deps.Presets,
		visibility: deps.Visibility,
		merkle:     &merkle.Service{},
		hasher:     evidence.Hasher{Workers: cfg.HashWorkers, MaxBytes: cfg.EvidenceMaxBytes},
		now:        deps.Now,
	}
	if s.mode == "" {
		s.mode = "no-db"
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s, nil
}

func defaultRateLimiter(ctx context.Context, cfg config.Config) domain.RateLimiter {
	if cfg.RateLimitRequests <= 0 {
		return nil
	}
	if cfg.RedisAddr != "" {
		client, err := ratelimit.NewRedisClient(ctx, ratelimit.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err == nil {
			if limiter, err := ratelimit.NewRedisLimiter(client, nil); err == nil {
				return limiter
			}
		}
		log.Printf("redis rate limiter unavailable (%v); using in-memory limiter.", err)
	}
	return ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: cfg.RateLimitMaxKeys})
}

func (s *Server) initRateLimit(limiter domain.RateLimiter) {
	s.rateLimiter = limiter
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = time.Minute
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = s.cfg.RateLimitWindow()
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": s.mode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.GET("/presets", s.limit(routePresetsRead), s.handleListPresets)
		v1.GET("/visibility", s.limit(routePresetsRead), s.handleVisibility)

		v1.POST("/cases", s.limit(routeCasesWrite), s.handleOpenCase)
		v1.GET("/cases", s.limit(routeCasesRead), s.handleListCases)
		v1.GET("/cases/:case_id", s.limit(routeCasesRead), s.handleGetCase)
		v1.POST("/cases/:case_id/evidence", s.limit(routeCasesWrite), s.handleAttachEvidence)
		v1.POST("/cases/:case_id/proof", s.limit(routeCasesWrite), s.handleAdvance(domain.StepProof))
		v1.POST("/cases/:case_id/deliberation", s.limit(routeCasesWrite), s.handleAdvance(domain.StepDeliberation))
		v1.POST("/cases/:case_id/anchor", s.limit(routeCasesWrite), s.handleAdvance(domain.StepAnchor))
		v1.POST("/cases/:case_id/execution", s.limit(routeCasesWrite), s.handleAdvance(domain.StepExecution))
		v1.GET("/cases/:case_id/evidence/:index/inclusion", s.limit(routeCasesRead), s.handleInclusion)
		v1.GET("/cases/:case_id/export", s.limit(routeCasesRead), s.handleExport)
		v1.GET("/cases/:case_id/award.pdf", s.limit(routeCasesRead), s.handleAward)

		v1.POST("/merkle/root", s.limit(routeMerkle), s.handleMerkleRoot)
		v1.POST("/merkle/inclusion", s.limit(routeMerkle), s.handleMerkleInclusion)
		v1.POST("/merkle/verify", s.limit(routeMerkle), s.handleMerkleVerify)

		v1.POST("/sla/check", s.limit(routeSLA), s.handleSLACheck)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

// Package api is the HTTP façade: a thin gin layer over the workflow
// engine, the scraping cache, and the store.
package api

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/carebridge/carebridge/pkg/cache"
	"github.com/carebridge/carebridge/pkg/docext"
	"github.com/carebridge/carebridge/pkg/engine"
	"github.com/carebridge/carebridge/pkg/metrics"
	"github.com/carebridge/carebridge/pkg/store"
)

// healthChecker is implemented by stores that can ping their backend.
type healthChecker interface {
	Health(ctx context.Context) error
}

// Server holds the HTTP handlers' collaborators.
type Server struct {
	engine    *engine.Engine
	store     store.Store
	cache     *cache.Cache
	extractor *docext.Client
	logger    *slog.Logger
}

// NewServer creates the API server. extractor may be nil; the document
// endpoint then answers 503.
func NewServer(eng *engine.Engine, st store.Store, c *cache.Cache, extractor *docext.Client) *Server {
	return &Server{
		engine:    eng,
		store:     st,
		cache:     c,
		extractor: extractor,
		logger:    slog.With("component", "api"),
	}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/discharge", s.CreateDischarge)
	r.GET("/workflows", s.ListWorkflows)
	r.GET("/workflows/:case_id", s.GetWorkflow)

	r.GET("/shelters", s.ListShelters)
	r.GET("/transport", s.ListTransport)
	r.GET("/benefits", s.ListBenefits)
	r.GET("/resources", s.ListResources)
	r.POST("/shelters/:name/availability", s.UpdateShelterAvailability)

	r.POST("/vapi/webhook", s.VoiceWebhook)
	r.POST("/workflow-events", s.AppendWorkflowEvent)
	r.GET("/conversations", s.ListConversations)

	r.POST("/documents/extract", s.ExtractDocument)

	return r
}

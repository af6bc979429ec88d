package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebridge/carebridge/pkg/models"
	"github.com/carebridge/carebridge/pkg/version"
)

// Health reports service and database health.
func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if hc, ok := s.store.(healthChecker); ok {
		if err := hc.Health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"version": version.Full(),
				"error":   err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": version.Full(),
	})
}

// CreateDischarge accepts an intake record and runs the workflow
// synchronously. Degraded outcomes come back as 200 with an error field;
// only invalid intakes get a 4xx.
func (s *Server) CreateDischarge(c *gin.Context) {
	var intake models.Intake
	if err := c.ShouldBindJSON(&intake); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid intake payload: " + err.Error()})
		return
	}
	if err := intake.Validate(); err != nil {
		writeError(c, err)
		return
	}

	caseID := intake.CaseID
	if caseID == "" {
		caseID = uuid.New().String()
	}

	s.logger.Info("Discharge workflow starting", "case_id", caseID, "patient", intake.PatientName)
	outcome := s.engine.Coordinate(c.Request.Context(), caseID, &intake)

	resp := gin.H{
		"status":  outcome.Status,
		"case_id": caseID,
		"outcome": outcome,
	}
	if outcome.Shelter != nil {
		resp["shelter"] = outcome.Shelter
	}
	if outcome.Error != "" {
		resp["error"] = outcome.Error
	}
	c.JSON(http.StatusOK, resp)
}

// ListWorkflows returns case summaries, newest first.
func (s *Server) ListWorkflows(c *gin.Context) {
	summaries, err := s.store.ListCases(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflows": summaries})
}

// GetWorkflow returns one case with its full timeline.
func (s *Server) GetWorkflow(c *gin.Context) {
	caseID := c.Param("case_id")
	kase, err := s.store.GetCase(c.Request.Context(), caseID)
	if err != nil {
		writeError(c, err)
		return
	}
	events, err := s.store.ListEvents(c.Request.Context(), caseID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"case": kase, "timeline": events})
}

// ListShelters returns fresh shelter rows, optionally filtered by
// ?min_beds= and ?accessible=true.
func (s *Server) ListShelters(c *gin.Context) {
	filter := &models.ShelterFilter{}
	if v := c.Query("min_beds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_beds must be an integer"})
			return
		}
		filter.MinAvailableBeds = n
	}
	filter.AccessibleOnly = c.Query("accessible") == "true"

	rows, err := s.cache.Shelters(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shelters": rows})
}

// ListTransport returns fresh transport rows, optionally filtered by
// ?vehicle_type=.
func (s *Server) ListTransport(c *gin.Context) {
	filter := &models.TransportFilter{VehicleTypeContains: c.Query("vehicle_type")}
	rows, err := s.cache.Transport(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transport": rows})
}

// ListBenefits returns fresh benefit program rows.
func (s *Server) ListBenefits(c *gin.Context) {
	rows, err := s.cache.Benefits(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"benefits": rows})
}

// ListResources returns fresh community resource rows, optionally
// filtered by ?service= and ?dietary=true.
func (s *Server) ListResources(c *gin.Context) {
	filter := &models.ResourceFilter{
		ServiceContains:       c.Query("service"),
		DietaryAccommodations: c.Query("dietary") == "true",
	}
	rows, err := s.cache.Resources(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": rows})
}

// UpdateShelterAvailability sets one shelter's available bed count,
// enforcing 0 <= beds <= capacity.
func (s *Server) UpdateShelterAvailability(c *gin.Context) {
	var body struct {
		AvailableBeds *int `json:"available_beds"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.AvailableBeds == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "available_beds is required"})
		return
	}
	updated, err := s.store.UpdateShelterAvailability(c.Request.Context(), c.Param("name"), *body.AvailableBeds)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shelter": updated})
}

// VoiceWebhook ingests provider callbacks. The poll loop is the source of
// truth for call state; callbacks are logged for diagnosis only.
func (s *Server) VoiceWebhook(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}
	s.logger.Info("Voice provider webhook received", "type", payload["type"])
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// AppendWorkflowEvent appends a timeline event on behalf of an external
// process.
func (s *Server) AppendWorkflowEvent(c *gin.Context) {
	var req models.AppendEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload: " + err.Error()})
		return
	}
	if req.Status == "" {
		req.Status = models.EventInfo
	}
	event, err := s.store.AppendEvent(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// ListConversations returns the bounded in-memory agent conversation log.
func (s *Server) ListConversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"conversations": s.engine.Registry().Conversations().Snapshot(),
	})
}

// ExtractDocument uploads a discharge document to the external extractor
// and returns the prefilled intake.
func (s *Server) ExtractDocument(c *gin.Context) {
	if s.extractor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document extraction is not configured"})
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	docType := c.PostForm("doc_type")
	if docType == "" {
		docType = "discharge_summary"
	}

	extraction, err := s.extractor.Extract(c.Request.Context(), header.Filename, file, docType)
	if err != nil {
		s.logger.Error("Document extraction failed", "file", header.Filename, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "document extraction failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"intake":     extraction.Intake,
		"confidence": extraction.Confidence,
	})
}

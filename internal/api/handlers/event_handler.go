package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/argus-sec/argus/backend/internal/services"
	"github.com/argus-sec/argus/backend/internal/threat"
)

type EventHandler struct {
	threats *services.ThreatService
}

func NewEventHandler(threats *services.ThreatService) *EventHandler {
	return &EventHandler{threats: threats}
}

// organizationID resolves the acting organization from the request. Falls
// back to the default organization for single-tenant deployments.
func organizationID(c *gin.Context) string {
	if org := c.GetHeader("X-Org-ID"); org != "" {
		return org
	}
	if org := c.Query("org"); org != "" {
		return org
	}
	return "default"
}

type ingestRequest struct {
	Events []threat.ParsedEvent `json:"events" binding:"required,min=1,dive"`
}

// Ingest accepts a batch of parsed firewall log events, classifies each, and
// returns the analyses in input order.
func (h *EventHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org := organizationID(c)
	analyses := make([]threat.Analysis, 0, len(req.Events))
	for _, ev := range req.Events {
		_, analysis, err := h.threats.RecordEvent(c.Request.Context(), org, ev)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		analyses = append(analyses, analysis)
	}

	c.JSON(http.StatusOK, gin.H{"ingested": len(analyses), "analyses": analyses})
}

// List returns recent stored events for the organization.
func (h *EventHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	events, err := h.threats.ListEvents(organizationID(c), c.Query("ip"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/argus-sec/argus/backend/internal/models"
	"github.com/argus-sec/argus/backend/internal/services"
)

type PolicyHandler struct {
	blocklist *services.BlocklistService
}

func NewPolicyHandler(blocklist *services.BlocklistService) *PolicyHandler {
	return &PolicyHandler{blocklist: blocklist}
}

// Get returns the effective auto-block policy for the organization.
func (h *PolicyHandler) Get(c *gin.Context) {
	policy, err := h.blocklist.PolicyFor(organizationID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no auto-block policy configured"})
		return
	}
	c.JSON(http.StatusOK, policy)
}

type policyRequest struct {
	Enabled            *bool  `json:"enabled" binding:"required"`
	Threshold          int    `json:"threshold" binding:"required,min=1"`
	BlockDurationHours int    `json:"block_duration_hours" binding:"required,min=1"`
	WindowMinutes      int    `json:"window_minutes" binding:"required,min=1"`
	IPSetName          string `json:"ip_set_name" binding:"required"`
	Scope              string `json:"scope" binding:"required,oneof=REGIONAL EDGE"`
}

// Upsert creates or replaces the organization's policy.
func (h *PolicyHandler) Upsert(c *gin.Context) {
	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy := &models.AutoBlockPolicy{
		OrganizationID:     organizationID(c),
		Enabled:            *req.Enabled,
		Threshold:          req.Threshold,
		BlockDurationHours: req.BlockDurationHours,
		WindowMinutes:      req.WindowMinutes,
		IPSetName:          req.IPSetName,
		Scope:              req.Scope,
	}
	if err := h.blocklist.UpsertPolicy(policy); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, policy)
}

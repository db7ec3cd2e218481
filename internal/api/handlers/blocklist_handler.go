package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/argus-sec/argus/backend/internal/models"
	"github.com/argus-sec/argus/backend/internal/services"
)

type BlocklistHandler struct {
	blocklist *services.BlocklistService
}

func NewBlocklistHandler(blocklist *services.BlocklistService) *BlocklistHandler {
	return &BlocklistHandler{blocklist: blocklist}
}

// List returns the organization's block records.
func (h *BlocklistHandler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	records, err := h.blocklist.ListBlocked(organizationID(c), activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

type blockRequest struct {
	IP     string `json:"ip" binding:"required"`
	Reason string `json:"reason"`
}

// Block manually blocks an IP under the organization's policy.
func (h *BlocklistHandler) Block(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org := organizationID(c)
	policy, err := h.blocklist.PolicyFor(org)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no auto-block policy configured for organization"})
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "manual block"
	}

	result := h.blocklist.BlockIP(c.Request.Context(), org, req.IP, reason, models.BlockedByManual, policy)
	status := http.StatusOK
	if result.Action == services.BlockActionFailed {
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}

// Unblock releases a blocked IP.
func (h *BlocklistHandler) Unblock(c *gin.Context) {
	ip := c.Param("ip")
	org := organizationID(c)

	policy, err := h.blocklist.PolicyFor(org)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no auto-block policy configured for organization"})
		return
	}

	result := h.blocklist.UnblockIP(c.Request.Context(), org, ip, policy)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}

// Sweep triggers the expired-block sweep immediately.
func (h *BlocklistHandler) Sweep(c *gin.Context) {
	result := h.blocklist.UnblockExpired(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/argus-sec/argus/backend/internal/services"
)

type AnalyzerHandler struct {
	analyzers *services.AnalyzerService
}

func NewAnalyzerHandler(analyzers *services.AnalyzerService) *AnalyzerHandler {
	return &AnalyzerHandler{analyzers: analyzers}
}

// Run triggers an on-demand analyzer run with a short budget and returns the
// execution summary, including per-task outcomes for diagnostics.
func (h *AnalyzerHandler) Run(c *gin.Context) {
	summary := h.analyzers.RunAll(c.Request.Context(), time.Minute)
	c.JSON(http.StatusOK, summary)
}

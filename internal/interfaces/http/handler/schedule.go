package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appinvoicing "github.com/invoicehub/backend/internal/application/invoicing"
)

// GenerationRunner triggers a schedule engine run outside the periodic timer
type GenerationRunner interface {
	TriggerManualRun(ctx context.Context) (appinvoicing.RunReport, error)
}

// ScheduleHandler exposes the internal schedule engine trigger
type ScheduleHandler struct {
	BaseHandler
	runner GenerationRunner
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(runner GenerationRunner) *ScheduleHandler {
	return &ScheduleHandler{
		runner: runner,
	}
}

// Run godoc
// @ID           runRecurringGeneration
// @Summary      Run the recurring invoice schedule engine now
// @Description  Sweeps all organizations for due recurring invoices and
// @Description  generates the resulting invoices. Intended for internal
// @Description  tooling and cron, not for tenant-facing clients.
// @Tags         internal
// @Produce      json
// @Success      200 {object} dto.Response{data=appinvoicing.RunReport}
// @Failure      500 {object} dto.Response
// @Router       /internal/recurring-invoices/run [post]
func (h *ScheduleHandler) Run(c *gin.Context) {
	report, err := h.runner.TriggerManualRun(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

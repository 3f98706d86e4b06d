package handlers

import (
	"net/http"

	"courtside/models"
	"courtside/services/analytics"
	"courtside/utils"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves venue owner reports.
type AnalyticsHandler struct {
	Service analytics.AnalyticsService
}

func NewAnalyticsHandler(svc analytics.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{Service: svc}
}

// VenueReportHandler returns the aggregated report for one venue and period.
func (h *AnalyticsHandler) VenueReportHandler(c *gin.Context) {
	venueID := c.Param("id")
	period := models.AnalyticsPeriod(c.DefaultQuery("period", string(models.PeriodWeek)))
	if !period.Valid() {
		utils.JSONError(c, http.StatusBadRequest, "invalid period", "period must be one of DAY, WEEK, MONTH, YEAR")
		return
	}

	report, err := h.Service.VenueReport(c.Request.Context(), venueID, period)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to build report", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

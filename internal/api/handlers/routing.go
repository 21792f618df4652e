package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/careroute/careroute/internal/models"
	"github.com/careroute/careroute/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var errNoPersistence = errors.New("routing history requires DATABASE_URL")

// RoutingHandler serves the stored routing decisions. repo may be nil.
type RoutingHandler struct {
	repo   models.RoutingRecordRepository
	logger *logrus.Logger
}

func NewRoutingHandler(repo models.RoutingRecordRepository, logger *logrus.Logger) *RoutingHandler {
	return &RoutingHandler{repo: repo, logger: logger}
}

func (h *RoutingHandler) HandleRecent(c *gin.Context) {
	if h.repo == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Persistence not configured", errNoPersistence)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	records, err := h.repo.GetRecent(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get routing records")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get routing records", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Routing records retrieved", records)
}

func (h *RoutingHandler) HandleStats(c *gin.Context) {
	if h.repo == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Persistence not configured", errNoPersistence)
		return
	}

	counts, err := h.repo.CountByCategory()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get routing stats")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get routing stats", err)
		return
	}

	stats := models.RoutingStats{Categories: counts}
	for _, cc := range counts {
		stats.Total += cc.Count
	}
	utils.SuccessResponse(c, http.StatusOK, "Routing stats retrieved", stats)
}

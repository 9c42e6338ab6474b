package http

import (
	"net/http"
	"strconv"
	"time"

	"golang-market-briefing/internal/briefing/dto"
	"golang-market-briefing/internal/briefing/repository"
	"golang-market-briefing/internal/briefing/service"
	"golang-market-briefing/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BriefingHandler handles HTTP requests for briefing runs and the archive.
type BriefingHandler struct {
	briefingService service.BriefingService
	archiveRepo     repository.DigestArchiveRepository
	logger          *logger.Logger
}

// NewBriefingHandler creates a new BriefingHandler. archiveRepo may be nil
// when archiving is disabled.
func NewBriefingHandler(briefingService service.BriefingService, archiveRepo repository.DigestArchiveRepository, logger *logger.Logger) *BriefingHandler {
	return &BriefingHandler{briefingService: briefingService, archiveRepo: archiveRepo, logger: logger}
}

// RegisterRoutes registers the briefing routes to the Echo group.
func (h *BriefingHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/runs", h.TriggerRun)
	g.GET("/runs/last", h.GetLastRun)
	g.GET("/archive", h.GetArchive)
}

// TriggerRun starts a briefing run for the requested variant.
func (h *BriefingHandler) TriggerRun(c echo.Context) error {
	var req dto.TriggerRunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request payload"})
	}
	if req.Variant == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "variant is required"})
	}

	summary, err := h.briefingService.RunVariant(c.Request().Context(), req.Variant)
	if err != nil {
		h.logger.Error("Triggered run failed", logger.ErrorField(err), logger.StringField("variant", req.Variant))
		if summary != nil {
			// The pipeline ran but delivery failed; expose the partial summary.
			return c.JSON(http.StatusBadGateway, summary)
		}
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, summary)
}

// GetLastRun returns the most recent run summary.
func (h *BriefingHandler) GetLastRun(c echo.Context) error {
	summary := h.briefingService.LastRun()
	if summary == nil {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "no runs yet"})
	}
	return c.JSON(http.StatusOK, summary)
}

// GetArchive returns delivered items from the last N days (default 7).
func (h *BriefingHandler) GetArchive(c echo.Context) error {
	if h.archiveRepo == nil {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "archive is disabled"})
	}

	days := 7
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid days parameter"})
		}
		days = parsed
	}

	since := time.Now().AddDate(0, 0, -days)
	entries, err := h.archiveRepo.FindDeliveredSince(c.Request().Context(), since)
	if err != nil {
		h.logger.Error("Failed to read archive", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to read archive"})
	}

	return c.JSON(http.StatusOK, dto.ArchiveResponse{Since: since, Total: len(entries), Entries: entries})
}

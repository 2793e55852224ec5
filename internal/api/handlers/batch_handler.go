package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/retailops/replenish/internal/batch"
	"github.com/retailops/replenish/internal/domain"
)

// BatchHandler exposes the batch lifecycle over HTTP. Runs execute in the
// background; the in-flight set is what surfaces COMPUTING on the status
// endpoint and refuses a second concurrent run for the same date.
type BatchHandler struct {
	controller *batch.Controller

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewBatchHandler(controller *batch.Controller) *BatchHandler {
	return &BatchHandler{
		controller: controller,
		inFlight:   make(map[string]bool),
	}
}

// GetStatus returns the derived batch state for one business date.
func (h *BatchHandler) GetStatus(c *gin.Context) {
	date := c.Param("date")

	run, err := h.controller.Status(c.Request.Context(), date)
	if err != nil {
		if errors.Is(err, batch.ErrInvalidDate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Str("date", date).Msg("failed to derive batch status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to derive batch status"})
		return
	}

	if h.running(date) {
		run.Status = domain.StatusComputing
	}

	c.JSON(http.StatusOK, run)
}

// RunBatch starts a replenishment run for the date in the background.
func (h *BatchHandler) RunBatch(c *gin.Context) {
	h.startRun(c, "run", h.controller.Run)
}

// ReprocessBatch restores archived inputs and re-runs the date.
func (h *BatchHandler) ReprocessBatch(c *gin.Context) {
	h.startRun(c, "reprocess", h.controller.Reprocess)
}

func (h *BatchHandler) startRun(c *gin.Context, op string, fn func(context.Context, string) (*batch.RunResult, error)) {
	date := c.Param("date")
	if err := batch.ValidateDate(date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.claim(date) {
		c.JSON(http.StatusConflict, gin.H{"error": "a run for this date is already in progress"})
		return
	}

	go func() {
		defer h.release(date)

		result, err := fn(context.Background(), date)
		if err != nil {
			log.Error().Err(err).Str("date", date).Str("op", op).Msg("batch run failed")
			return
		}
		log.Info().
			Str("date", date).
			Str("op", op).
			Str("status", string(result.Status)).
			Int("orders", result.OrdersExported).
			Msg("batch run finished")
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"date":    date,
		"message": op + " started",
	})
}

func (h *BatchHandler) claim(date string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inFlight[date] {
		return false
	}
	h.inFlight[date] = true
	return true
}

func (h *BatchHandler) release(date string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inFlight, date)
}

func (h *BatchHandler) running(date string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inFlight[date]
}

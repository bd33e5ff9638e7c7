package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/movierec/movierec-backend/internal/scheduler"
)

type AdminHandler struct {
	sched *scheduler.Scheduler
}

func NewAdminHandler(sched *scheduler.Scheduler) *AdminHandler {
	return &AdminHandler{sched: sched}
}

// TriggerRecompute kicks off an out-of-band recommendation recompute. Safe
// to call while a run is in progress; it becomes a no-op.
func (ah *AdminHandler) TriggerRecompute(c *gin.Context) {
	started, err := ah.sched.Trigger(c.Request.Context(), scheduler.JobRecomputeRecommendations)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !started {
		c.JSON(http.StatusAccepted, gin.H{"msg": "recompute already in progress"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"msg": "recompute started"})
}

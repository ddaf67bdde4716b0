package controllers

import (
	"fmt"
	"net/http"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/timeline"
	"feedsync/internal/transport"
)

type HealthController struct {
	home      timeline.FeedReconcilerInterface
	stream    transport.StreamClientInterface
	dedup     *models.DedupCache
	startTime time.Time
}

type healthResponse struct {
	Status        string           `json:"status"`
	Uptime        string           `json:"uptime"`
	UptimeSeconds float64          `json:"uptime_seconds"`
	Feed          models.FeedPhase `json:"feed"`
	Stream        string           `json:"stream"`
	DedupEntries  int              `json:"dedup_entries"`
	DedupCapacity int              `json:"dedup_capacity"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	phase := hc.home.State().Phase
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Feed:          phase,
		Stream:        "disabled",
		DedupEntries:  hc.dedup.Len(),
		DedupCapacity: hc.dedup.Capacity(),
	}
	if phase == models.PhaseError {
		resp.Status = "degraded"
	}
	if hc.stream != nil {
		resp.Stream = "disconnected"
		if hc.stream.Connected() {
			resp.Stream = "connected"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

// NewHealthController accepts a nil stream when live updates are disabled.
func NewHealthController(home timeline.FeedReconcilerInterface, stream transport.StreamClientInterface, dedup *models.DedupCache) *HealthController {
	return &HealthController{
		home:      home,
		stream:    stream,
		dedup:     dedup,
		startTime: time.Now(),
	}
}

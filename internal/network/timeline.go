package network

import (
	"net/http"
	"time"

	"github.com/ziv044/PM1/internal/infra/storage"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/world"
)

// TimelineHandler serves the event history of the running game: the
// live window plus, on request, the archived ledger. The frontend
// uses it for the situation-room timeline view.
type TimelineHandler struct {
	state   *world.State
	archive *storage.EventArchive
	logger  *logger.Logger
}

func NewTimelineHandler(state *world.State, archive *storage.EventArchive, log *logger.Logger) *TimelineHandler {
	return &TimelineHandler{state: state, archive: archive, logger: log}
}

// TimelineResponse is the API response for the event timeline.
type TimelineResponse struct {
	TotalLive     int           `json:"total_live"`
	TotalArchived int           `json:"total_archived"`
	FilteredBy    string        `json:"filtered_by,omitempty"`
	GeneratedAt   string        `json:"generated_at"`
	Events        []world.Event `json:"events"`
}

// HandleTimeline returns the event timeline, newest first.
// GET /api/timeline?agent_id=X&limit=N&include_archived=true
func (th *TimelineHandler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit := intQuery(r, "limit", 100)
	agentID := r.URL.Query().Get("agent_id")
	includeArchived := r.URL.Query().Get("include_archived") == "true"

	resp := TimelineResponse{
		TotalLive:   th.state.EventCount(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		FilteredBy:  agentID,
	}

	for _, e := range th.state.RecentEvents(limit, false) {
		if agentID != "" && e.AgentID != agentID {
			continue
		}
		resp.Events = append(resp.Events, e)
	}

	if includeArchived && th.archive != nil {
		archived, err := th.archivedSlice(agentID, limit)
		if err != nil {
			th.logger.Warn("Timeline archive read failed: %v", err)
		} else {
			resp.Events = append(resp.Events, archived...)
		}
		if n, err := th.archive.Count(); err == nil {
			resp.TotalArchived = n
		}
	}

	if len(resp.Events) > limit {
		resp.Events = resp.Events[:limit]
	}
	jsonOK(w, resp)
}

func (th *TimelineHandler) archivedSlice(agentID string, limit int) ([]world.Event, error) {
	if agentID != "" {
		return th.archive.ByAgent(agentID)
	}
	return th.archive.Recent(limit)
}

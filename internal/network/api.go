package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/kpi"
	"github.com/ziv044/PM1/internal/meetings"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/sim"
	"github.com/ziv044/PM1/internal/world"
)

// ControlAPI is the REST surface the player's frontend drives the
// simulation with. It also serves as the WebSocket command router, so
// both transports share one implementation.
type ControlAPI struct {
	coordinator *sim.Coordinator
	state       *world.State
	registry    *agents.Registry
	kpis        *kpi.Store
	mapState    *geo.MapState
	logger      *logger.Logger
}

func NewControlAPI(coordinator *sim.Coordinator, state *world.State, registry *agents.Registry,
	kpis *kpi.Store, mapState *geo.MapState, log *logger.Logger) *ControlAPI {
	return &ControlAPI{
		coordinator: coordinator,
		state:       state,
		registry:    registry,
		kpis:        kpis,
		mapState:    mapState,
		logger:      log,
	}
}

// Register mounts every endpoint on the mux.
func (api *ControlAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", api.handleStatus)
	mux.HandleFunc("/api/simulation/start", api.handleStart)
	mux.HandleFunc("/api/simulation/stop", api.handleStop)
	mux.HandleFunc("/api/clock/speed", api.handleSpeed)
	mux.HandleFunc("/api/clock/time", api.handleTime)
	mux.HandleFunc("/api/resolve", api.handleResolve)
	mux.HandleFunc("/api/events", api.handleEvents)
	mux.HandleFunc("/api/approvals", api.handleApprovals)
	mux.HandleFunc("/api/approvals/decide", api.handleDecideApproval)
	mux.HandleFunc("/api/scheduled", api.handleScheduled)
	mux.HandleFunc("/api/scheduled/cancel", api.handleCancelScheduled)
	mux.HandleFunc("/api/agents", api.handleAgents)
	mux.HandleFunc("/api/agents/toggle", api.handleToggleAgent)
	mux.HandleFunc("/api/kpis", api.handleKPIs)
	mux.HandleFunc("/api/map", api.handleMap)
	mux.HandleFunc("/api/meetings", api.handleMeetings)
	mux.HandleFunc("/api/meetings/create", api.handleCreateMeeting)
	mux.HandleFunc("/api/meetings/start", api.handleStartMeeting)
	mux.HandleFunc("/api/meetings/advance", api.handleAdvanceMeeting)
	mux.HandleFunc("/api/meetings/interject", api.handleInterject)
	mux.HandleFunc("/api/meetings/conclude", api.handleConcludeMeeting)
	mux.HandleFunc("/api/meetings/abort", api.handleAbortMeeting)
	mux.HandleFunc("/api/meetings/requests", api.handleMeetingRequests)
	mux.HandleFunc("/api/meetings/requests/decide", api.handleDecideMeetingRequest)
}

func (api *ControlAPI) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	jsonOK(w, api.coordinator.Status())
}

func (api *ControlAPI) handleStart(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := api.coordinator.Start(context.Background()); err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	jsonOK(w, api.coordinator.Status())
}

func (api *ControlAPI) handleStop(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	api.coordinator.Stop()
	jsonOK(w, api.coordinator.Status())
}

func (api *ControlAPI) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Speed float64 `json:"speed"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := api.coordinator.SetSpeed(req.Speed); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	jsonOK(w, api.coordinator.Status())
}

func (api *ControlAPI) handleTime(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		GameTime time.Time `json:"game_time"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	api.coordinator.SetTime(req.GameTime)
	jsonOK(w, api.coordinator.Status())
}

func (api *ControlAPI) handleResolve(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	api.coordinator.ForceResolve(r.Context())
	jsonOK(w, api.coordinator.Status())
}

func (api *ControlAPI) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	limit := intQuery(r, "limit", 50)
	publicOnly := r.URL.Query().Get("public_only") != "false"
	jsonOK(w, api.state.RecentEvents(limit, publicOnly))
}

func (api *ControlAPI) handleApprovals(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	jsonOK(w, api.state.PendingApprovals())
}

func (api *ControlAPI) handleDecideApproval(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		ApprovalID string     `json:"approval_id"`
		Approve    bool       `json:"approve"`
		DueTime    *time.Time `json:"due_time,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	decision, err := api.decideApproval(req.ApprovalID, req.Approve, req.DueTime)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	jsonOK(w, decision)
}

func (api *ControlAPI) decideApproval(id string, approve bool, due *time.Time) (sim.ApprovalDecision, error) {
	if approve {
		return api.coordinator.Approve(id, due)
	}
	return api.coordinator.Reject(id)
}

func (api *ControlAPI) handleScheduled(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	jsonOK(w, api.state.ScheduledEvents())
}

func (api *ControlAPI) handleCancelScheduled(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		ScheduledEventID string `json:"scheduled_event_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := api.coordinator.CancelScheduled(req.ScheduledEventID); err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	jsonOK(w, map[string]string{"cancelled": req.ScheduledEventID})
}

func (api *ControlAPI) handleAgents(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	jsonOK(w, api.registry.AllProfiles())
}

func (api *ControlAPI) handleToggleAgent(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		AgentID string `json:"agent_id"`
		Enabled bool   `json:"enabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := api.registry.SetEnabled(req.AgentID, req.Enabled); err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	jsonOK(w, map[string]interface{}{"agent_id": req.AgentID, "enabled": req.Enabled})
}

func (api *ControlAPI) handleKPIs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if entity := r.URL.Query().Get("entity"); entity != "" {
		doc, err := api.kpis.Get(entity)
		if err != nil {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		jsonOK(w, doc)
		return
	}
	jsonOK(w, api.kpis.All())
}

func (api *ControlAPI) handleMap(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	jsonOK(w, api.mapState.Export())
}

func (api *ControlAPI) handleMeetings(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if id := r.URL.Query().Get("meeting_id"); id != "" {
		s, err := api.coordinator.Meetings().Get(id)
		if err != nil {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		jsonOK(w, s)
		return
	}
	jsonOK(w, api.coordinator.Meetings().Sessions())
}

func (api *ControlAPI) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		MeetingType  string                 `json:"meeting_type"`
		Title        string                 `json:"title"`
		Description  string                 `json:"description"`
		Participants []meetings.Participant `json:"participants"`
		Agenda       []string               `json:"agenda"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s, err := api.coordinator.Meetings().Create(req.MeetingType, req.Title, req.Description, req.Participants, req.Agenda, nil)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	jsonOK(w, s)
}

type meetingRef struct {
	MeetingID string `json:"meeting_id"`
}

func (api *ControlAPI) handleStartMeeting(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req meetingRef
	if !decodeBody(w, r, &req) {
		return
	}
	s, err := api.coordinator.Meetings().Start(req.MeetingID)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	jsonOK(w, s)
}

func (api *ControlAPI) handleAdvanceMeeting(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req meetingRef
	if !decodeBody(w, r, &req) {
		return
	}
	turns, err := api.coordinator.Meetings().AdvanceRound(r.Context(), req.MeetingID)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	jsonOK(w, turns)
}

func (api *ControlAPI) handleInterject(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		MeetingID   string   `json:"meeting_id"`
		Content     string   `json:"content"`
		AddressedTo []string `json:"addressed_to"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	turn, err := api.coordinator.Meetings().PlayerInterject(req.MeetingID, req.Content, req.AddressedTo)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	jsonOK(w, turn)
}

func (api *ControlAPI) handleConcludeMeeting(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		MeetingID string `json:"meeting_id"`
		Force     bool   `json:"force"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	outcome, err := api.coordinator.Meetings().Conclude(r.Context(), req.MeetingID, req.Force)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	jsonOK(w, outcome)
}

func (api *ControlAPI) handleAbortMeeting(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req meetingRef
	if !decodeBody(w, r, &req) {
		return
	}
	outcome, err := api.coordinator.Meetings().Abort(req.MeetingID)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	jsonOK(w, outcome)
}

func (api *ControlAPI) handleMeetingRequests(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	jsonOK(w, api.coordinator.Meetings().PendingRequests())
}

func (api *ControlAPI) handleDecideMeetingRequest(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		RequestID string `json:"request_id"`
		Approve   bool   `json:"approve"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Approve {
		if err := api.coordinator.Meetings().RejectRequest(req.RequestID); err != nil {
			jsonError(w, err.Error(), statusFor(err))
			return
		}
		jsonOK(w, map[string]string{"rejected": req.RequestID})
		return
	}
	s, err := api.coordinator.Meetings().ApproveRequest(req.RequestID)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	jsonOK(w, s)
}

// HandleCommand implements the WebSocket CommandRouter on top of the
// same operations the REST surface exposes.
func (api *ControlAPI) HandleCommand(ctx context.Context, cmdType string, payload json.RawMessage) (interface{}, error) {
	switch cmdType {
	case "status":
		return api.coordinator.Status(), nil
	case "set_speed":
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("bad payload: %w", err)
		}
		if err := api.coordinator.SetSpeed(req.Speed); err != nil {
			return nil, err
		}
		return api.coordinator.Status(), nil
	case "force_resolve":
		api.coordinator.ForceResolve(ctx)
		return api.coordinator.Status(), nil
	case "decide_approval":
		var req struct {
			ApprovalID string     `json:"approval_id"`
			Approve    bool       `json:"approve"`
			DueTime    *time.Time `json:"due_time,omitempty"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("bad payload: %w", err)
		}
		return api.decideApproval(req.ApprovalID, req.Approve, req.DueTime)
	case "meeting_interject":
		var req struct {
			MeetingID   string   `json:"meeting_id"`
			Content     string   `json:"content"`
			AddressedTo []string `json:"addressed_to"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("bad payload: %w", err)
		}
		return api.coordinator.Meetings().PlayerInterject(req.MeetingID, req.Content, req.AddressedTo)
	case "meeting_advance":
		var req meetingRef
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("bad payload: %w", err)
		}
		return api.coordinator.Meetings().AdvanceRound(ctx, req.MeetingID)
	default:
		return nil, fmt.Errorf("unknown command %q", cmdType)
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, world.ErrNotFound),
		errors.Is(err, meetings.ErrMeetingNotFound),
		errors.Is(err, meetings.ErrRequestNotFound),
		errors.Is(err, agents.ErrUnknownAgent):
		return http.StatusNotFound
	case errors.Is(err, world.ErrAlreadyDecided),
		errors.Is(err, world.ErrAlreadyResolved),
		errors.Is(err, world.ErrNotPending),
		errors.Is(err, meetings.ErrAnotherActive),
		errors.Is(err, meetings.ErrNotStartable),
		errors.Is(err, meetings.ErrMeetingNotActive),
		errors.Is(err, meetings.ErrRoundLimit):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func jsonOK(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

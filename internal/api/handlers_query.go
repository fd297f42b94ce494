package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/daybrief/daybrief/internal/api/respond"
	"github.com/daybrief/daybrief/internal/assembler"
	"github.com/daybrief/daybrief/internal/model"
	"github.com/daybrief/daybrief/internal/store"
)

// BriefingRunner is the pipeline surface the HTTP layer depends on.
// Satisfied by *services.BriefingService.
type BriefingRunner interface {
	Query(ctx context.Context, queryText, workspaceID string) (*model.BriefingResponse, error)
	DailyBriefing(ctx context.Context, workspaceID string) (*model.BriefingResponse, error)
}

// QueryHandler serves the query, briefing, and history endpoints.
type QueryHandler struct {
	svc  BriefingRunner
	logs store.QueryLogs
}

func NewQueryHandler(svc BriefingRunner, logs store.QueryLogs) *QueryHandler {
	return &QueryHandler{svc: svc, logs: logs}
}

// HandleQuery POST /api/query
// Body: {query, workspace_id}. Returns the flatter legacy shape.
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query       string `json:"query"`
		WorkspaceID string `json:"workspace_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.Query == "" || req.WorkspaceID == "" {
		respond.WriteBadRequest(w, "Missing required fields: query and workspace_id")
		return
	}

	resp, err := h.svc.Query(r.Context(), req.Query, req.WorkspaceID)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, assembler.ToQueryResponse(resp))
}

// HandleBriefing GET /api/briefing?workspace_id=
// Returns the full briefing contract with receipts and token stats.
func (h *QueryHandler) HandleBriefing(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		respond.WriteBadRequest(w, "Missing workspace_id parameter")
		return
	}

	resp, err := h.svc.DailyBriefing(r.Context(), workspaceID)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, resp)
}

// HandleHistory GET /api/query/history?workspace_id=&limit=
// Returns recent pipeline invocations, newest first.
func (h *QueryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		respond.WriteBadRequest(w, "Missing workspace_id parameter")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			respond.WriteBadRequest(w, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	logs, err := h.logs.ListRecent(r.Context(), workspaceID, limit)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	if logs == nil {
		logs = []*model.QueryLog{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"queries": logs,
		"count":   len(logs),
	})
}

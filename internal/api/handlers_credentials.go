package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/daybrief/daybrief/internal/api/respond"
	"github.com/daybrief/daybrief/internal/model"
	"github.com/daybrief/daybrief/internal/store"
)

// CredentialHandler serves the credential management surface fed by the OAuth
// callback layer, plus the per-provider connection status endpoint.
type CredentialHandler struct {
	creds store.Credentials
}

func NewCredentialHandler(creds store.Credentials) *CredentialHandler {
	return &CredentialHandler{creds: creds}
}

func parseProvider(s string) (model.IntegrationType, bool) {
	for _, p := range model.IntegrationTypes() {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// PutCredential PUT /api/users/{userId}/credentials/{provider}
func (h *CredentialHandler) PutCredential(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	p, ok := parseProvider(vars["provider"])
	if !ok {
		respond.WriteBadRequest(w, "unknown provider: "+vars["provider"])
		return
	}

	var req struct {
		AccessToken  string     `json:"access_token"`
		RefreshToken *string    `json:"refresh_token,omitempty"`
		ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.AccessToken == "" {
		respond.WriteBadRequest(w, "access_token is required")
		return
	}

	out, err := h.creds.Put(r.Context(), &model.Credential{
		UserID:       vars["userId"],
		Provider:     p,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"provider":    out.Provider,
		"connectedAt": out.ConnectedAt,
	})
}

// DeleteCredential DELETE /api/users/{userId}/credentials/{provider}
func (h *CredentialHandler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	p, ok := parseProvider(vars["provider"])
	if !ok {
		respond.WriteBadRequest(w, "unknown provider: "+vars["provider"])
		return
	}
	if err := h.creds.Delete(r.Context(), vars["userId"], p); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, "credential not found")
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AuthStatus GET /api/auth/status?user_id=
// Returns a per-provider connected map.
func (h *CredentialHandler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteBadRequest(w, "Missing user_id parameter")
		return
	}

	connected, err := h.creds.ListProviders(r.Context(), userID)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}

	status := make(map[model.IntegrationType]bool, len(model.IntegrationTypes()))
	for _, p := range model.IntegrationTypes() {
		status[p] = false
	}
	for _, p := range connected {
		status[p] = true
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"providers": status})
}

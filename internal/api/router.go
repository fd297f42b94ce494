package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/daybrief/daybrief/internal/api/recovery"
)

// NewRouter wires all HTTP routes.
func NewRouter(query *QueryHandler, creds *CredentialHandler, agent *AgentHandler, health *HealthHandler, log zerolog.Logger) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware(log))

	// Health and metrics
	router.HandleFunc("/api/health", health.CheckHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Briefing pipeline
	router.HandleFunc("/api/query", query.HandleQuery).Methods("POST")
	router.HandleFunc("/api/query/history", query.HandleHistory).Methods("GET")
	router.HandleFunc("/api/briefing", query.HandleBriefing).Methods("GET")

	// Credential management
	router.HandleFunc("/api/users/{userId}/credentials/{provider}", creds.PutCredential).Methods("PUT")
	router.HandleFunc("/api/users/{userId}/credentials/{provider}", creds.DeleteCredential).Methods("DELETE")
	router.HandleFunc("/api/auth/status", creds.AuthStatus).Methods("GET")

	// Agent views
	router.HandleFunc("/api/agent/gmail", agent.Gmail).Methods("GET")
	router.HandleFunc("/api/agent/calendar", agent.Calendar).Methods("GET")
	router.HandleFunc("/api/agent/github", agent.GitHub).Methods("GET")
	router.HandleFunc("/api/context", agent.Context).Methods("GET")

	return router
}

package v1

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"esgss-backend/application/queries"
	querybus "esgss-backend/application/queries/bus"
	"esgss-backend/interfaces/http/rest/middleware"
	"esgss-backend/pkg/auth"
	apperrors "esgss-backend/pkg/errors"
)

// NewRouter creates the legacy v1 API router. Only the read endpoints
// survived the v2 migration; writes redirect to their v2 replacements.
func NewRouter(queryBus *querybus.QueryBus, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()

	api.Use(mux.MiddlewareFunc(middleware.Authenticate()))
	api.Use(versionHeaders)

	h := &legacyHandler{
		queryBus: queryBus,
		errs:     apperrors.NewErrorHandler(logger),
	}

	api.HandleFunc("/nodes", h.listNodes).Methods("GET")
	api.HandleFunc("/nodes/{id}", h.getNode).Methods("GET")
	api.HandleFunc("/cards", h.listCards).Methods("GET")
	api.HandleFunc("/cards/{id}", h.getCard).Methods("GET")
	api.HandleFunc("/profile", h.getProfile).Methods("GET")
	api.HandleFunc("/health", healthCheck).Methods("GET")

	// Everything else moved to v2
	api.PathPrefix("/").HandlerFunc(redirectToV2)

	return router
}

type legacyHandler struct {
	queryBus *querybus.QueryBus
	errs     *apperrors.ErrorHandler
}

func (h *legacyHandler) listNodes(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListNodesQuery{UserID: userCtx.UserID})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *legacyHandler) getNode(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetNodeQuery{
		UserID:   userCtx.UserID,
		EntityID: mux.Vars(r)["id"],
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *legacyHandler) listCards(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListCardsQuery{
		UserID:       userCtx.UserID,
		PurifiedOnly: r.URL.Query().Get("purified") == "true",
		Attribute:    r.URL.Query().Get("attribute"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *legacyHandler) getCard(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetCardQuery{
		UserID: userCtx.UserID,
		CardID: mux.Vars(r)["id"],
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *legacyHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetProfileQuery{UserID: userCtx.UserID})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// redirectToV2 points callers of removed v1 endpoints at the v2 API
func redirectToV2(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, strings.Replace(r.URL.Path, "/api/v1", "/api/v2", 1), http.StatusPermanentRedirect)
}

// versionHeaders adds API version headers to responses
func versionHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v1")
		w.Header().Set("X-API-Deprecated", "true")
		next.ServeHTTP(w, r)
	})
}

// healthCheck provides a health check endpoint
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","version":"v1"}`))
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

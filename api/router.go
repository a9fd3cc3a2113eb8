package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(requestID, requestLogger, recoverer)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/fundraisers", s.listFundraisers).Methods(http.MethodGet)
	api.HandleFunc("/fundraisers", s.createFundraiser).Methods(http.MethodPost)
	api.HandleFunc("/fundraisers/{id}", s.getFundraiser).Methods(http.MethodGet)
	api.HandleFunc("/fundraisers/{id}", s.patchFundraiser).Methods(http.MethodPatch)
	api.HandleFunc("/fundraisers/{id}/donate", s.donate).Methods(http.MethodPost)
	api.HandleFunc("/fundraisers/{id}/updates", s.listUpdates).Methods(http.MethodGet)
	api.HandleFunc("/fundraisers/{id}/updates", s.createUpdate).Methods(http.MethodPost)

	api.HandleFunc("/donations/verify", s.verifyDonation).Methods(http.MethodPost)
	api.HandleFunc("/donations/{id}/confirm", s.confirmDonation).Methods(http.MethodPost)

	api.HandleFunc("/reports", s.createReport).Methods(http.MethodPost)

	api.Handle("/admin", s.requireAdminKey(http.HandlerFunc(s.listReports))).Methods(http.MethodGet)
	api.Handle("/admin", s.requireAdminKey(http.HandlerFunc(s.moderate))).Methods(http.MethodPost)

	api.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.logout).Methods(http.MethodPost)
	api.HandleFunc("/me", s.me).Methods(http.MethodGet)

	r.NotFoundHandler = requestID(requestLogger(http.HandlerFunc(notFound)))
	r.MethodNotAllowedHandler = requestID(requestLogger(http.HandlerFunc(methodNotAllowed)))

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "route not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

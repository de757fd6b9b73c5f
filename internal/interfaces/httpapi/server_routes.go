package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerSquadRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/squads/optimize", handler.OptimizeSquad)
	mux.HandleFunc("POST /v1/squads/plan", handler.PlanMatchdays)
	mux.HandleFunc("GET /v1/squads/selections", handler.ListSelections)
	mux.HandleFunc("GET /v1/squads/selections/{matchday}", handler.GetSelectionByMatchday)
}

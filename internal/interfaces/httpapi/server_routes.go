package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/fixtures", handler.ListFixtures)
	mux.HandleFunc("GET /v1/pipeline/status", handler.GetPipelineStatus)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/pipeline-run", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunPipelineJob)))
}

package api

import "net/http"

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search/{query}", app.searchHandler)
	mux.HandleFunc("GET /api/platforms", app.platformsHandler)
	mux.HandleFunc("GET /api/health", app.healthHandler)
	mux.HandleFunc("GET /api/test-explainer", app.testExplainerHandler)
	mux.HandleFunc("GET /api/runs", app.runsHandler)
	mux.HandleFunc("GET /api/metrics", app.metricsHandler)
	return WithRequestID(WithLogging(app.logger, WithCORS(mux)))
}

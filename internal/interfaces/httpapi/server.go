package httpapi

import (
	"net/http"

	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
)

type RouterConfig struct {
	CORSAllowedOrigins []string
	InternalJobToken   string
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

func NewRouter(handler *Handler, logger *logging.Logger, cfg RouterConfig) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg.MetricsHandler)
	registerPublicRoutes(mux, handler)
	registerInternalJobRoutes(mux, handler, cfg.InternalJobToken)

	return RequestTracing(RequestLogging(logger, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, mux))))
}
